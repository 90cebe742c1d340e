// Package pijuice talks to the PiJuice UPS HAT microcontroller and normalises
// its fixed two-shape responses (success-with-data or error-code) for the rest
// of the service.
package pijuice

import "fmt"

// Vendor error codes. Every accessor reply carries exactly one of these.
const (
	NoError            = "NO_ERROR"
	CommunicationError = "COMMUNICATION_ERROR"
	DataCorrupted      = "DATA_CORRUPTED"
	WriteFailed        = "WRITE_FAILED"
	BadArgument        = "BAD_ARGUMENT"
	InvalidArgument    = "INVALID_ARGUMENT"
	UnknownData        = "UNKNOWN_DATA"
)

// Envelope is the fixed vendor response shape: either Error == NoError and
// Data holds the payload, or Error holds a code and Data is ignored.
type Envelope struct {
	Error string
	Data  any
}

// Device exposes one method per physical reading. Implemented by HAT for the
// real hardware and by fakes in tests.
type Device interface {
	Status() Envelope
	ChargeLevel() Envelope
	FaultStatus() Envelope
	BatteryTemperature() Envelope
	BatteryVoltage() Envelope
	BatteryCurrent() Envelope
	IoVoltage() Envelope
	IoCurrent() Envelope
	Time() Envelope
}

// CodeError carries a vendor error code as a Go error.
type CodeError struct {
	Code string
}

func (e *CodeError) Error() string { return e.Code }

// Normalize converts an envelope into a bare value in target units, dividing
// by div for accessors with milli-unit native values (div <= 0 means no
// conversion). The error code is authoritative: any code other than NoError
// takes the error branch even if a data payload happens to be present.
func Normalize(env Envelope, div float64) (float64, error) {
	if env.Error != NoError {
		code := env.Error
		if code == "" {
			code = UnknownData
		}
		return 0, &CodeError{Code: code}
	}
	var v float64
	switch d := env.Data.(type) {
	case int:
		v = float64(d)
	case int64:
		v = float64(d)
	case float64:
		v = d
	default:
		return 0, &CodeError{Code: UnknownData}
	}
	if div > 0 {
		v /= div
	}
	return v, nil
}

// errorPhrases maps vendor error codes to human-readable phrases for the
// diagnostic CLI.
var errorPhrases = map[string]string{
	NoError:            "No error",
	CommunicationError: "Communication error",
	DataCorrupted:      "Data corrupted",
	WriteFailed:        "Write failed",
	BadArgument:        "Bad argument",
	InvalidArgument:    "Invalid argument",
	UnknownData:        "Unknown data",
}

// FormatError renders a vendor error code. In raw mode the code is returned
// verbatim; otherwise a known code becomes "Phrase (CODE)", and an unknown
// code falls back to the raw string.
func FormatError(code string, raw bool) string {
	if raw {
		return code
	}
	if phrase, ok := errorPhrases[code]; ok {
		return fmt.Sprintf("%s (%s)", phrase, code)
	}
	return code
}
