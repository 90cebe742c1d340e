package pijuice

// Decoded status and fault shapes. The MCU packs each into a single byte;
// the tables below are fixed by the firmware protocol.

// Status is the decoded general status byte.
type Status struct {
	IsFault        bool
	IsButton       bool
	BatteryStatus  string
	PowerInput     string
	PowerInput5vIo string
}

// FaultStatus is the decoded fault event byte.
type FaultStatus struct {
	ButtonPowerOff           bool
	ForcedPowerOff           bool
	ForcedSysPowerOff        bool
	WatchdogReset            bool
	BatteryProfileInvalid    bool
	ChargingTemperatureFault string
}

// ClockTime is the decoded real-time-clock reading.
type ClockTime struct {
	Year    int
	Month   int
	Day     int
	Weekday int
	Hour    int
	Minute  int
	Second  int
}

var batteryStates = [4]string{"NORMAL", "CHARGING_FROM_IN", "CHARGING_FROM_5V_IO", "NOT_PRESENT"}

var powerInputStates = [4]string{"NOT_PRESENT", "BAD", "WEAK", "PRESENT"}

var temperatureFaults = [4]string{"NORMAL", "SUSPEND", "COOL", "WARM"}

// statusPhrases maps status codes to human-readable phrases for the CLI.
var statusPhrases = map[string]string{
	"NORMAL":              "Normal",
	"CHARGING_FROM_IN":    "Charging from IN",
	"CHARGING_FROM_5V_IO": "Charging from 5V IO",
	"NOT_PRESENT":         "Not present",
	"BAD":                 "Bad",
	"WEAK":                "Weak",
	"PRESENT":             "Present",
	"SUSPEND":             "Suspend",
	"COOL":                "Cool",
	"WARM":                "Warm",
}

// FormatStatus renders a status code as a human-readable phrase unless raw
// mode is selected; unknown codes pass through unchanged.
func FormatStatus(code string, raw bool) string {
	if raw {
		return code
	}
	if phrase, ok := statusPhrases[code]; ok {
		return phrase
	}
	return code
}

func decodeStatus(b byte) Status {
	return Status{
		IsFault:        b&0x01 != 0,
		IsButton:       b&0x02 != 0,
		BatteryStatus:  batteryStates[(b>>2)&0x03],
		PowerInput:     powerInputStates[(b>>4)&0x03],
		PowerInput5vIo: powerInputStates[(b>>6)&0x03],
	}
}

func decodeFault(b byte) FaultStatus {
	return FaultStatus{
		ButtonPowerOff:           b&0x01 != 0,
		ForcedPowerOff:           b&0x02 != 0,
		ForcedSysPowerOff:        b&0x04 != 0,
		WatchdogReset:            b&0x08 != 0,
		BatteryProfileInvalid:    b&0x20 != 0,
		ChargingTemperatureFault: temperatureFaults[(b>>6)&0x03],
	}
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

func decodeTime(d []byte) ClockTime {
	return ClockTime{
		Second:  fromBCD(d[0] & 0x7F),
		Minute:  fromBCD(d[1] & 0x7F),
		Hour:    fromBCD(d[2] & 0x3F),
		Weekday: int(d[3] & 0x07),
		Day:     fromBCD(d[4] & 0x3F),
		Month:   fromBCD(d[5] & 0x1F),
		Year:    2000 + fromBCD(d[6]),
	}
}
