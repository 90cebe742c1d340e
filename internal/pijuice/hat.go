package pijuice

import (
	"fmt"
	"strconv"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// MCU command codes, one per reading.
const (
	cmdStatus             = 0x40
	cmdChargeLevel        = 0x41
	cmdFaultEvent         = 0x44
	cmdButtonEvent        = 0x45
	cmdBatteryTemperature = 0x47
	cmdBatteryVoltage     = 0x49
	cmdBatteryCurrent     = 0x4B
	cmdIoVoltage          = 0x4D
	cmdIoCurrent          = 0x4F
	cmdRTCTime            = 0xB0
)

// DefaultBus and DefaultAddress are the PiJuice factory defaults.
const (
	DefaultBus     = 1
	DefaultAddress = 0x14
)

// HAT reads the PiJuice MCU over I2C. Every accessor is a single blocking
// bus transaction; callers own throttling.
type HAT struct {
	dev    i2c.Dev
	closer i2c.BusCloser
}

// Open initialises the periph host drivers and opens I2C bus number bus.
func Open(bus int, address uint16) (*HAT, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}
	b, err := i2creg.Open(strconv.Itoa(bus))
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %d: %w", bus, err)
	}
	h := NewHAT(b, address)
	h.closer = b
	return h, nil
}

// NewHAT wraps an already-open bus. Used by Open and by tests.
func NewHAT(bus i2c.Bus, address uint16) *HAT {
	return &HAT{dev: i2c.Dev{Bus: bus, Addr: address}}
}

func (h *HAT) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

// checksum is the MCU frame check: 0xFF XORed with every payload byte.
func checksum(data []byte) byte {
	c := byte(0xFF)
	for _, b := range data {
		c ^= b
	}
	return c
}

// read issues one command and returns the payload after validating the
// trailing checksum byte.
func (h *HAT) read(cmd byte, n int) ([]byte, string) {
	buf := make([]byte, n+1)
	if err := h.dev.Tx([]byte{cmd}, buf); err != nil {
		return nil, CommunicationError
	}
	if checksum(buf[:n]) != buf[n] {
		return nil, DataCorrupted
	}
	return buf[:n], NoError
}

func (h *HAT) Status() Envelope {
	d, code := h.read(cmdStatus, 1)
	if code != NoError {
		return Envelope{Error: code}
	}
	return Envelope{Error: NoError, Data: decodeStatus(d[0])}
}

func (h *HAT) ChargeLevel() Envelope {
	d, code := h.read(cmdChargeLevel, 1)
	if code != NoError {
		return Envelope{Error: code}
	}
	return Envelope{Error: NoError, Data: int(d[0])}
}

func (h *HAT) FaultStatus() Envelope {
	d, code := h.read(cmdFaultEvent, 1)
	if code != NoError {
		return Envelope{Error: code}
	}
	return Envelope{Error: NoError, Data: decodeFault(d[0])}
}

// BatteryTemperature returns degrees Celsius; the MCU sends a signed byte.
func (h *HAT) BatteryTemperature() Envelope {
	d, code := h.read(cmdBatteryTemperature, 2)
	if code != NoError {
		return Envelope{Error: code}
	}
	t := int(d[0])
	if d[0]&0x80 != 0 {
		t -= 1 << 8
	}
	return Envelope{Error: NoError, Data: t}
}

// BatteryVoltage returns millivolts, little-endian 16-bit.
func (h *HAT) BatteryVoltage() Envelope {
	return h.readWord(cmdBatteryVoltage, false)
}

// BatteryCurrent returns milliamps, little-endian signed 16-bit.
func (h *HAT) BatteryCurrent() Envelope {
	return h.readWord(cmdBatteryCurrent, true)
}

// IoVoltage returns millivolts on the 5V GPIO rail.
func (h *HAT) IoVoltage() Envelope {
	return h.readWord(cmdIoVoltage, false)
}

// IoCurrent returns milliamps on the 5V GPIO rail, signed.
func (h *HAT) IoCurrent() Envelope {
	return h.readWord(cmdIoCurrent, true)
}

func (h *HAT) Time() Envelope {
	d, code := h.read(cmdRTCTime, 9)
	if code != NoError {
		return Envelope{Error: code}
	}
	return Envelope{Error: NoError, Data: decodeTime(d)}
}

func (h *HAT) readWord(cmd byte, signed bool) Envelope {
	d, code := h.read(cmd, 2)
	if code != NoError {
		return Envelope{Error: code}
	}
	v := int(uint16(d[1])<<8 | uint16(d[0]))
	if signed && v >= 1<<15 {
		v -= 1 << 16
	}
	return Envelope{Error: NoError, Data: v}
}
