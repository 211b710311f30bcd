package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"

	"github.com/duvitech-llc/gluonpilot/internal/state"
)

const (
	hmcAddr = 0x1E

	hmcRegConfigA = 0x00
	hmcRegConfigB = 0x01
	hmcRegMode    = 0x02
	hmcRegDataX   = 0x03

	hmcRate10Hz     = 0x10 // CRA: 10 Hz output, normal measurement
	hmcGain1Ga      = 0x20 // CRB: ±1.0 Ga range
	hmcModeContinue = 0x00
)

// Magnetometer is the optional heading sensor, fitted on quad and
// F1E-steering builds.
type Magnetometer interface {
	Read() (state.MagSample, error)
}

// HMC5843 is a 3-axis magnetometer in continuous-measurement mode.
type HMC5843 struct {
	dev i2c.Dev
}

func OpenHMC5843(busName string) (*HMC5843, error) {
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("hmc5843: i2c open %q: %w", busName, err)
	}
	m := &HMC5843{dev: i2c.Dev{Bus: bus, Addr: hmcAddr}}
	for _, w := range [][2]byte{
		{hmcRegConfigA, hmcRate10Hz},
		{hmcRegConfigB, hmcGain1Ga},
		{hmcRegMode, hmcModeContinue},
	} {
		if err := m.dev.Tx(w[:], nil); err != nil {
			return nil, fmt.Errorf("hmc5843: write reg 0x%02X: %w", w[0], err)
		}
	}
	return m, nil
}

// Read returns the raw field strength, X/Y/Z big-endian.
func (m *HMC5843) Read() (state.MagSample, error) {
	buf := make([]byte, 6)
	if err := m.dev.Tx([]byte{hmcRegDataX}, buf); err != nil {
		return state.MagSample{}, fmt.Errorf("hmc5843: read data: %w", err)
	}
	return state.MagSample{
		X: int16(buf[0])<<8 | int16(buf[1]),
		Y: int16(buf[2])<<8 | int16(buf[3]),
		Z: int16(buf[4])<<8 | int16(buf[5]),
	}, nil
}
