package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// SCP1000 register map (direct-access registers).
const (
	scpRegOperation = 0x03
	scpRegDataRd8   = 0x1F // pressure bits [18:16]
	scpRegDataRd16  = 0x20 // pressure bits [15:0]
	scpRegTempOut   = 0x21 // 14-bit signed temperature

	// High-resolution continuous acquisition (~9 Hz).
	scpModeHighRes = 0x0A
)

// SCP1000 is the legacy combined pressure/temperature sensor. It sits
// on the SPI bus shared with the dataflash; callers must hold the bus
// token around ReadSample.
type SCP1000 struct {
	conn spi.Conn
	drdy gpio.PinIn
}

// OpenSCP1000 opens the shared SPI port, configures continuous
// high-resolution mode and resolves the data-ready pin.
func OpenSCP1000(dev, drdyPin string) (*SCP1000, error) {
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("scp1000: spi open %s: %w", dev, err)
	}
	conn, err := port.Connect(500*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("scp1000: spi connect %s: %w", dev, err)
	}
	drdy := gpioreg.ByName(drdyPin)
	if drdy == nil {
		return nil, fmt.Errorf("scp1000: drdy pin %q not found", drdyPin)
	}
	if err := drdy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("scp1000: drdy pin %q: %w", drdyPin, err)
	}
	s := &SCP1000{conn: conn, drdy: drdy}
	if err := s.writeReg(scpRegOperation, scpModeHighRes); err != nil {
		return nil, fmt.Errorf("scp1000: set operation mode: %w", err)
	}
	return s, nil
}

// DataReady reports whether a new conversion is waiting. Level-based:
// the DRDY line stays high until the data registers are read.
func (s *SCP1000) DataReady() bool {
	return s.drdy.Read() == gpio.High
}

// ReadSample returns pressure in Pa and temperature in °C. Reading the
// data registers clears DRDY.
func (s *SCP1000) ReadSample() (float64, float64, error) {
	hi, err := s.readReg8(scpRegDataRd8)
	if err != nil {
		return 0, 0, err
	}
	lo, err := s.readReg16(scpRegDataRd16)
	if err != nil {
		return 0, 0, err
	}
	rawTemp, err := s.readReg16(scpRegTempOut)
	if err != nil {
		return 0, 0, err
	}

	// 19-bit pressure word in units of 1/4 Pa.
	pressure := float64(uint32(hi&0x07)<<16|uint32(lo)) / 4.0

	// 14-bit two's-complement temperature in units of 1/20 °C.
	t := int16(rawTemp << 2) >> 2
	temperature := float64(t) / 20.0

	return pressure, temperature, nil
}

func (s *SCP1000) writeReg(reg, val byte) error {
	tx := []byte{reg<<2 | 0x02, val}
	return s.conn.Tx(tx, make([]byte, len(tx)))
}

func (s *SCP1000) readReg8(reg byte) (byte, error) {
	tx := []byte{reg << 2, 0x00}
	rx := make([]byte, 2)
	if err := s.conn.Tx(tx, rx); err != nil {
		return 0, fmt.Errorf("scp1000: read reg 0x%02X: %w", reg, err)
	}
	return rx[1], nil
}

func (s *SCP1000) readReg16(reg byte) (uint16, error) {
	tx := []byte{reg << 2, 0x00, 0x00}
	rx := make([]byte, 3)
	if err := s.conn.Tx(tx, rx); err != nil {
		return 0, fmt.Errorf("scp1000: read reg 0x%02X: %w", reg, err)
	}
	return uint16(rx[1])<<8 | uint16(rx[2]), nil
}
