package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

const (
	bmpAddr = 0x77

	bmpRegCalib   = 0xAA
	bmpRegControl = 0xF4
	bmpRegData    = 0xF6

	bmpCmdTemperature = 0x2E
	bmpCmdPressure    = 0x34

	// Oversampling setting (0..3). 1 keeps the conversion well inside
	// the 200 ms visit interval of the two-phase protocol.
	bmpOSS = 1
)

// BMP085 is the newer-generation barometric sensor on its own I2C bus.
// Conversions are started explicitly and collected on the next visit,
// which maps directly onto the estimator's two-phase protocol.
type BMP085 struct {
	dev i2c.Dev

	// Factory calibration coefficients from the device EEPROM.
	ac1, ac2, ac3      int16
	ac4, ac5, ac6      uint16
	b1, b2, mb, mc, md int16

	// b5 couples the temperature compensation into the pressure
	// compensation; it is refreshed by every temperature read.
	b5 int32
}

// OpenBMP085 opens the named I2C bus and loads the calibration EEPROM.
func OpenBMP085(busName string) (*BMP085, error) {
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("bmp085: i2c open %q: %w", busName, err)
	}
	b := &BMP085{dev: i2c.Dev{Bus: bus, Addr: bmpAddr}}
	if err := b.readCalibration(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BMP085) readCalibration() error {
	buf := make([]byte, 22)
	if err := b.dev.Tx([]byte{bmpRegCalib}, buf); err != nil {
		return fmt.Errorf("bmp085: read calibration: %w", err)
	}
	u16 := func(i int) uint16 { return uint16(buf[i])<<8 | uint16(buf[i+1]) }
	b.ac1 = int16(u16(0))
	b.ac2 = int16(u16(2))
	b.ac3 = int16(u16(4))
	b.ac4 = u16(6)
	b.ac5 = u16(8)
	b.ac6 = u16(10)
	b.b1 = int16(u16(12))
	b.b2 = int16(u16(14))
	b.mb = int16(u16(16))
	b.mc = int16(u16(18))
	b.md = int16(u16(20))
	return nil
}

func (b *BMP085) StartTemperatureConversion() error {
	if err := b.dev.Tx([]byte{bmpRegControl, bmpCmdTemperature}, nil); err != nil {
		return fmt.Errorf("bmp085: start temperature: %w", err)
	}
	return nil
}

// ReadTemperature collects the pending temperature conversion and
// returns °C.
func (b *BMP085) ReadTemperature() (float64, error) {
	buf := make([]byte, 2)
	if err := b.dev.Tx([]byte{bmpRegData}, buf); err != nil {
		return 0, fmt.Errorf("bmp085: read temperature: %w", err)
	}
	ut := int32(buf[0])<<8 | int32(buf[1])

	x1 := (ut - int32(b.ac6)) * int32(b.ac5) >> 15
	x2 := int32(b.mc) << 11 / (x1 + int32(b.md))
	b.b5 = x1 + x2
	return float64((b.b5+8)>>4) / 10.0, nil
}

func (b *BMP085) StartPressureConversion() error {
	if err := b.dev.Tx([]byte{bmpRegControl, bmpCmdPressure | bmpOSS<<6}, nil); err != nil {
		return fmt.Errorf("bmp085: start pressure: %w", err)
	}
	return nil
}

// ReadPressure collects the pending pressure conversion and returns Pa,
// compensated with the coefficients and the b5 of the last temperature
// read (datasheet algorithm).
func (b *BMP085) ReadPressure() (float64, error) {
	buf := make([]byte, 3)
	if err := b.dev.Tx([]byte{bmpRegData}, buf); err != nil {
		return 0, fmt.Errorf("bmp085: read pressure: %w", err)
	}
	up := (int32(buf[0])<<16 | int32(buf[1])<<8 | int32(buf[2])) >> (8 - bmpOSS)

	b6 := b.b5 - 4000
	x1 := int32(b.b2) * (b6 * b6 >> 12) >> 11
	x2 := int32(b.ac2) * b6 >> 11
	x3 := x1 + x2
	b3 := ((int32(b.ac1)*4+x3)<<bmpOSS + 2) / 4
	x1 = int32(b.ac3) * b6 >> 13
	x2 = int32(b.b1) * (b6 * b6 >> 12) >> 16
	x3 = (x1 + x2 + 2) >> 2
	b4 := uint32(b.ac4) * uint32(x3+32768) >> 15
	b7 := uint32(up-b3) * (50000 >> bmpOSS)

	var p int32
	if b7 < 0x80000000 {
		p = int32(b7 * 2 / b4)
	} else {
		p = int32(b7/b4) * 2
	}
	x1 = (p >> 8) * (p >> 8)
	x1 = x1 * 3038 >> 16
	x2 = -7357 * p >> 16
	p += (x1 + x2 + 3791) >> 4

	return float64(p), nil
}
