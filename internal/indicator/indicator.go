// Package indicator drives the GPS lock indicator.
package indicator

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Indicator is a binary status output.
type Indicator interface {
	On()
	Off()
}

// LED drives a GPIO-attached indicator LED.
type LED struct {
	pin gpio.PinOut
}

func OpenLED(pinName string) (*LED, error) {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("indicator: pin %q not found", pinName)
	}
	return &LED{pin: pin}, nil
}

func (l *LED) On()  { _ = l.pin.Out(gpio.High) }
func (l *LED) Off() { _ = l.pin.Out(gpio.Low) }

// Nop is used on headless and test configurations.
type Nop struct{}

func (Nop) On()  {}
func (Nop) Off() {}
