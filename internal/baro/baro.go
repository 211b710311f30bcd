// Package baro estimates height and vertical speed from the barometric
// sensor. Two mutually exclusive hardware generations are supported:
// the legacy SCP1000 on a shared SPI bus, and the newer BMP085 on a
// dedicated bus driven by an explicit two-phase conversion protocol.
package baro

import "log"

// HeightFunc converts a pressure (Pa) and temperature (°C) reading into
// a height above the reference level (m).
type HeightFunc func(pressure, temperature float64) float64

// Sink receives barometric updates destined for the physical state.
type Sink interface {
	SetPressure(float64)
	SetTemperature(float64)
	SetPressureHeight(float64)
	SetVerticalSpeed(float64)
}

// The sensors occasionally glitch to readings around -31000; anything
// outside this band is discarded and the previous height kept.
const (
	minPlausibleHeight = -30000.0
	maxPlausibleHeight = 30000.0
)

func plausibleHeight(h float64) bool {
	return h > minPlausibleHeight && h < maxPlausibleHeight
}

// Phase is the cycle state of the newer hardware's acquisition
// protocol. It advances one step per low-rate tick.
type Phase int

const (
	AwaitingTemperature Phase = iota
	AwaitingPressure
)

func (p Phase) String() string {
	if p == AwaitingPressure {
		return "awaiting-pressure"
	}
	return "awaiting-temperature"
}

// ModernDriver is the newer-generation barometric sensor: conversions
// are started explicitly and collected on the next visit.
type ModernDriver interface {
	StartTemperatureConversion() error
	ReadTemperature() (float64, error)
	StartPressureConversion() error
	ReadPressure() (float64, error)
}

// ModernEstimator drives the two-phase protocol on the dedicated bus.
type ModernEstimator struct {
	drv      ModernDriver
	heightFn HeightFunc
	out      Sink

	phase       Phase
	temperature float64
	pressure    float64
}

// NewModernEstimator primes the first temperature conversion so the
// first Step has a pending result to collect.
func NewModernEstimator(drv ModernDriver, heightFn HeightFunc, out Sink) *ModernEstimator {
	e := &ModernEstimator{drv: drv, heightFn: heightFn, out: out, phase: AwaitingTemperature}
	if err := drv.StartTemperatureConversion(); err != nil {
		log.Printf("baro: start temperature conversion: %v", err)
	}
	return e
}

// Phase returns the current protocol state.
func (e *ModernEstimator) Phase() Phase { return e.phase }

// Step advances the protocol by one low-rate tick: collect the pending
// conversion, start the other one, flip the phase. The phase advances
// even when a read fails so the conversion cadence is preserved.
func (e *ModernEstimator) Step() {
	switch e.phase {
	case AwaitingTemperature:
		if t, err := e.drv.ReadTemperature(); err != nil {
			log.Printf("baro: read temperature: %v", err)
		} else {
			e.temperature = t
			e.out.SetTemperature(t)
		}
		if err := e.drv.StartPressureConversion(); err != nil {
			log.Printf("baro: start pressure conversion: %v", err)
		}
		e.phase = AwaitingPressure

	case AwaitingPressure:
		if p, err := e.drv.ReadPressure(); err != nil {
			log.Printf("baro: read pressure: %v", err)
		} else {
			e.pressure = p
			e.out.SetPressure(p)
			if h := e.heightFn(p, e.temperature); plausibleHeight(h) {
				e.out.SetPressureHeight(h)
			}
		}
		if err := e.drv.StartTemperatureConversion(); err != nil {
			log.Printf("baro: start temperature conversion: %v", err)
		}
		e.phase = AwaitingTemperature
	}
}
