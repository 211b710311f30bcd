package baro

import (
	"log"
	"math"

	"github.com/duvitech-llc/gluonpilot/internal/bus"
)

// LegacyDriver is the first-generation combined pressure/temperature
// sensor. It converts continuously; DataReady reports whether a new
// sample is waiting.
type LegacyDriver interface {
	DataReady() bool
	// ReadSample returns pressure (Pa) and temperature (°C) for the
	// pending conversion. Must only be called while holding the bus.
	ReadSample() (pressure, temperature float64, err error)
}

// SpeedSource supplies the current GPS ground speed for the
// vertical-speed plausibility clamp.
type SpeedSource interface {
	GpsSpeed() float64
}

// LegacyEstimator reads the legacy sensor over the shared bus and
// derives height and vertical speed. Bus contention or a bad reading
// skips the whole update: previous values are retained, nothing is
// partially written.
type LegacyEstimator struct {
	drv      LegacyDriver
	arb      *bus.Arbiter
	heightFn HeightFunc
	speed    SpeedSource
	out      Sink

	dtAccum        float64
	lastHeight     float64
	pressureHeight float64
	verticalSpeed  float64
}

func NewLegacyEstimator(drv LegacyDriver, arb *bus.Arbiter, heightFn HeightFunc, speed SpeedSource, out Sink) *LegacyEstimator {
	return &LegacyEstimator{drv: drv, arb: arb, heightFn: heightFn, speed: speed, out: out}
}

// Accumulate adds one tick's worth of elapsed time. The accumulator
// only resets after a successful update, so the vertical-speed
// denominator always spans the full interval between samples.
func (e *LegacyEstimator) Accumulate(dt float64) {
	e.dtAccum += dt
}

// Update attempts one acquisition. Returns true when the state was
// updated, false when the update was skipped (no sample pending, bus
// contention, or a read error).
func (e *LegacyEstimator) Update() bool {
	if !e.drv.DataReady() {
		return false
	}
	tok, ok := e.arb.TryAcquire()
	if !ok {
		// Bus held by the other peripheral. Skip this tick.
		return false
	}
	p, t, err := e.drv.ReadSample()
	tok.Release()
	if err != nil {
		log.Printf("baro: read sample: %v", err)
		return false
	}

	e.out.SetPressure(p)
	e.out.SetTemperature(t)

	if h := e.heightFn(p, t); plausibleHeight(h) {
		e.pressureHeight = h
		e.out.SetPressureHeight(h)
	}

	// The raw height delta is too noisy to use directly.
	v := e.verticalSpeed*0.8 + (e.pressureHeight-e.lastHeight)/e.dtAccum*0.2
	if math.Abs(v) > math.Max(5.0, e.speed.GpsSpeed()) {
		v = 0.0
	}
	e.verticalSpeed = v
	e.out.SetVerticalSpeed(v)

	e.lastHeight = e.pressureHeight
	e.dtAccum = 0.0
	return true
}

// VerticalSpeed returns the current smoothed estimate.
func (e *LegacyEstimator) VerticalSpeed() float64 { return e.verticalSpeed }
