// Package acquisition runs the fixed-period sensor sampling loop.
package acquisition

import (
	"context"
	"log"
	"time"

	"github.com/duvitech-llc/gluonpilot/internal/ahrs"
	"github.com/duvitech-llc/gluonpilot/internal/baro"
	"github.com/duvitech-llc/gluonpilot/internal/calibration"
	"github.com/duvitech-llc/gluonpilot/internal/sensors"
	"github.com/duvitech-llc/gluonpilot/internal/state"
)

// counterReset bounds the tick counter. It is a common multiple of
// every sub-rate modulus in use (50, 25, 100), so the low-rate
// schedules see no discontinuity across the wrap.
const counterReset = 60000

// batteryVoltsPerCount converts the battery divider's ADC reading.
const batteryVoltsPerCount = 3.3 * 5.1 / 6550.0

const (
	lowRateDivider = 50 // battery + two-phase baro, every 50th tick
	magDivider     = 25 // magnetometer, every 25th tick
)

// Profile selects the loop rate for the airframe: 250 Hz for the quad,
// 50 Hz for the fixed wing.
type Profile struct {
	TickPeriod time.Duration
}

var (
	QuadProfile      = Profile{TickPeriod: 4 * time.Millisecond}
	FixedWingProfile = Profile{TickPeriod: 20 * time.Millisecond}
)

// Task samples the ADC, scales the readings, drives the barometric
// estimator and feeds the attitude filter, once per tick.
type Task struct {
	period time.Duration
	dt     float64

	adc    sensors.ADC
	scaler *calibration.Scaler
	st     state.AcquisitionState
	filter ahrs.Filter
	flags  *state.Flags

	// Exactly one of legacy/modern is set, per hardware generation.
	legacy *baro.LegacyEstimator
	modern *baro.ModernEstimator

	// Nil unless the build variant carries a magnetometer.
	mag sensors.Magnetometer

	counter    int
	terminated bool
}

type Option func(*Task)

// WithLegacyBaro selects the legacy shared-bus acquisition path.
func WithLegacyBaro(e *baro.LegacyEstimator) Option {
	return func(t *Task) { t.legacy = e }
}

// WithModernBaro selects the newer two-phase acquisition path.
func WithModernBaro(e *baro.ModernEstimator) Option {
	return func(t *Task) { t.modern = e }
}

// WithMagnetometer enables the 25th-tick magnetometer sub-rate.
func WithMagnetometer(m sensors.Magnetometer) Option {
	return func(t *Task) { t.mag = m }
}

func New(p Profile, adc sensors.ADC, scaler *calibration.Scaler, st state.AcquisitionState, filter ahrs.Filter, flags *state.Flags, opts ...Option) *Task {
	t := &Task{
		period: p.TickPeriod,
		dt:     p.TickPeriod.Seconds(),
		adc:    adc,
		scaler: scaler,
		st:     st,
		filter: filter,
		flags:  flags,
	}
	for _, opt := range opts {
		opt(t)
	}
	// Prime the pipeline so the first tick has a conversion to read.
	adc.StartConversion()
	return t
}

// Tick executes one acquisition cycle. It returns false once the task
// has terminated itself; termination is permanent for the run.
func (t *Task) Tick() bool {
	if t.terminated {
		return false
	}
	// Simulation mode hands the hardware to a host-side simulator.
	// Checked before any hardware access; the stop is one-shot.
	if t.flags.Simulation.Load() {
		t.terminated = true
		return false
	}

	// Read the previous conversion, then immediately start the next
	// one. The order is mandatory: reversing it would mix channels
	// from two different conversions into one sample.
	raw := state.RawSample{
		AccX:     t.adc.Channel(sensors.ChanAccX),
		AccY:     t.adc.Channel(sensors.ChanAccY),
		AccZ:     t.adc.Channel(sensors.ChanAccZ),
		GyroX:    t.adc.Channel(sensors.ChanGyroX),
		GyroY:    t.adc.Channel(sensors.ChanGyroY),
		GyroZ:    t.adc.Channel(sensors.ChanGyroZ),
		GyroVRef: t.adc.Channel(sensors.ChanGyroRef),
	}
	battery := t.adc.Channel(sensors.ChanBattery)
	t.adc.StartConversion()

	t.st.SetRaw(raw)
	imu := t.scaler.Scale(raw)
	t.st.SetIMU(imu)
	t.filter.Update(t.dt, imu)

	t.counter++
	if t.counter >= counterReset {
		t.counter = 0
	}

	if t.legacy != nil {
		t.legacy.Accumulate(t.dt)
	}

	if t.counter%lowRateDivider == 0 {
		t.st.SetBatteryVoltage(float64(battery) * batteryVoltsPerCount)
		if t.modern != nil {
			t.modern.Step()
		}
	} else if t.legacy != nil {
		t.legacy.Update()
	}

	if t.mag != nil && t.counter%magDivider == 0 {
		if m, err := t.mag.Read(); err != nil {
			log.Printf("acquisition: magnetometer read: %v", err)
		} else {
			t.st.SetMagnetometer(m)
		}
	}
	return true
}

// Counter exposes the tick counter for inspection.
func (t *Task) Counter() int { return t.counter }

// Run drives Tick at the profile's fixed period until the context is
// cancelled or simulation mode terminates the task.
func (t *Task) Run(ctx context.Context) {
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	log.Printf("acquisition: task running at %v per tick", t.period)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.Tick() {
				log.Println("acquisition: simulation mode, task terminated")
				return
			}
		}
	}
}
