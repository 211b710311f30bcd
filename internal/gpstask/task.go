// Package gpstask runs the event-driven GPS fix loop: staleness
// detection with bounded latency, fallback speed substitution, the
// post-processing hook cadence and the lock indicator policy.
package gpstask

import (
	"context"
	"log"
	"time"

	"github.com/duvitech-llc/gluonpilot/internal/gps"
	"github.com/duvitech-llc/gluonpilot/internal/indicator"
	"github.com/duvitech-llc/gluonpilot/internal/state"
)

// staleTimeout bounds the detection latency for a silent receiver: if
// no complete sentence arrives within it, the fix is declared Empty.
const staleTimeout = 205 * time.Millisecond

// fallbackSatThreshold is the satellites-in-view count below which the
// reported speed is unreliable.
const fallbackSatThreshold = 4

// Task owns the GPS partition of the physical state.
type Task struct {
	drv   gps.Driver
	st    state.GpsState
	flags *state.Flags
	ind   indicator.Indicator

	// hook is the post-processing (scripting) entry point, invoked
	// every other cycle. May be nil.
	hook func()

	cruisingSpeed float64

	// Injectable for deterministic tests.
	sleep func(time.Duration)
	after func(time.Duration) <-chan time.Time
}

func New(drv gps.Driver, st state.GpsState, flags *state.Flags, ind indicator.Indicator, hook func(), cruisingSpeed float64) *Task {
	return &Task{
		drv:           drv,
		st:            st,
		flags:         flags,
		ind:           ind,
		hook:          hook,
		cruisingSpeed: cruisingSpeed,
		sleep:         time.Sleep,
		after:         time.After,
	}
}

// Startup opens the port and waits for the receiver to start emitting
// valid frames before configuring its output. Some old receivers need
// over two seconds after power-on.
func (t *Task) Startup(cfg gps.Config) error {
	t.st.SetFix(state.GpsFix{Status: state.StatusEmpty})

	if err := t.drv.OpenPort(cfg); err != nil {
		return err
	}
	if !waitReady(t.drv.ValidFramesReceiving, t.sleep) {
		log.Println("gps: no valid frames after startup poll, configuring anyway")
	}
	if err := t.drv.ConfigOutput(); err != nil {
		return err
	}
	// Let the receiver apply the new sentence set.
	t.sleep(100 * time.Millisecond)
	log.Println("gps: fix task initialized")
	return nil
}

// waitReady polls ready with exponentially increasing delays, bounded
// by the schedule 10,20,...,1000 ms (≈2 s total), until it reports true
// or the schedule is exhausted.
func waitReady(ready func() bool, sleep func(time.Duration)) bool {
	for d := 10 * time.Millisecond; d <= time.Second; d *= 2 {
		if ready() {
			return true
		}
		sleep(d)
	}
	return ready()
}

// Cycle waits for one fix-ready signal or the staleness timeout, then
// applies the fallback-speed, hook and indicator policies.
func (t *Task) Cycle() {
	fix := t.st.Fix()

	select {
	case <-t.drv.FixReady():
		t.drv.UpdateInfo(&fix)
		fix.Sequence++
	case <-t.after(staleTimeout):
		// Receiver went quiet: total signal loss is a state, not an
		// error, and recovers on its own once sentences resume.
		fix.Status = state.StatusEmpty
		fix.SatellitesInView = 0
		fix.Sequence = 0
		t.ind.Off()
	}

	// Without lock the reported speed is garbage, but the attitude
	// filter still needs a usable airspeed while flying. Substitute
	// the configured cruising speed.
	if fix.SatellitesInView < fallbackSatThreshold && t.flags.Airborne.Load() {
		fix.SpeedMS = t.cruisingSpeed
	}

	t.st.SetFix(fix)

	// The fix-ready signal fires for both RMC and GGA, so the hook
	// runs every other cycle to see one complete epoch.
	if fix.Sequence%2 == 0 && t.hook != nil {
		t.hook()
	}

	t.applyIndicator(fix)
}

// applyIndicator blinks the indicator off for three cycle positions out
// of every six while the fix is solid, holds it on while any fix data
// is present, and keeps it off when the receiver is stale.
func (t *Task) applyIndicator(fix state.GpsFix) {
	seq := fix.Sequence
	blinkWindow := seq%6 == 0 || (seq+1)%6 == 0 || (seq+2)%6 == 0
	switch {
	case blinkWindow && fix.Status == state.StatusActive && fix.SatellitesInView > 5:
		t.ind.Off()
	case fix.Status != state.StatusEmpty:
		t.ind.On()
	default:
		t.ind.Off()
	}
}

// Run executes cycles until the context is cancelled. Each cycle
// suspends for at most the staleness timeout.
func (t *Task) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			t.Cycle()
		}
	}
}
