package acquisition

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duvitech-llc/gluonpilot/internal/ahrs"
	"github.com/duvitech-llc/gluonpilot/internal/baro"
	"github.com/duvitech-llc/gluonpilot/internal/bus"
	"github.com/duvitech-llc/gluonpilot/internal/calibration"
	"github.com/duvitech-llc/gluonpilot/internal/state"
)

// fakeADC latches a distinct value per channel at every StartConversion,
// so a test can tell which conversion a reading came from.
type fakeADC struct {
	conversion   int
	latched      [8]int
	channelReads int
}

func adcValue(conversion, channel int) int {
	return conversion*1000 + channel
}

func (a *fakeADC) StartConversion() {
	a.conversion++
	for ch := range a.latched {
		a.latched[ch] = adcValue(a.conversion, ch)
	}
}

func (a *fakeADC) Channel(n int) int {
	a.channelReads++
	return a.latched[n]
}

type nopFilter struct{ updates int }

func (f *nopFilter) Update(dt float64, s state.IMUSample) { f.updates++ }
func (f *nopFilter) Pose() ahrs.Pose                      { return ahrs.Pose{} }

func testScaler() *calibration.Scaler {
	return calibration.NewScaler(calibration.Config{Model: calibration.GyroIDG500})
}

func newTestTask(t *testing.T, adc *fakeADC, st *state.Physical, flags *state.Flags, opts ...Option) *Task {
	t.Helper()
	return New(QuadProfile, adc, testScaler(), st, &nopFilter{}, flags, opts...)
}

func TestTickReadsPreviousConversionThenStartsNext(t *testing.T) {
	adc := &fakeADC{}
	st := state.NewPhysical()
	task := newTestTask(t, adc, st, &state.Flags{})
	require.Equal(t, 1, adc.conversion, "constructor primes the pipeline")

	require.True(t, task.Tick())
	raw := st.Raw()
	require.Equal(t, adcValue(1, 6), raw.AccX, "tick 1 reads the primed conversion")
	require.Equal(t, adcValue(1, 4), raw.GyroX)
	require.Equal(t, 2, adc.conversion, "next conversion started before scaling")

	require.True(t, task.Tick())
	raw = st.Raw()
	require.Equal(t, adcValue(2, 6), raw.AccX, "tick 2 reads the conversion tick 1 started")
	require.Equal(t, 3, adc.conversion)
}

func TestTickNeverTouchesFixPartition(t *testing.T) {
	adc := &fakeADC{}
	st := state.NewPhysical()
	want := state.GpsFix{Status: state.StatusActive, SatellitesInView: 9, Sequence: 42, SpeedMS: 17.5}
	st.SetFix(want)

	task := newTestTask(t, adc, st, &state.Flags{})
	for i := 0; i < 500; i++ {
		require.True(t, task.Tick())
	}
	require.Equal(t, want, st.Fix())
}

func TestSimulationModeTerminatesBeforeHardwareAccess(t *testing.T) {
	adc := &fakeADC{}
	flags := &state.Flags{}
	task := newTestTask(t, adc, state.NewPhysical(), flags)

	flags.Simulation.Store(true)
	require.False(t, task.Tick())
	require.Zero(t, adc.channelReads, "must stop before reading any channel")

	// Termination is one-shot: clearing the flag does not revive it.
	flags.Simulation.Store(false)
	require.False(t, task.Tick())
	require.Zero(t, adc.channelReads)
}

func TestBatteryVoltageRefreshedEveryFiftiethTick(t *testing.T) {
	adc := &fakeADC{}
	st := state.NewPhysical()
	task := newTestTask(t, adc, st, &state.Flags{})

	for i := 0; i < 49; i++ {
		require.True(t, task.Tick())
	}
	require.Zero(t, st.Snapshot().Barometric.BatteryVoltage)

	require.True(t, task.Tick())
	// Tick 50 latches the battery channel of conversion 50.
	want := float64(adcValue(50, 2)) * batteryVoltsPerCount
	require.InDelta(t, want, st.Snapshot().Barometric.BatteryVoltage, 1e-12)
}

type countingMag struct{ reads int }

func (m *countingMag) Read() (state.MagSample, error) {
	m.reads++
	return state.MagSample{X: 1, Y: 2, Z: 3}, nil
}

func TestMagnetometerReadEveryTwentyFifthTick(t *testing.T) {
	adc := &fakeADC{}
	st := state.NewPhysical()
	mag := &countingMag{}
	task := newTestTask(t, adc, st, &state.Flags{}, WithMagnetometer(mag))

	for i := 0; i < 100; i++ {
		require.True(t, task.Tick())
	}
	require.Equal(t, 4, mag.reads)
	require.Equal(t, state.MagSample{X: 1, Y: 2, Z: 3}, st.Snapshot().Magnetometer)
}

type countingModernDriver struct{ steps int }

func (d *countingModernDriver) StartTemperatureConversion() error { return nil }
func (d *countingModernDriver) StartPressureConversion() error    { return nil }

func (d *countingModernDriver) ReadTemperature() (float64, error) {
	d.steps++
	return 20, nil
}

func (d *countingModernDriver) ReadPressure() (float64, error) {
	d.steps++
	return 101000, nil
}

func TestCounterWrapKeepsLowRateCadence(t *testing.T) {
	adc := &fakeADC{}
	st := state.NewPhysical()
	drv := &countingModernDriver{}
	est := baro.NewModernEstimator(drv, func(_, _ float64) float64 { return 0 }, st)
	task := newTestTask(t, adc, st, &state.Flags{}, WithModernBaro(est))

	// 60050 ticks cross the counter reset. Every 50th tick steps the
	// estimator exactly once, with no extra or missing step at the wrap.
	const ticks = counterReset + 50
	for i := 0; i < ticks; i++ {
		require.True(t, task.Tick())
	}
	require.Equal(t, 50, task.Counter())
	require.Equal(t, ticks/50, drv.steps)
}

type alwaysReadyDriver struct {
	reads int
}

func (d *alwaysReadyDriver) DataReady() bool { return true }

func (d *alwaysReadyDriver) ReadSample() (float64, float64, error) {
	d.reads++
	return 101000, 20, nil
}

func TestLegacyPathSkipsTheBatteryTick(t *testing.T) {
	adc := &fakeADC{}
	st := state.NewPhysical()
	drv := &alwaysReadyDriver{}
	est := baro.NewLegacyEstimator(drv, bus.NewArbiter(), func(_, _ float64) float64 { return 0 }, st, st)
	task := newTestTask(t, adc, st, &state.Flags{}, WithLegacyBaro(est))

	for i := 0; i < 100; i++ {
		require.True(t, task.Tick())
	}
	// Ticks 50 and 100 are battery ticks; the other 98 hit the sensor.
	require.Equal(t, 98, drv.reads)
}
