package ahrs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duvitech-llc/gluonpilot/internal/state"
)

const dt = 0.004 // 250 Hz

func TestLevelRestConvergesToZeroTilt(t *testing.T) {
	f := NewComplementary()
	// Start from a disturbed attitude; gravity straight down the Z axis
	// must pull roll and pitch back to level.
	f.pose = Pose{Roll: 0.3, Pitch: -0.2}

	for i := 0; i < 5000; i++ {
		f.Update(dt, state.IMUSample{AccZ: 1.0})
	}
	p := f.Pose()
	require.InDelta(t, 0.0, p.Roll, 1e-3)
	require.InDelta(t, 0.0, p.Pitch, 1e-3)
}

func TestGyroIntegrationDominatesShortTerm(t *testing.T) {
	f := NewComplementary()
	// 100 ms of 0.5 rad/s roll rate with gravity still on Z. Pure
	// integration would give 0.05 rad; the accelerometer pulls toward
	// zero, so the estimate comes out somewhat under that.
	for i := 0; i < 25; i++ {
		f.Update(dt, state.IMUSample{AccZ: 1.0, P: 0.5})
	}
	p := f.Pose()
	require.Greater(t, p.Roll, 0.03)
	require.Less(t, p.Roll, 0.05)
}

func TestYawWrapsIntoHalfOpenInterval(t *testing.T) {
	f := NewComplementary()
	// Keep integrating a fast yaw rate well past π.
	for i := 0; i < 2000; i++ {
		f.Update(dt, state.IMUSample{AccZ: 1.0, R: 1.0})
	}
	yaw := f.Pose().Yaw
	require.Greater(t, yaw, -math.Pi)
	require.LessOrEqual(t, yaw, math.Pi)
}

func TestSteadyAccelTiltEstimate(t *testing.T) {
	f := NewComplementary()
	// 45° roll: gravity splits evenly between Y and Z.
	g := math.Sqrt(0.5)
	for i := 0; i < 10000; i++ {
		f.Update(dt, state.IMUSample{AccY: g, AccZ: g})
	}
	require.InDelta(t, math.Pi/4, f.Pose().Roll, 1e-3)
}
