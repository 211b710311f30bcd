package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duvitech-llc/gluonpilot/internal/state"
)

func testConfig(model GyroModel) Config {
	return Config{
		AccXNeutral:  32768,
		AccYNeutral:  32768,
		AccZNeutral:  32768,
		GyroXNeutral: 32768,
		GyroYNeutral: 32768,
		GyroZNeutral: 32768,
		Model:        model,
	}
}

func TestScaleIsPure(t *testing.T) {
	s := NewScaler(testConfig(GyroIDG500))
	raw := state.RawSample{
		AccX: 30000, AccY: 33000, AccZ: 26168,
		GyroX: 32000, GyroY: 33500, GyroZ: 32768,
	}
	first := s.Scale(raw)
	second := s.Scale(raw)
	require.Equal(t, first, second, "identical input must give bit-identical output")
}

func TestScaleFormula(t *testing.T) {
	cfg := testConfig(GyroIDG500)
	s := NewScaler(cfg)

	raw := state.RawSample{
		AccX: 39368, AccY: 26168, AccZ: 32768,
		GyroX: 33768, GyroY: 31768, GyroZ: 34768,
	}
	got := s.Scale(raw)

	// invertX is -1, so the X/Y denominators collapse to +6600.
	require.Equal(t, (39368.0-32768.0)/6600.0, got.AccX)
	require.Equal(t, (26168.0-32768.0)/6600.0, got.AccY)
	require.Equal(t, 0.0, got.AccZ)

	require.Equal(t, 1000.0*(0.02518315*math.Pi/180.0), got.P)
	require.Equal(t, -1000.0*(0.02538315*math.Pi/180.0), got.Q)
	require.Equal(t, 2000.0*(-0.02538315*math.Pi/180.0)*2.0, got.R)
}

func TestGravityMagnitudeIsOne(t *testing.T) {
	cfg := testConfig(GyroADXRS613)
	s := NewScaler(cfg)

	// One g on the Z axis is 6600 counts below neutral (inverted axis).
	raw := state.RawSample{AccX: 32768, AccY: 32768, AccZ: 32768 - 6600}
	got := s.Scale(raw)
	require.InDelta(t, 1.0, math.Abs(got.AccZ), 1e-12)
}

func TestZGyroScaleSelectedByModel(t *testing.T) {
	testCases := []struct {
		name  string
		model GyroModel
		want  float64
	}{
		{name: "idg500", model: GyroIDG500, want: (-0.02538315 * math.Pi / 180.0) * 2.0},
		{name: "adxrs613", model: GyroADXRS613, want: 0.0062286 * math.Pi / 180.0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewScaler(testConfig(tc.model))
			require.Equal(t, tc.want, s.ZGyroScale())
		})
	}
}
