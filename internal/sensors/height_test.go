package sensors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPressureToHeightAtSeaLevel(t *testing.T) {
	require.InDelta(t, 0.0, PressureToHeight(101325, 15), 1e-9)
}

func TestPressureToHeightStandardAtmosphere(t *testing.T) {
	// ~1000 hPa at 15 °C is roughly 110 m in the standard atmosphere.
	h := PressureToHeight(100000, 15)
	require.InDelta(t, 110.0, h, 2.0)
}

func TestPressureToHeightMonotonic(t *testing.T) {
	prev := PressureToHeight(102000, 15)
	for p := 101000.0; p >= 90000; p -= 1000 {
		h := PressureToHeight(p, 15)
		require.Greater(t, h, prev, "height must rise as pressure falls")
		prev = h
	}
}

func TestPressureToHeightRejectsNonPositivePressure(t *testing.T) {
	require.Zero(t, PressureToHeight(0, 15))
	require.Zero(t, PressureToHeight(-10, 15))
}
