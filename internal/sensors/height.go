package sensors

import "math"

const (
	seaLevelPressurePa = 101325.0
	// Inverse exponent of the pressure ratio in the hypsometric
	// formula (R·L/g·M for the standard atmosphere).
	baroExponent = 1.0 / 5.257
	lapseRate    = 0.0065 // K/m
)

// PressureToHeight converts a pressure (Pa) and ambient temperature
// (°C) into a height above sea level (m) using the hypsometric
// formula. The absolute value drifts with the weather; consumers only
// rely on short-term deltas.
func PressureToHeight(pressure, temperature float64) float64 {
	if pressure <= 0 {
		return 0
	}
	ratio := math.Pow(seaLevelPressurePa/pressure, baroExponent)
	return (ratio - 1.0) * (temperature + 273.15) / lapseRate
}
