// Package calibration converts raw ADC counts into physical units.
package calibration

import (
	"math"

	"github.com/duvitech-llc/gluonpilot/internal/state"
)

// invertX flips the longitudinal axes when the board is mounted with
// front and back reversed.
const invertX = -1.0

// accCountsPerG is the accelerometer sensitivity of the analog front
// end, in ADC counts per g.
const accCountsPerG = 6600.0

// GyroModel selects the Z-axis gyroscope fitted to the board. The two
// parts have different sensitivities and opposite polarity.
type GyroModel int

const (
	// GyroADXRS613 is the Z gyro on boards before V01N.
	GyroADXRS613 GyroModel = iota
	// GyroIDG500 is the Z gyro on V01N and later boards.
	GyroIDG500
)

// Config holds the per-axis neutral offsets measured at rest, plus the
// detected Z-gyro model. Immutable for the task's operating lifetime.
type Config struct {
	AccXNeutral, AccYNeutral, AccZNeutral    float64
	GyroXNeutral, GyroYNeutral, GyroZNeutral float64
	Model                                    GyroModel
}

// Scaler is a pure raw-to-physical transform. Calling Scale twice with
// identical input yields bit-identical output.
type Scaler struct {
	cfg        Config
	zGyroScale float64
}

func NewScaler(cfg Config) *Scaler {
	s := &Scaler{cfg: cfg}
	if cfg.Model == GyroIDG500 {
		s.zGyroScale = (-0.02538315 * math.Pi / 180.0) * 2.0
	} else {
		s.zGyroScale = 0.0062286 * math.Pi / 180.0
	}
	return s
}

// Scale converts one raw sample. Accelerations are expressed in g so
// the gravity vector has magnitude 1, which cancels the gravity
// constant out of the attitude filter. Rates are rad/s.
func (s *Scaler) Scale(raw state.RawSample) state.IMUSample {
	return state.IMUSample{
		AccX: (float64(raw.AccX) - s.cfg.AccXNeutral) / (-accCountsPerG * invertX),
		AccY: (float64(raw.AccY) - s.cfg.AccYNeutral) / (-accCountsPerG * invertX),
		AccZ: (float64(raw.AccZ) - s.cfg.AccZNeutral) / -accCountsPerG,

		P: (float64(raw.GyroX) - s.cfg.GyroXNeutral) * (-0.02518315 * math.Pi / 180.0 * invertX),
		Q: (float64(raw.GyroY) - s.cfg.GyroYNeutral) * (-0.02538315 * math.Pi / 180.0 * invertX),
		R: (float64(raw.GyroZ) - s.cfg.GyroZNeutral) * s.zGyroScale,
	}
}

// ZGyroScale exposes the selected Z-axis scale constant.
func (s *Scaler) ZGyroScale() float64 { return s.zGyroScale }
