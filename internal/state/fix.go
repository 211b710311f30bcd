package state

import "sync/atomic"

// GpsStatus is the receiver lock state.
type GpsStatus int

const (
	// StatusEmpty means no sentence has arrived within the staleness
	// window. Downstream consumers must treat position data as unusable.
	StatusEmpty GpsStatus = iota
	// StatusVoid means sentences arrive but the receiver reports no
	// valid position solution.
	StatusVoid
	// StatusActive means the receiver reports a valid position solution.
	StatusActive
)

func (s GpsStatus) String() string {
	switch s {
	case StatusVoid:
		return "void"
	case StatusActive:
		return "active"
	default:
		return "empty"
	}
}

// GpsFix is the GPS partition of the physical state. Written only by
// the GPS fix task.
type GpsFix struct {
	Status           GpsStatus `json:"status"`
	LatitudeRad      float64   `json:"lat_rad"`
	LongitudeRad     float64   `json:"lon_rad"`
	SpeedMS          float64   `json:"speed_ms"`
	SatellitesInView int       `json:"satellites"`
	// Sequence counts consecutive fix cycles; it resets to zero when
	// the receiver goes stale.
	Sequence int `json:"sequence"`
}

// Flags are the process-wide control flags read by both tasks.
type Flags struct {
	// Simulation switches the acquisition task off permanently so a
	// host-side simulator can drive the state instead of hardware.
	Simulation atomic.Bool
	// Airborne is set by the navigation layer once the vehicle is
	// flying; it gates the GPS fallback-speed substitution.
	Airborne atomic.Bool
}
