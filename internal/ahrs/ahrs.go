// Package ahrs defines the attitude filter consumed by the acquisition
// task and provides a complementary-filter default implementation.
package ahrs

import (
	"math"
	"sync"

	"github.com/duvitech-llc/gluonpilot/internal/state"
)

// Pose is the estimated attitude in radians.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Filter consumes one scaled IMU sample per acquisition tick.
type Filter interface {
	Update(dt float64, s state.IMUSample)
	Pose() Pose
}

// Complementary integrates the gyro rates and continuously pulls roll
// and pitch toward the accelerometer tilt estimate. Yaw is gyro-only
// until a magnetometer correction exists.
type Complementary struct {
	alpha float64

	mu   sync.RWMutex
	pose Pose
}

func NewComplementary() *Complementary {
	return &Complementary{alpha: 0.98}
}

func (c *Complementary) Update(dt float64, s state.IMUSample) {
	accRoll := math.Atan2(s.AccY, s.AccZ)
	accPitch := math.Atan2(-s.AccX, math.Sqrt(s.AccY*s.AccY+s.AccZ*s.AccZ))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pose.Roll = c.alpha*(c.pose.Roll+s.P*dt) + (1-c.alpha)*accRoll
	c.pose.Pitch = c.alpha*(c.pose.Pitch+s.Q*dt) + (1-c.alpha)*accPitch

	yaw := c.pose.Yaw + s.R*dt
	// Keep yaw in (-π, π].
	for yaw > math.Pi {
		yaw -= 2 * math.Pi
	}
	for yaw <= -math.Pi {
		yaw += 2 * math.Pi
	}
	c.pose.Yaw = yaw
}

func (c *Complementary) Pose() Pose {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pose
}
