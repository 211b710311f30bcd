// Package state holds the physical-state snapshot shared between the
// sensor-acquisition task and the GPS fix task. The field set is
// partitioned by writer: the acquisition task owns the IMU/barometric
// partition, the GPS task owns the fix partition. Each partition has
// its own lock, so the two tasks never contend with each other.
package state

import "sync"

// RawSample holds one ADC conversion's channel readings.
type RawSample struct {
	AccX, AccY, AccZ    int
	GyroX, GyroY, GyroZ int
	GyroVRef            int
}

// IMUSample is the scaled inertial measurement: accelerations in g,
// angular rates p/q/r in rad/s.
type IMUSample struct {
	AccX float64 `json:"acc_x"`
	AccY float64 `json:"acc_y"`
	AccZ float64 `json:"acc_z"`
	P    float64 `json:"p"`
	Q    float64 `json:"q"`
	R    float64 `json:"r"`
}

// MagSample is a raw magnetometer reading.
type MagSample struct {
	X int16 `json:"mx"`
	Y int16 `json:"my"`
	Z int16 `json:"mz"`
}

// Barometric holds the low-rate environmental measurements.
type Barometric struct {
	Pressure       float64 `json:"pressure_pa"`
	Temperature    float64 `json:"temp_c"`
	PressureHeight float64 `json:"pressure_height_m"`
	VerticalSpeed  float64 `json:"vertical_speed_ms"`
	BatteryVoltage float64 `json:"battery_v"`
}

// Physical is the process-wide physical-state store. It is created
// once at startup and lives until power-off.
type Physical struct {
	mu   sync.RWMutex
	raw  RawSample
	imu  IMUSample
	baro Barometric
	mag  MagSample

	gpsMu sync.RWMutex
	gps   GpsFix
}

func NewPhysical() *Physical {
	return &Physical{}
}

// AcquisitionState is the mutation surface handed to the sensor
// acquisition task. The GPS task never sees it.
type AcquisitionState interface {
	SetRaw(RawSample)
	SetIMU(IMUSample)
	SetPressure(float64)
	SetTemperature(float64)
	SetPressureHeight(float64)
	SetVerticalSpeed(float64)
	SetBatteryVoltage(float64)
	SetMagnetometer(MagSample)
}

// GpsState is the mutation surface handed to the GPS fix task. The
// acquisition task never sees it.
type GpsState interface {
	Fix() GpsFix
	SetFix(GpsFix)
}

func (p *Physical) SetRaw(r RawSample) {
	p.mu.Lock()
	p.raw = r
	p.mu.Unlock()
}

func (p *Physical) SetIMU(s IMUSample) {
	p.mu.Lock()
	p.imu = s
	p.mu.Unlock()
}

func (p *Physical) SetPressure(pa float64) {
	p.mu.Lock()
	p.baro.Pressure = pa
	p.mu.Unlock()
}

func (p *Physical) SetTemperature(c float64) {
	p.mu.Lock()
	p.baro.Temperature = c
	p.mu.Unlock()
}

func (p *Physical) SetPressureHeight(h float64) {
	p.mu.Lock()
	p.baro.PressureHeight = h
	p.mu.Unlock()
}

func (p *Physical) SetVerticalSpeed(v float64) {
	p.mu.Lock()
	p.baro.VerticalSpeed = v
	p.mu.Unlock()
}

func (p *Physical) SetBatteryVoltage(v float64) {
	p.mu.Lock()
	p.baro.BatteryVoltage = v
	p.mu.Unlock()
}

func (p *Physical) SetMagnetometer(m MagSample) {
	p.mu.Lock()
	p.mag = m
	p.mu.Unlock()
}

func (p *Physical) Fix() GpsFix {
	p.gpsMu.RLock()
	defer p.gpsMu.RUnlock()
	return p.gps
}

func (p *Physical) SetFix(f GpsFix) {
	p.gpsMu.Lock()
	p.gps = f
	p.gpsMu.Unlock()
}

// GpsSpeed reads the GPS ground speed. The acquisition task uses it
// for the vertical-speed plausibility clamp.
func (p *Physical) GpsSpeed() float64 {
	p.gpsMu.RLock()
	defer p.gpsMu.RUnlock()
	return p.gps.SpeedMS
}

// IMU returns the current scaled inertial sample.
func (p *Physical) IMU() IMUSample {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.imu
}

// Raw returns the last raw ADC sample.
func (p *Physical) Raw() RawSample {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.raw
}

// Snapshot is the read-only view consumers get of the whole state.
type Snapshot struct {
	IMU          IMUSample  `json:"imu"`
	Barometric   Barometric `json:"baro"`
	Magnetometer MagSample  `json:"mag"`
	Gps          GpsFix     `json:"gps"`
}

// Snapshot copies both partitions into a consistent-enough view for
// telemetry and downstream consumers.
func (p *Physical) Snapshot() Snapshot {
	p.mu.RLock()
	s := Snapshot{IMU: p.imu, Barometric: p.baro, Magnetometer: p.mag}
	p.mu.RUnlock()
	p.gpsMu.RLock()
	s.Gps = p.gps
	p.gpsMu.RUnlock()
	return s
}
