// Package gps receives NMEA sentences from the serial GPS and exposes
// the latest parsed fix to the GPS fix task.
package gps

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/duvitech-llc/gluonpilot/internal/state"
)

const knotsToMS = 0.514444

// Config is the serial-port configuration for the receiver.
type Config struct {
	Port string
	Baud uint
}

// Driver is the receiver surface the GPS fix task consumes.
type Driver interface {
	OpenPort(cfg Config) error
	// ConfigOutput selects the sentence set once frames are flowing.
	ConfigOutput() error
	// ValidFramesReceiving reports whether valid sentences arrived
	// recently; used by the startup handshake.
	ValidFramesReceiving() bool
	// UpdateInfo copies the latest parsed fix fields into fix.
	UpdateInfo(fix *state.GpsFix)
	// FixReady is signalled once per complete parsed sentence.
	FixReady() <-chan struct{}
}

// Receiver parses RMC and GGA sentences from the serial port. RMC
// carries validity, position and ground speed; GGA carries the
// satellites-in-view count.
type Receiver struct {
	port  io.ReadWriteCloser
	ready chan struct{}

	mu         sync.Mutex
	latest     state.GpsFix
	lastValid  time.Time
	haveStatus bool
}

func NewReceiver() *Receiver {
	return &Receiver{ready: make(chan struct{}, 1)}
}

func (r *Receiver) OpenPort(cfg Config) error {
	port, err := serial.Open(serial.OpenOptions{
		PortName:        cfg.Port,
		BaudRate:        cfg.Baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return fmt.Errorf("gps: open %s: %w", cfg.Port, err)
	}
	r.port = port
	log.Printf("gps: serial port opened on %s at %d baud", cfg.Port, cfg.Baud)

	go r.readLoop()
	return nil
}

// ConfigOutput restricts the receiver to RMC and GGA at 5 Hz.
func (r *Receiver) ConfigOutput() error {
	for _, body := range []string{
		"PMTK314,0,1,0,1,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0", // RMC + GGA only
		"PMTK220,200", // 5 Hz position updates
	} {
		if _, err := r.port.Write([]byte(framed(body))); err != nil {
			return fmt.Errorf("gps: config output: %w", err)
		}
	}
	return nil
}

// framed wraps an NMEA body with the leading $, checksum and CRLF.
func framed(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", body, sum)
}

func (r *Receiver) ValidFramesReceiving() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.lastValid.IsZero() && time.Since(r.lastValid) < 2*time.Second
}

func (r *Receiver) UpdateInfo(fix *state.GpsFix) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.haveStatus {
		fix.Status = r.latest.Status
	}
	fix.LatitudeRad = r.latest.LatitudeRad
	fix.LongitudeRad = r.latest.LongitudeRad
	fix.SpeedMS = r.latest.SpeedMS
	fix.SatellitesInView = r.latest.SatellitesInView
}

func (r *Receiver) FixReady() <-chan struct{} {
	return r.ready
}

func (r *Receiver) readLoop() {
	reader := bufio.NewReader(r.port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("gps: read error: %v", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}
		sentence, err := nmea.Parse(line)
		if err != nil {
			// Partial sentences are normal during startup and baud
			// changes; skip quietly.
			continue
		}
		if r.apply(sentence) {
			r.signal()
		}
	}
}

// apply folds one parsed sentence into the latest fix. Returns true
// when the sentence was one the fix task cares about.
func (r *Receiver) apply(sentence nmea.Sentence) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		if m.Validity == nmea.ValidRMC {
			r.latest.Status = state.StatusActive
		} else {
			r.latest.Status = state.StatusVoid
		}
		r.haveStatus = true
		r.latest.LatitudeRad = m.Latitude * math.Pi / 180.0
		r.latest.LongitudeRad = m.Longitude * math.Pi / 180.0
		r.latest.SpeedMS = m.Speed * knotsToMS
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		r.latest.SatellitesInView = int(m.NumSatellites)
	default:
		return false
	}
	r.lastValid = time.Now()
	return true
}

// signal raises the fix-ready event without ever blocking the reader.
func (r *Receiver) signal() {
	select {
	case r.ready <- struct{}{}:
	default:
	}
}
