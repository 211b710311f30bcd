// Package sensors is the hardware driver layer: ADC front end, the two
// barometric sensor generations, and the magnetometer.
package sensors

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// ADC is the analog front end sampling the inertial sensors. A
// conversion is started explicitly; Channel returns results of the last
// conversion that was started, never a half-finished one. Reading the
// previous conversion and then starting the next gives the acquisition
// loop its constant one-tick pipeline latency.
type ADC interface {
	Channel(n int) int
	StartConversion()
}

// Channel assignment on the board.
const (
	ChanAccY    = 0
	ChanAccZ    = 1
	ChanBattery = 2
	ChanGyroRef = 3
	ChanGyroX   = 4
	ChanGyroZ   = 5
	ChanAccX    = 6
	ChanGyroY   = 7
)

const (
	mcpChannels = 8
	// Each channel is oversampled and accumulated, extending the
	// converter's native 12 bits to the 16-bit range the calibration
	// constants are expressed in.
	oversample = 16
)

// MCP3208 is a 12-bit 8-channel SPI ADC. StartConversion samples all
// channels into a latch; Channel reads the latch.
type MCP3208 struct {
	conn spi.Conn

	mu      sync.Mutex
	latched [mcpChannels]int
}

// OpenMCP3208 opens the named SPI port and configures the converter.
func OpenMCP3208(dev string) (*MCP3208, error) {
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("adc: spi open %s: %w", dev, err)
	}
	conn, err := port.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("adc: spi connect %s: %w", dev, err)
	}
	return &MCP3208{conn: conn}, nil
}

// StartConversion samples every channel. Transfer errors leave the
// affected channel at its previous value; the acquisition path prefers
// stale data over a fault.
func (a *MCP3208) StartConversion() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for ch := 0; ch < mcpChannels; ch++ {
		sum, ok := 0, true
		for i := 0; i < oversample; i++ {
			v, err := a.sample(ch)
			if err != nil {
				ok = false
				break
			}
			sum += v
		}
		if ok {
			a.latched[ch] = sum
		}
	}
}

// Channel returns the latched reading for channel n.
func (a *MCP3208) Channel(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latched[n%mcpChannels]
}

func (a *MCP3208) sample(ch int) (int, error) {
	// Single-ended conversion: start bit, SGL, then the channel index.
	tx := []byte{0x06 | byte(ch)>>2, byte(ch) << 6, 0x00}
	rx := make([]byte, 3)
	if err := a.conn.Tx(tx, rx); err != nil {
		return 0, fmt.Errorf("adc: channel %d: %w", ch, err)
	}
	return int(rx[1]&0x0F)<<8 | int(rx[2]), nil
}
