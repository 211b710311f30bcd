// Package config loads the KEY=VALUE configuration file and exposes it
// as a process-wide singleton.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Generation identifies the detected hardware revision. It selects the
// barometric sensor generation and the Z-gyro model.
type Generation int

const (
	GenV01J Generation = iota + 1 // SCP1000 baro, ADXRS-613 Z gyro
	GenV01N                       // SCP1000 baro, IDG-500 Z gyro
	GenV01O                       // BMP085 baro, IDG-500 Z gyro
)

func ParseGeneration(s string) (Generation, error) {
	switch strings.ToUpper(s) {
	case "V01J":
		return GenV01J, nil
	case "V01N":
		return GenV01N, nil
	case "V01O":
		return GenV01O, nil
	default:
		return 0, fmt.Errorf("unknown hardware generation %q", s)
	}
}

func (g Generation) String() string {
	switch g {
	case GenV01J:
		return "V01J"
	case GenV01N:
		return "V01N"
	case GenV01O:
		return "V01O"
	default:
		return "unknown"
	}
}

// LegacyBaro reports whether this revision carries the shared-bus
// SCP1000 instead of the dedicated BMP085.
func (g Generation) LegacyBaro() bool { return g < GenV01O }

// IDG500Gyro reports whether this revision carries the IDG-500 Z gyro.
func (g Generation) IDG500Gyro() bool { return g >= GenV01N }

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDFrontEnd string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicState string
	TopicPose  string

	// Hardware profile
	HardwareGeneration  Generation
	Airframe            string // "quad" or "fixedwing"
	MagnetometerEnabled bool
	SimulationMode      bool

	// Sensor neutrals (ADC counts at rest)
	AccXNeutral  float64
	AccYNeutral  float64
	AccZNeutral  float64
	GyroXNeutral float64
	GyroYNeutral float64
	GyroZNeutral float64

	// Control
	CruisingSpeedMS float64

	// Buses and pins
	ADCSPIDevice  string
	BaroSPIDevice string
	BaroDrdyPin   string
	BaroI2CBus    string
	MagI2CBus     string
	IndicatorPin  string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Timing / web
	TelemetryIntervalMS int
	WebServerPort       int
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	parseFloat := func(name string, dst *float64) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		*dst = v
		return nil
	}
	parseBool := func(name string, dst *bool) error {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		*dst = v
		return nil
	}

	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_FRONTEND":
		c.MQTTClientIDFrontEnd = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_STATE":
		c.TopicState = value
	case "TOPIC_POSE":
		c.TopicPose = value

	// Hardware profile
	case "HARDWARE_GENERATION":
		gen, err := ParseGeneration(value)
		if err != nil {
			return err
		}
		c.HardwareGeneration = gen
	case "AIRFRAME":
		if value != "quad" && value != "fixedwing" {
			return fmt.Errorf("AIRFRAME must be quad or fixedwing, got %q", value)
		}
		c.Airframe = value
	case "MAGNETOMETER_ENABLED":
		return parseBool("MAGNETOMETER_ENABLED", &c.MagnetometerEnabled)
	case "SIMULATION_MODE":
		return parseBool("SIMULATION_MODE", &c.SimulationMode)

	// Sensor neutrals
	case "ACC_X_NEUTRAL":
		return parseFloat("ACC_X_NEUTRAL", &c.AccXNeutral)
	case "ACC_Y_NEUTRAL":
		return parseFloat("ACC_Y_NEUTRAL", &c.AccYNeutral)
	case "ACC_Z_NEUTRAL":
		return parseFloat("ACC_Z_NEUTRAL", &c.AccZNeutral)
	case "GYRO_X_NEUTRAL":
		return parseFloat("GYRO_X_NEUTRAL", &c.GyroXNeutral)
	case "GYRO_Y_NEUTRAL":
		return parseFloat("GYRO_Y_NEUTRAL", &c.GyroYNeutral)
	case "GYRO_Z_NEUTRAL":
		return parseFloat("GYRO_Z_NEUTRAL", &c.GyroZNeutral)

	// Control
	case "CRUISING_SPEED_MS":
		return parseFloat("CRUISING_SPEED_MS", &c.CruisingSpeedMS)

	// Buses and pins
	case "ADC_SPI_DEVICE":
		c.ADCSPIDevice = value
	case "BARO_SPI_DEVICE":
		c.BaroSPIDevice = value
	case "BARO_DRDY_PIN":
		c.BaroDrdyPin = value
	case "BARO_I2C_BUS":
		c.BaroI2CBus = value
	case "MAG_I2C_BUS":
		c.MagI2CBus = value
	case "INDICATOR_PIN":
		c.IndicatorPin = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Timing / web
	case "TELEMETRY_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TELEMETRY_INTERVAL %q: %w", value, err)
		}
		c.TelemetryIntervalMS = interval
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.HardwareGeneration == 0 {
		return fmt.Errorf("HARDWARE_GENERATION is required")
	}
	if c.Airframe == "" {
		return fmt.Errorf("AIRFRAME is required")
	}
	if c.ADCSPIDevice == "" {
		return fmt.Errorf("ADC_SPI_DEVICE is required")
	}
	if c.HardwareGeneration.LegacyBaro() {
		if c.BaroSPIDevice == "" || c.BaroDrdyPin == "" {
			return fmt.Errorf("BARO_SPI_DEVICE and BARO_DRDY_PIN are required on %s hardware", c.HardwareGeneration)
		}
	} else if c.BaroI2CBus == "" {
		return fmt.Errorf("BARO_I2C_BUS is required on %s hardware", c.HardwareGeneration)
	}
	if c.MagnetometerEnabled && c.MagI2CBus == "" {
		return fmt.Errorf("MAG_I2C_BUS is required when MAGNETOMETER_ENABLED")
	}
	if c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required")
	}
	if c.GPSBaudRate == 0 {
		return fmt.Errorf("GPS_BAUD_RATE is required")
	}
	if c.CruisingSpeedMS <= 0 {
		return fmt.Errorf("CRUISING_SPEED_MS is required")
	}
	if c.TelemetryIntervalMS == 0 {
		return fmt.Errorf("TELEMETRY_INTERVAL is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Uses
// sync.Once so this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be
// called first, or this returns nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
