package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const validConfig = `# flight control front-end configuration
MQTT_BROKER=tcp://localhost:1883
MQTT_CLIENT_ID_FRONTEND=fcs
TOPIC_STATE=gluonpilot/state
TOPIC_POSE=gluonpilot/pose

HARDWARE_GENERATION=V01O
AIRFRAME=quad
MAGNETOMETER_ENABLED=true
SIMULATION_MODE=false

ACC_X_NEUTRAL=32768
ACC_Y_NEUTRAL=32768
ACC_Z_NEUTRAL=39368
GYRO_X_NEUTRAL=32768
GYRO_Y_NEUTRAL=32768
GYRO_Z_NEUTRAL=32768

CRUISING_SPEED_MS=14.5

ADC_SPI_DEVICE=/dev/spidev0.0
BARO_I2C_BUS=1
MAG_I2C_BUS=1
INDICATOR_PIN=GPIO22

GPS_SERIAL_PORT=/dev/ttyAMA0
GPS_BAUD_RATE=115200

TELEMETRY_INTERVAL=200
WEB_SERVER_PORT=8080
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gluonpilot.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	require.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	require.Equal(t, GenV01O, cfg.HardwareGeneration)
	require.Equal(t, "quad", cfg.Airframe)
	require.True(t, cfg.MagnetometerEnabled)
	require.False(t, cfg.SimulationMode)
	require.Equal(t, 39368.0, cfg.AccZNeutral)
	require.Equal(t, 14.5, cfg.CruisingSpeedMS)
	require.Equal(t, 115200, cfg.GPSBaudRate)
	require.Equal(t, 200, cfg.TelemetryIntervalMS)
	require.Equal(t, 8080, cfg.WebServerPort)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+"BOGUS_KEY=1\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown config key")
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	_, err := Load(writeConfig(t, "MQTT_BROKER tcp://localhost:1883\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid config line 1")
}

func TestLoadRejectsBadAirframe(t *testing.T) {
	_, err := Load(writeConfig(t, "AIRFRAME=helicopter\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "AIRFRAME must be quad or fixedwing")
}

func TestValidateRequiresLegacyBusOnOldHardware(t *testing.T) {
	// V01N carries the shared-bus sensor, so the SPI device and the
	// data-ready pin must both be configured.
	contents := validConfig
	contents = replaceLine(t, contents, "HARDWARE_GENERATION=V01O", "HARDWARE_GENERATION=V01N")
	_, err := Load(writeConfig(t, contents))
	require.Error(t, err)
	require.Contains(t, err.Error(), "BARO_SPI_DEVICE and BARO_DRDY_PIN are required")

	contents += "BARO_SPI_DEVICE=/dev/spidev0.1\nBARO_DRDY_PIN=GPIO17\n"
	cfg, err := Load(writeConfig(t, contents))
	require.NoError(t, err)
	require.True(t, cfg.HardwareGeneration.LegacyBaro())
}

func TestValidateRequiresI2CBusOnNewHardware(t *testing.T) {
	contents := replaceLine(t, validConfig, "BARO_I2C_BUS=1", "")
	_, err := Load(writeConfig(t, contents))
	require.Error(t, err)
	require.Contains(t, err.Error(), "BARO_I2C_BUS is required")
}

func TestValidateRequiresMagBusWhenEnabled(t *testing.T) {
	contents := replaceLine(t, validConfig, "MAG_I2C_BUS=1", "")
	_, err := Load(writeConfig(t, contents))
	require.Error(t, err)
	require.Contains(t, err.Error(), "MAG_I2C_BUS is required")
}

func TestParseGeneration(t *testing.T) {
	testCases := []struct {
		in      string
		want    Generation
		wantErr bool
	}{
		{in: "V01J", want: GenV01J},
		{in: "v01n", want: GenV01N},
		{in: "V01O", want: GenV01O},
		{in: "V02A", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := ParseGeneration(tc.in)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestGenerationSelectsHardware(t *testing.T) {
	require.True(t, GenV01J.LegacyBaro())
	require.True(t, GenV01N.LegacyBaro())
	require.False(t, GenV01O.LegacyBaro())

	require.False(t, GenV01J.IDG500Gyro())
	require.True(t, GenV01N.IDG500Gyro())
	require.True(t, GenV01O.IDG500Gyro())
}

func replaceLine(t *testing.T, contents, old, new string) string {
	t.Helper()
	require.Contains(t, contents, old)
	return strings.Replace(contents, old, new, 1)
}
