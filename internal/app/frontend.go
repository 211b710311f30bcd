package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"periph.io/x/host/v3"

	"github.com/duvitech-llc/gluonpilot/internal/acquisition"
	"github.com/duvitech-llc/gluonpilot/internal/ahrs"
	"github.com/duvitech-llc/gluonpilot/internal/baro"
	"github.com/duvitech-llc/gluonpilot/internal/bus"
	"github.com/duvitech-llc/gluonpilot/internal/calibration"
	"github.com/duvitech-llc/gluonpilot/internal/config"
	"github.com/duvitech-llc/gluonpilot/internal/gps"
	"github.com/duvitech-llc/gluonpilot/internal/gpstask"
	"github.com/duvitech-llc/gluonpilot/internal/indicator"
	"github.com/duvitech-llc/gluonpilot/internal/sensors"
	"github.com/duvitech-llc/gluonpilot/internal/state"
)

// RunFrontEnd is the composition root: it builds the drivers for the
// detected hardware generation, starts both tasks and publishes the
// physical-state snapshot over MQTT until the context is cancelled.
func RunFrontEnd(ctx context.Context) error {
	cfg := config.Get()

	log.Printf("front end starting: hardware %s, airframe %s", cfg.HardwareGeneration, cfg.Airframe)

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}

	st := state.NewPhysical()
	flags := &state.Flags{}
	flags.Simulation.Store(cfg.SimulationMode)

	adc, err := sensors.OpenMCP3208(cfg.ADCSPIDevice)
	if err != nil {
		return err
	}

	model := calibration.GyroADXRS613
	if cfg.HardwareGeneration.IDG500Gyro() {
		model = calibration.GyroIDG500
	}
	scaler := calibration.NewScaler(calibration.Config{
		AccXNeutral:  cfg.AccXNeutral,
		AccYNeutral:  cfg.AccYNeutral,
		AccZNeutral:  cfg.AccZNeutral,
		GyroXNeutral: cfg.GyroXNeutral,
		GyroYNeutral: cfg.GyroYNeutral,
		GyroZNeutral: cfg.GyroZNeutral,
		Model:        model,
	})

	filter := ahrs.NewComplementary()

	profile := acquisition.FixedWingProfile
	if cfg.Airframe == "quad" {
		profile = acquisition.QuadProfile
	}

	var opts []acquisition.Option
	if cfg.HardwareGeneration.LegacyBaro() {
		drv, err := sensors.OpenSCP1000(cfg.BaroSPIDevice, cfg.BaroDrdyPin)
		if err != nil {
			return err
		}
		// The SPI bus is shared with the dataflash logger, which runs
		// in its own task and acquires the same arbiter.
		arb := bus.NewArbiter()
		opts = append(opts, acquisition.WithLegacyBaro(
			baro.NewLegacyEstimator(drv, arb, sensors.PressureToHeight, st, st)))
	} else {
		drv, err := sensors.OpenBMP085(cfg.BaroI2CBus)
		if err != nil {
			return err
		}
		opts = append(opts, acquisition.WithModernBaro(
			baro.NewModernEstimator(drv, sensors.PressureToHeight, st)))
	}
	if cfg.MagnetometerEnabled {
		mag, err := sensors.OpenHMC5843(cfg.MagI2CBus)
		if err != nil {
			return err
		}
		opts = append(opts, acquisition.WithMagnetometer(mag))
	}

	var ind indicator.Indicator = indicator.Nop{}
	if cfg.IndicatorPin != "" {
		led, err := indicator.OpenLED(cfg.IndicatorPin)
		if err != nil {
			log.Printf("indicator unavailable, continuing without: %v", err)
		} else {
			ind = led
		}
	}

	mqttOpts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDFrontEnd)
	client := mqtt.NewClient(mqttOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	// The post-processing hook pushes the fresh GPS partition out on
	// every other fix cycle, event-driven rather than ticker-driven.
	hook := func() {
		payload, err := json.Marshal(st.Fix())
		if err != nil {
			log.Printf("gps fix marshal error: %v", err)
			return
		}
		client.Publish(cfg.TopicState+"/gps", 0, true, payload)
	}

	acqTask := acquisition.New(profile, adc, scaler, st, filter, flags, opts...)

	receiver := gps.NewReceiver()
	gpsTask := gpstask.New(receiver, st, flags, ind, hook, cfg.CruisingSpeedMS)
	if err := gpsTask.Startup(gps.Config{Port: cfg.GPSSerialPort, Baud: uint(cfg.GPSBaudRate)}); err != nil {
		return err
	}

	go acqTask.Run(ctx)
	go gpsTask.Run(ctx)

	return publishTelemetry(ctx, cfg, client, st, filter)
}

// publishTelemetry pushes the snapshot and pose at the configured
// interval. Publish errors are logged and retried next tick.
func publishTelemetry(ctx context.Context, cfg *config.Config, client mqtt.Client, st *state.Physical, filter ahrs.Filter) error {
	ticker := time.NewTicker(time.Duration(cfg.TelemetryIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		snap := st.Snapshot()
		if payload, err := json.Marshal(snap); err != nil {
			log.Printf("snapshot marshal error: %v", err)
		} else if token := client.Publish(cfg.TopicState, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (%s): %v", cfg.TopicState, token.Error())
		}

		if payload, err := json.Marshal(filter.Pose()); err != nil {
			log.Printf("pose marshal error: %v", err)
		} else if token := client.Publish(cfg.TopicPose, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (%s): %v", cfg.TopicPose, token.Error())
		}
	}
}
