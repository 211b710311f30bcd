package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/duvitech-llc/gluonpilot/internal/ahrs"
	"github.com/duvitech-llc/gluonpilot/internal/config"
	"github.com/duvitech-llc/gluonpilot/internal/state"
)

// RunConsole subscribes to the telemetry topics and prints live state
// lines until interrupted.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	stateToken := client.Subscribe(cfg.TopicState, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s state.Snapshot
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: snapshot unmarshal error: %v", err)
			return
		}
		fmt.Printf(
			"[IMU ] acc=(%6.3f %6.3f %6.3f)g  pqr=(%7.4f %7.4f %7.4f)rad/s\n",
			s.IMU.AccX, s.IMU.AccY, s.IMU.AccZ, s.IMU.P, s.IMU.Q, s.IMU.R,
		)
		fmt.Printf(
			"[BARO] p=%8.1fPa t=%5.1fC h=%7.1fm vs=%6.2fm/s batt=%4.1fV\n",
			s.Barometric.Pressure, s.Barometric.Temperature,
			s.Barometric.PressureHeight, s.Barometric.VerticalSpeed,
			s.Barometric.BatteryVoltage,
		)
		fmt.Printf(
			"[GPS ] %s sats=%d speed=%5.1fm/s lat=%9.6f lon=%9.6f seq=%d\n",
			s.Gps.Status, s.Gps.SatellitesInView, s.Gps.SpeedMS,
			s.Gps.LatitudeRad, s.Gps.LongitudeRad, s.Gps.Sequence,
		)
	})
	poseToken := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p ahrs.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("console: pose unmarshal error: %v", err)
			return
		}
		fmt.Printf("[POSE] roll=%7.4f pitch=%7.4f yaw=%7.4f\n", p.Roll, p.Pitch, p.Yaw)
	})
	for _, token := range []mqtt.Token{stateToken, poseToken} {
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
	}
	log.Printf("console: subscribed to %s and %s", cfg.TopicState, cfg.TopicPose)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	client.Disconnect(250)
	return nil
}
