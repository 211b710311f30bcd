package main

import (
	"flag"
	"log"

	"github.com/duvitech-llc/gluonpilot/internal/app"
	"github.com/duvitech-llc/gluonpilot/internal/config"
)

func main() {
	configPath := flag.String("config", "./gluonpilot.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting gluonpilot console (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
