package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/duvitech-llc/gluonpilot/internal/app"
	"github.com/duvitech-llc/gluonpilot/internal/config"
)

func main() {
	configPath := flag.String("config", "./gluonpilot.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting gluonpilot sensor front end")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := app.RunFrontEnd(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
