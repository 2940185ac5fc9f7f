// livecam - local camera preview with remote AI detection control.
// Serves a dashboard with start/stop controls; each toggles the local camera
// and tells the detection backend to start or stop analysing the live feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-livecam/internal/config"
	"github.com/teslashibe/go-livecam/internal/log"
	"github.com/teslashibe/go-livecam/pkg/station"
	"github.com/teslashibe/go-livecam/pkg/webcam"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.String("port", "", "Dashboard port (overrides config)")
	backend := flag.String("backend", "", "Detection backend base URL (overrides config)")
	device := flag.String("device", "", "Camera device index or path (overrides config)")
	preset := flag.String("preset", "", "Camera preset: default, low, 720p, 1080p")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *backend != "" {
		cfg.Backend.URL = *backend
	}
	if *device != "" {
		cfg.Camera.Device = *device
	}
	if *preset != "" {
		cfg.Camera.Preset = *preset
	}
	if *debug {
		cfg.Log.Level = "debug"
	}

	log.Init(cfg.Log.Level)

	app, err := station.New(*cfg, webcam.NewSource())
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if err := app.Init(); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
		app.Shutdown()
		os.Exit(1)
	}
}
