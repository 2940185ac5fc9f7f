// detectord - development AI detection backend.
// Answers /api/start_live_camera and /api/stop_live_camera; while started it
// runs a YOLOv8 model over the camera feed and logs detections of the alert classes.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-livecam/internal/config"
	"github.com/teslashibe/go-livecam/internal/log"
	"github.com/teslashibe/go-livecam/pkg/camera"
	"github.com/teslashibe/go-livecam/pkg/detectsvc"
	"github.com/teslashibe/go-livecam/pkg/webcam"
	"github.com/teslashibe/go-livecam/pkg/yolo"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.String("port", "", "Listen port (overrides config)")
	model := flag.String("model", "", "Path to YOLOv8 ONNX model (overrides config)")
	device := flag.String("device", "", "Camera device index or path (overrides config)")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Detector.Port = *port
	}
	if *model != "" {
		cfg.Detector.ModelPath = *model
	}
	if *device != "" {
		cfg.Detector.Device = *device
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	log.Init(cfg.Log.Level)

	if err := run(cfg.Detector); err != nil {
		log.Error("detectord failed", "error", err)
		os.Exit(1)
	}
}

func run(dc config.DetectorConfig) error {
	ycfg := yolo.DefaultConfig()
	ycfg.ModelPath = dc.ModelPath
	ycfg.Classes = dc.Classes
	ycfg.ConfidenceThresh = float32(dc.Confidence)
	ycfg.NMSThresh = float32(dc.NMS)

	detector, err := yolo.New(ycfg)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	defer detector.Close()

	constraints := camera.DefaultConstraints()
	constraints.Device = dc.Device

	threats := detectsvc.NewThreatStore(0)
	worker, err := detectsvc.NewWorker(detectsvc.WorkerConfig{
		Source:      webcam.NewSource(),
		Constraints: constraints,
		Detector:    &yoloAdapter{detector},
		Interval:    dc.Interval,
		Alert:       dc.Alert,
		Threats:     threats,
	})
	if err != nil {
		return err
	}
	runner := detectsvc.NewRunner(worker.Run)
	defer runner.Stop()

	ln, err := net.Listen("tcp", ":"+dc.Port)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("detectord ready", "model", dc.ModelPath, "classes", len(detector.Classes()), "alert", dc.Alert)
	return detectsvc.NewServer(runner, worker.Stats, threats).Serve(ctx, ln)
}

// yoloAdapter adapts yolo.Detector to detectsvc.Detector.
type yoloAdapter struct {
	d *yolo.Detector
}

func (a *yoloAdapter) Detect(jpeg []byte) ([]detectsvc.Detection, error) {
	objs, err := a.d.Detect(jpeg)
	if err != nil {
		return nil, err
	}
	out := make([]detectsvc.Detection, len(objs))
	for i, o := range objs {
		out[i] = detectsvc.Detection{
			Class:      o.ClassName,
			Confidence: o.Confidence,
			X:          o.X,
			Y:          o.Y,
			W:          o.W,
			H:          o.H,
		}
	}
	return out, nil
}
