package detectsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-livecam/internal/log"
	"github.com/teslashibe/go-livecam/pkg/camera"
)

// Detection is one object found in a frame.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
}

// Detector finds objects in a JPEG frame.
type Detector interface {
	Detect(jpeg []byte) ([]Detection, error)
}

// Stats summarises worker activity.
type Stats struct {
	Frames      uint64    `json:"frames"`
	Detections  uint64    `json:"detections"`
	Alerts      uint64    `json:"alerts"`
	LastAlert   string    `json:"last_alert,omitempty"`
	LastAlertAt time.Time `json:"last_alert_at"`
}

// Worker reads frames from a capture source and runs them through a detector.
type Worker struct {
	source      camera.Source
	constraints camera.Constraints
	detector    Detector
	interval    time.Duration
	alert       map[string]bool
	threats     *ThreatStore
	cooldown    time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	stats    Stats
	recorded map[string]time.Time // last stored event per class
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	Source      camera.Source
	Constraints camera.Constraints
	Detector    Detector
	Interval    time.Duration // between analysed frames; default 200ms
	Alert       []string      // classes logged as alerts; empty means every class

	// Threats stores alert-class detections with a snapshot. Optional.
	Threats *ThreatStore
	// Cooldown is the minimum gap between stored events of one class; default 5s.
	Cooldown time.Duration
}

// NewWorker creates a worker.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Source == nil {
		return nil, errors.New("detectsvc: capture source required")
	}
	if cfg.Detector == nil {
		return nil, errors.New("detectsvc: detector required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 200 * time.Millisecond
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Second
	}
	alert := make(map[string]bool, len(cfg.Alert))
	for _, c := range cfg.Alert {
		alert[strings.ToLower(c)] = true
	}
	return &Worker{
		source:      cfg.Source,
		constraints: cfg.Constraints.VideoOnly(),
		detector:    cfg.Detector,
		interval:    cfg.Interval,
		alert:       alert,
		threats:     cfg.Threats,
		cooldown:    cfg.Cooldown,
		logger:      log.Component("detector"),
		recorded:    make(map[string]time.Time),
	}, nil
}

// Run opens the camera and analyses frames until ctx is cancelled.
// The camera is released on return.
func (w *Worker) Run(ctx context.Context) error {
	stream, err := w.source.Capture(ctx, w.constraints)
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer camera.StopAll(stream)

	_, reader, ok := camera.VideoTrack(stream)
	if !ok {
		return errors.New("capture returned no readable video track")
	}
	w.logger.Info("live detection running", "device", w.constraints.Device, "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var lastErr time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			frame, err := reader.ReadJPEG()
			if errors.Is(err, camera.ErrTrackStopped) {
				return err
			}
			if err != nil {
				if time.Since(lastErr) > 5*time.Second {
					w.logger.Warn("frame read failed", "error", err)
					lastErr = time.Now()
				}
				continue
			}
			w.analyse(frame)
		}
	}
}

func (w *Worker) analyse(frame []byte) {
	dets, err := w.detector.Detect(frame)
	if err != nil {
		w.logger.Warn("detection failed", "error", err)
		return
	}

	w.mu.Lock()
	w.stats.Frames++
	w.stats.Detections += uint64(len(dets))
	w.mu.Unlock()

	for _, d := range dets {
		if !w.alerting(d.Class) {
			w.logger.Debug("object", "class", d.Class, "confidence", d.Confidence)
			continue
		}
		now := time.Now()
		w.mu.Lock()
		w.stats.Alerts++
		w.stats.LastAlert = d.Class
		w.stats.LastAlertAt = now
		store := w.threats != nil && now.Sub(w.recorded[d.Class]) >= w.cooldown
		if store {
			w.recorded[d.Class] = now
		}
		w.mu.Unlock()
		w.logger.Warn("threat detected", "class", d.Class, "confidence", fmt.Sprintf("%.2f", d.Confidence),
			"x", d.X, "y", d.Y, "w", d.W, "h", d.H)

		if store {
			ev := w.threats.Record(d.Class, d.Confidence, w.constraints.Device, frame)
			w.logger.Info("threat stored", "id", ev.ID, "class", ev.Class)
		}
	}
}

func (w *Worker) alerting(class string) bool {
	return len(w.alert) == 0 || w.alert[strings.ToLower(class)]
}

// Stats returns a snapshot of the counters.
func (w *Worker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
