// Package livecam implements the live camera controller: it toggles the local
// camera preview and tells the detection backend to start or stop.
//
// The controller owns at most one capture stream. Start acquires a fresh stream,
// binds it to the preview surface and notifies the backend; Stop releases the
// stream and notifies the backend. Backend notifications run in the background
// and never roll back local state.
//
// Every Start/Stop takes a new sequence number, so a late response can never
// clobber a newer action. A notification still in flight is cancelled only
// once a newer one is actually sent; a Start whose capture fails leaves a
// pending stop to finish.
package livecam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-livecam/internal/log"
	"github.com/teslashibe/go-livecam/pkg/camera"
	"github.com/teslashibe/go-livecam/pkg/detection"
	"github.com/teslashibe/go-livecam/pkg/preview"
)

var (
	// ErrClosed is returned by Start after Close, or when Close ran while the camera was opening.
	ErrClosed = errors.New("livecam: controller closed")

	// ErrSuperseded is returned by Start when a newer action won while the camera was opening.
	ErrSuperseded = errors.New("livecam: superseded by a newer action")
)

// Backend is the detection service.
type Backend interface {
	StartDetection(ctx context.Context) (detection.Response, error)
	StopDetection(ctx context.Context) (detection.Response, error)
}

// Config wires a controller.
type Config struct {
	Source  camera.Source
	Surface preview.Surface
	Backend Backend

	// Notifier receives user-visible failures. Defaults to the log.
	Notifier Notifier

	// Constraints returns the constraints for the next capture.
	// Defaults to camera.DefaultConstraints. Audio is always forced off.
	Constraints func() camera.Constraints

	Logger *slog.Logger
}

// Controller is the live camera controller. Methods are safe for concurrent use.
type Controller struct {
	source      camera.Source
	surface     preview.Surface
	backend     Backend
	notifier    Notifier
	constraints func() camera.Constraints
	logger      *slog.Logger

	// root is cancelled by Close; every notification context derives from it.
	root       context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	mu       sync.Mutex
	handle   camera.Stream
	seq      uint64
	sent     uint64 // seq of the newest notification launched
	inflight context.CancelFunc
	last     *Outcome
	closed   bool
}

// New creates a controller in the Idle state.
func New(cfg Config) (*Controller, error) {
	if cfg.Source == nil {
		return nil, errors.New("livecam: capture source required")
	}
	if cfg.Surface == nil {
		return nil, errors.New("livecam: preview surface required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("livecam: detection backend required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Component("livecam")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = logNotifier{logger: cfg.Logger}
	}
	if cfg.Constraints == nil {
		cfg.Constraints = camera.DefaultConstraints
	}

	root, cancel := context.WithCancel(context.Background())
	return &Controller{
		source:      cfg.Source,
		surface:     cfg.Surface,
		backend:     cfg.Backend,
		notifier:    cfg.Notifier,
		constraints: cfg.Constraints,
		logger:      cfg.Logger,
		root:        root,
		rootCancel:  cancel,
	}, nil
}

// Start opens the camera, binds the preview and asks the backend to start detection.
//
// A capture failure is reported to the user and returned; the controller stays Idle
// and the backend is not contacted. Backend failures are reported asynchronously and
// leave the camera running. A stream held from an earlier Start is released first.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	seq := c.advanceLocked()
	c.releaseLocked()
	c.mu.Unlock()

	constraints := c.constraints().VideoOnly()
	stream, err := c.source.Capture(ctx, constraints)
	if err != nil {
		if c.isCurrent(seq) {
			c.logger.Warn("camera capture failed", "device", constraints.Device, "error", err)
			c.notifier.Notify(newAlert(AlertCapture, ActionStart,
				alertMessage(AlertCapture, ActionStart)+": "+err.Error(), ""))
		}
		return fmt.Errorf("start capture: %w", err)
	}

	c.mu.Lock()
	if c.closed || c.seq != seq {
		closed := c.closed
		c.mu.Unlock()
		camera.StopAll(stream)
		c.logger.Debug("capture finished after a newer action, released", "stream", stream.ID(), "seq", seq)
		if closed {
			return ErrClosed
		}
		return ErrSuperseded
	}
	c.handle = stream
	c.surface.Bind(stream)
	c.launchLocked(seq, ActionStart)
	c.mu.Unlock()

	c.logger.Info("capture started", "stream", stream.ID(), "seq", seq, "tracks", len(stream.Tracks()))
	return nil
}

// Stop releases the camera, if any, and always asks the backend to stop detection.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	seq := c.advanceLocked()
	if c.handle != nil {
		c.logger.Info("capture stopped", "stream", c.handle.ID(), "seq", seq)
	}
	c.releaseLocked()
	c.launchLocked(seq, ActionStop)
}

// Close releases the camera, cancels in-flight notifications and waits for them.
// The backend is not told to stop; call Stop first for that.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.advanceLocked()
	c.releaseLocked()
	c.mu.Unlock()

	c.rootCancel()
	c.wg.Wait()
}

// Wait blocks until every backend notification issued so far has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// State returns Idle or Capturing.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		return StateCapturing
	}
	return StateIdle
}

// Handle returns the current capture stream, or nil.
func (c *Controller) Handle() camera.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// Status returns a snapshot for the dashboard.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{State: StateIdle, Seq: c.seq}
	if c.handle != nil {
		st.State = StateCapturing
		st.StreamID = c.handle.ID()
	}
	if c.last != nil {
		o := *c.last
		st.Backend = &o
	}
	return st
}

// advanceLocked starts a new action.
func (c *Controller) advanceLocked() uint64 {
	c.seq++
	return c.seq
}

// releaseLocked stops every track of the held stream and clears the preview.
func (c *Controller) releaseLocked() {
	if c.handle == nil {
		return
	}
	camera.StopAll(c.handle)
	c.surface.Clear()
	c.handle = nil
}

func (c *Controller) isCurrent(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.seq == seq
}

// launchLocked sends the backend command for action in the background,
// replacing the notification still in flight.
func (c *Controller) launchLocked(seq uint64, action Action) {
	if c.inflight != nil {
		c.inflight()
	}
	ctx, cancel := context.WithCancel(c.root)
	c.inflight = cancel
	c.sent = seq

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		var (
			resp detection.Response
			err  error
		)
		if action == ActionStart {
			resp, err = c.backend.StartDetection(ctx)
		} else {
			resp, err = c.backend.StopDetection(ctx)
		}
		c.finish(seq, action, resp, err)
	}()
}

// finish records and reports a backend answer, unless a newer notification replaced it.
func (c *Controller) finish(seq uint64, action Action, resp detection.Response, err error) {
	outcome := Outcome{Action: action, Seq: seq, OK: err == nil, Time: time.Now()}
	if err != nil {
		outcome.Error = err.Error()
	} else {
		outcome.Status = resp.Status()
	}

	c.mu.Lock()
	current := !c.closed && c.sent == seq
	if current {
		c.last = &outcome
		c.inflight = nil
	}
	c.mu.Unlock()

	if !current {
		c.logger.Debug("stale detection answer ignored", "action", action, "seq", seq, "error", err)
		return
	}

	if err == nil {
		c.logger.Info("detection response", "action", action, "seq", seq, "response", map[string]interface{}(resp))
		return
	}

	kind := AlertBackendUnreachable
	if detection.IsRejected(err) {
		kind = AlertBackendRejected
	}
	c.logger.Error("AI detection command failed", "action", action, "seq", seq, "kind", kind, "error", err)
	c.notifier.Notify(newAlert(kind, action, alertMessage(kind, action), err.Error()))
}
