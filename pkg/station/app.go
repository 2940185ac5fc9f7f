// Package station wires the live camera station: capture source, preview,
// detection client, controller and web dashboard.
package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-livecam/internal/config"
	"github.com/teslashibe/go-livecam/internal/log"
	"github.com/teslashibe/go-livecam/pkg/camera"
	"github.com/teslashibe/go-livecam/pkg/detection"
	"github.com/teslashibe/go-livecam/pkg/livecam"
	"github.com/teslashibe/go-livecam/pkg/preview"
	"github.com/teslashibe/go-livecam/pkg/web"
)

// shutdownStopWait bounds how long Shutdown waits for the final stop command.
var shutdownStopWait = 5 * time.Second

// App is the station orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config config.Config
	source camera.Source
	logger *slog.Logger

	constraints *camera.Manager
	backend     *detection.Client
	feed        *preview.Feed
	controller  *livecam.Controller
	webServer   *web.Server
}

// New creates a station using source for capture.
func New(cfg config.Config, source camera.Source) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("station: capture source required")
	}
	return &App{
		config: cfg,
		source: source,
		logger: log.Component("station"),
	}, nil
}

// Init builds every component.
// Call this after New() and before Run().
func (a *App) Init() error {
	initial, err := cameraConstraints(a.config.Camera)
	if err != nil {
		return fmt.Errorf("camera config: %w", err)
	}
	a.constraints = camera.NewManager(initial)
	a.constraints.OnChange = func(c camera.Constraints) {
		a.logger.Info("next capture constraints changed",
			"device", c.Device, "width", c.Width, "height", c.Height, "fps", c.Framerate)
	}

	a.backend, err = detection.NewClient(a.config.BackendBaseURL(),
		detection.WithTimeout(a.config.Backend.Timeout),
		detection.WithLogger(log.Component("detection")),
	)
	if err != nil {
		return fmt.Errorf("detection client: %w", err)
	}

	a.webServer = web.NewServer(a.config.Server.Port)
	a.feed = preview.NewFeed(a.webServer.CameraHub(), initial.Framerate)

	a.controller, err = livecam.New(livecam.Config{
		Source:      a.source,
		Surface:     a.feed,
		Backend:     a.backend,
		Notifier:    a.webServer,
		Constraints: a.constraints.Constraints,
		Logger:      log.Component("livecam"),
	})
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}

	a.webServer.Controller = a.controller
	a.webServer.Constraints = a.constraints

	a.logger.Info("station initialized",
		"backend", a.backend.BaseURL(),
		"device", initial.Device,
		"resolution", fmt.Sprintf("%dx%d@%d", initial.Width, initial.Height, initial.Framerate),
	)
	return nil
}

// Run serves the dashboard until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.webServer == nil {
		return errors.New("station: Init not called")
	}

	errc := make(chan error, 1)
	go func() { errc <- a.webServer.Start(ctx) }()

	a.logger.Info("station ready", "url", "http://localhost:"+a.config.Server.Port)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return fmt.Errorf("web server: %w", err)
	}
}

// Shutdown releases the camera and stops the dashboard.
// A running capture also gets a final stop command so the backend is not left detecting.
func (a *App) Shutdown() {
	if a.controller != nil {
		if a.controller.State() == livecam.StateCapturing {
			a.controller.Stop()
			done := make(chan struct{})
			go func() {
				a.controller.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(shutdownStopWait):
				a.logger.Warn("final stop command still pending at shutdown")
			}
		}
		a.controller.Close()
	}
	if a.feed != nil {
		a.feed.Clear()
	}
	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			a.logger.Warn("web server shutdown", "error", err)
		}
	}
	a.logger.Info("station stopped")
}

// Controller returns the live camera controller. Nil before Init.
func (a *App) Controller() *livecam.Controller {
	return a.controller
}

// WebServer returns the dashboard server. Nil before Init.
func (a *App) WebServer() *web.Server {
	return a.webServer
}

// cameraConstraints builds the initial constraints: preset first, then explicit fields.
func cameraConstraints(cc config.CameraConfig) (camera.Constraints, error) {
	c := camera.DefaultConstraints()
	if cc.Preset != "" {
		p := camera.GetPreset(cc.Preset)
		if p == nil {
			return c, fmt.Errorf("unknown preset %q (have %v)", cc.Preset, camera.PresetNames())
		}
		c = *p
	}
	if cc.Device != "" {
		c.Device = cc.Device
	}
	if cc.Width > 0 {
		c.Width = cc.Width
	}
	if cc.Height > 0 {
		c.Height = cc.Height
	}
	if cc.Framerate > 0 {
		c.Framerate = cc.Framerate
	}
	if cc.Quality > 0 {
		c.Quality = cc.Quality
	}
	c = c.VideoOnly()
	if errs := c.Validate(); len(errs) > 0 {
		return c, fmt.Errorf("invalid constraints: %v", errs)
	}
	return c, nil
}
