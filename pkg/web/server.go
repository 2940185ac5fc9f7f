// Package web provides the live camera station dashboard: the start/stop
// controls, the local preview and the alert feed.
package web

import (
	"context"
	_ "embed"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-livecam/internal/log"
	"github.com/teslashibe/go-livecam/pkg/camera"
	"github.com/teslashibe/go-livecam/pkg/hub"
	"github.com/teslashibe/go-livecam/pkg/livecam"
)

//go:embed static/index.html
var indexHTML []byte

// maxAlerts is the size of the alert ring buffer.
const maxAlerts = 100

// Controller is the part of the live camera controller the dashboard drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Status() livecam.Status
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	// Controller and Constraints are set by the station after construction.
	Controller  Controller
	Constraints *camera.Manager

	// Alert buffer (last maxAlerts entries)
	alerts   []livecam.Alert
	alertsMu sync.RWMutex

	// Hubs for websocket broadcast
	cameraHub *hub.Hub
	alertHub  *hub.Hub

	hubsMu      sync.Mutex
	hubsCancel  context.CancelFunc
	hubsStopped bool
}

// NewServer creates a new web dashboard server
func NewServer(port string) *Server {
	s := &Server{
		port:      port,
		logger:    log.Component("web"),
		alerts:    make([]livecam.Alert, 0, maxAlerts),
		cameraHub: hub.New("camera"),
		alertHub:  hub.New("alerts"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Live Camera",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Post("/camera/start", s.handleStart)
	api.Post("/camera/stop", s.handleStop)
	api.Get("/camera/status", s.handleStatus)
	api.Get("/camera/config", s.handleGetConfig)
	api.Put("/camera/config", s.handleUpdateConfig)
	api.Get("/camera/presets", s.handlePresets)
	api.Get("/alerts", s.handleGetAlerts)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/alerts", websocket.New(s.handleAlertsWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and listens on the configured port until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the hubs and serves on ln until Shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.runHubs(ctx)
	s.logger.Info("web dashboard listening", "url", "http://"+ln.Addr().String())
	return s.app.Listener(ln)
}

// runHubs starts both hubs once, unless Shutdown already ran.
func (s *Server) runHubs(ctx context.Context) {
	s.hubsMu.Lock()
	defer s.hubsMu.Unlock()
	if s.hubsCancel != nil || s.hubsStopped {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.hubsCancel = cancel
	go s.cameraHub.Run(ctx)
	go s.alertHub.Run(ctx)
	<-s.cameraHub.Started()
	<-s.alertHub.Started()
}

func (s *Server) stopHubs() {
	s.hubsMu.Lock()
	defer s.hubsMu.Unlock()
	s.hubsStopped = true
	if s.hubsCancel != nil {
		s.hubsCancel()
	}
}

// Notify records an alert and pushes it to every alert viewer.
func (s *Server) Notify(a livecam.Alert) {
	s.alertsMu.Lock()
	s.alerts = append(s.alerts, a)
	if len(s.alerts) > maxAlerts {
		s.alerts = s.alerts[1:]
	}
	s.alertsMu.Unlock()

	s.logger.Warn("alert", "kind", a.Kind, "action", a.Action, "message", a.Message)
	if err := s.alertHub.BroadcastJSON(a); err != nil {
		s.logger.Error("alert broadcast failed", "error", err)
	}
}

// Alerts returns a copy of the recent alerts, oldest first.
func (s *Server) Alerts() []livecam.Alert {
	s.alertsMu.RLock()
	defer s.alertsMu.RUnlock()
	out := make([]livecam.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// CameraHub returns the hub carrying preview frames.
func (s *Server) CameraHub() *hub.Hub {
	return s.cameraHub
}

// AlertHub returns the hub carrying alerts.
func (s *Server) AlertHub() *hub.Hub {
	return s.alertHub
}

// Shutdown gracefully stops the web server and its hubs.
func (s *Server) Shutdown() error {
	s.stopHubs()
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// Verify Server implements livecam.Notifier at compile time.
var _ livecam.Notifier = (*Server)(nil)
