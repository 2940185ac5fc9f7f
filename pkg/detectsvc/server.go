package detectsvc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/teslashibe/go-livecam/internal/log"
)

// Controller is what the HTTP commands drive. *Runner satisfies it.
type Controller interface {
	Start() bool
	Stop() bool
	Running() bool
}

// Server exposes the live-camera commands over HTTP.
type Server struct {
	ctrl    Controller
	stats   func() Stats
	threats *ThreatStore
	engine *gin.Engine
	logger *slog.Logger
	http   *http.Server
}

// Threat list limits.
const (
	maxActiveThreats      = 200
	maxNeutralizedThreats = 500
)

// NewServer builds the routes. stats may be nil; a nil threats gets an empty store.
func NewServer(ctrl Controller, stats func() Stats, threats *ThreatStore) *Server {
	if threats == nil {
		threats = NewThreatStore(0)
	}
	s := &Server{
		ctrl:    ctrl,
		stats:   stats,
		threats: threats,
		logger:  log.Component("detectsvc"),
	}

	r := gin.New()
	r.Use(requestLogger(s.logger))
	r.Use(corsMiddleware())
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/start_live_camera", s.handleStart)
	api.POST("/stop_live_camera", s.handleStop)
	api.GET("/health", s.handleHealth)
	api.GET("/threats", s.handleThreats)
	api.GET("/threats/:id/snapshot", s.handleSnapshot)
	api.GET("/neutralized", s.handleNeutralized)
	api.POST("/neutralize/:id", s.handleNeutralize)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- s.http.Serve(ln) }()
	s.logger.Info("detection backend listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStart(c *gin.Context) {
	if !s.ctrl.Start() {
		c.JSON(http.StatusOK, gin.H{"status": "already running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (s *Server) handleStop(c *gin.Context) {
	if !s.ctrl.Stop() {
		c.JSON(http.StatusOK, gin.H{"status": "not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok", "running": s.ctrl.Running()}
	if s.stats != nil {
		body["stats"] = s.stats()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleThreats(c *gin.Context) {
	c.JSON(http.StatusOK, s.threats.Active(maxActiveThreats))
}

func (s *Server) handleNeutralized(c *gin.Context) {
	c.JSON(http.StatusOK, s.threats.Neutralized(maxNeutralizedThreats))
}

func (s *Server) handleNeutralize(c *gin.Context) {
	ev, err := s.threats.Neutralize(c.Param("id"))
	switch {
	case errors.Is(err, ErrInvalidThreatID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	case errors.Is(err, ErrThreatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	s.logger.Info("threat neutralized", "id", ev.ID, "class", ev.Class)
	c.JSON(http.StatusOK, gin.H{"ok": true, "threat": ev})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	jpeg, ok := s.threats.Snapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", jpeg)
}

// requestLogger logs each request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"ip", c.ClientIP(),
			"took", time.Since(start),
		)
	}
}

// corsMiddleware lets a station served from another origin call the API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
