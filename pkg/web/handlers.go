package web

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-livecam/pkg/camera"
	"github.com/teslashibe/go-livecam/pkg/hub"
	"github.com/teslashibe/go-livecam/pkg/livecam"
)

// StatusResponse is the body of the camera status and control endpoints.
type StatusResponse struct {
	livecam.Status
	Viewers int `json:"viewers"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

// handleStart is the startCam control.
func (s *Server) handleStart(c *fiber.Ctx) error {
	if s.Controller == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "controller not configured")
	}

	if err := s.Controller.Start(c.UserContext()); err != nil {
		return c.Status(startErrorStatus(err)).JSON(fiber.Map{
			"error":  err.Error(),
			"status": s.status(),
		})
	}
	return c.JSON(s.status())
}

// handleStop is the stopCam control.
func (s *Server) handleStop(c *fiber.Ctx) error {
	if s.Controller == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "controller not configured")
	}

	s.Controller.Stop()
	return c.JSON(s.status())
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.Controller == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "controller not configured")
	}
	return c.JSON(s.status())
}

func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	if s.Constraints == nil {
		return c.JSON(camera.DefaultConstraints())
	}
	return c.JSON(s.Constraints.JSON())
}

// handleUpdateConfig changes the constraints for the next capture.
func (s *Server) handleUpdateConfig(c *fiber.Ctx) error {
	if s.Constraints == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "camera config not configured")
	}

	var params map[string]interface{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}
	if err := s.Constraints.Update(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.logger.Info("camera config updated", "constraints", s.Constraints.Constraints())
	return c.JSON(s.Constraints.JSON())
}

func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"names":        camera.PresetNames(),
		"presets":      camera.Presets(),
		"capabilities": camera.Capabilities(),
	})
}

// handleGetAlerts returns recent alerts
func (s *Server) handleGetAlerts(c *fiber.Ctx) error {
	return c.JSON(s.Alerts())
}

// handleCameraWS streams preview frames to a viewer
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}

// handleAlertsWS replays recent alerts, then streams new ones
func (s *Server) handleAlertsWS(c *websocket.Conn) {
	alerts := s.Alerts()
	backlog := make([]hub.Message, 0, len(alerts))
	for _, a := range alerts {
		msg, err := hub.Encode(a)
		if err != nil {
			continue
		}
		backlog = append(backlog, msg)
	}
	hub.NewClient(s.alertHub, c, backlog...).Run()
}

func (s *Server) status() StatusResponse {
	return StatusResponse{
		Status:  s.Controller.Status(),
		Viewers: s.cameraHub.ClientCount(),
	}
}

// startErrorStatus maps a Start failure to an HTTP status.
func startErrorStatus(err error) int {
	switch {
	case errors.Is(err, camera.ErrCaptureDenied):
		return fiber.StatusForbidden
	case errors.Is(err, livecam.ErrSuperseded):
		return fiber.StatusConflict
	case errors.Is(err, camera.ErrCaptureUnavailable), errors.Is(err, livecam.ErrClosed):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
