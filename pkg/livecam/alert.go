package livecam

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AlertKind classifies a user-visible failure.
type AlertKind string

const (
	// AlertCapture means the camera could not be opened (denied or unavailable).
	AlertCapture AlertKind = "capture"
	// AlertBackendRejected means the backend answered with a non-2xx status or a non-JSON body.
	AlertBackendRejected AlertKind = "backend_rejected"
	// AlertBackendUnreachable means the request never got an answer.
	AlertBackendUnreachable AlertKind = "backend_unreachable"
)

// Alert is a failure notification meant for the person at the controls.
type Alert struct {
	ID      string    `json:"id"`
	Kind    AlertKind `json:"kind"`
	Action  Action    `json:"action"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	Time    time.Time `json:"time"`
}

func newAlert(kind AlertKind, action Action, message, detail string) Alert {
	return Alert{
		ID:      uuid.New().String(),
		Kind:    kind,
		Action:  action,
		Message: message,
		Detail:  detail,
		Time:    time.Now(),
	}
}

// Notifier delivers alerts to the user.
type Notifier interface {
	Notify(a Alert)
}

// logNotifier is used when no UI is attached.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(a Alert) {
	n.logger.Warn("alert", "kind", a.Kind, "action", a.Action, "message", a.Message, "detail", a.Detail)
}

func alertMessage(kind AlertKind, action Action) string {
	verb := "start"
	if action == ActionStop {
		verb = "stop"
	}
	switch kind {
	case AlertBackendRejected, AlertBackendUnreachable:
		// Same text for both; Kind and Detail tell them apart.
		return "Could not " + verb + " the AI detection on the server. Please check the console."
	default:
		return "Camera access denied or not available"
	}
}
