package livecam

import "time"

// State of the local capture.
type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
)

// Action is a user command.
type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

// Outcome is the result of the latest backend command that was not superseded.
type Outcome struct {
	Action Action    `json:"action"`
	Seq    uint64    `json:"seq"`
	OK     bool      `json:"ok"`
	Status string    `json:"status,omitempty"` // backend "status" field on success
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

// Status is a snapshot of the controller.
type Status struct {
	State    State    `json:"state"`
	StreamID string   `json:"stream_id,omitempty"`
	Seq      uint64   `json:"seq"`
	Backend  *Outcome `json:"backend,omitempty"`
}
