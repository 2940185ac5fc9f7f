// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
// The station uses one hub for preview frames and one for alerts.
package hub

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
)

// Message is one websocket frame queued for clients.
type Message struct {
	Binary bool
	Data   []byte
}

// Text wraps pre-encoded JSON (or any UTF-8 text).
func Text(data []byte) Message {
	return Message{Data: data}
}

// Binary wraps raw bytes such as a JPEG frame.
func Binary(data []byte) Message {
	return Message{Binary: true, Data: data}
}

// Encode marshals v into a text message.
func Encode(v interface{}) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Text(data), nil
}

func (m Message) frameType() int {
	if m.Binary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
