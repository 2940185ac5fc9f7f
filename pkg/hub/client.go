package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeTimeout   = 10 * time.Second
	idleTimeout    = 60 * time.Second // no pong within this closes the client
	pingInterval   = idleTimeout * 9 / 10
	maxInboundSize = 4 << 10 // viewers only send control frames
	sendBuffer     = 256
)

// Conn is the part of a websocket connection the client pumps use.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one viewer connection and its outbound queue.
type Client struct {
	hub  *Hub
	conn Conn
	send chan Message
}

// NewClient creates a client, queues the backlog ahead of live messages
// and registers it with the hub. The backlog is truncated to the send buffer.
// On a hub that is not running the client gets the backlog and a close frame.
func NewClient(hub *Hub, conn Conn, backlog ...Message) *Client {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
	if len(backlog) > sendBuffer/2 {
		backlog = backlog[len(backlog)-sendBuffer/2:]
	}
	for _, m := range backlog {
		client.send <- m
	}
	if !hub.add(client) {
		close(client.send)
	}
	return client
}

// Run pumps the connection from inside a websocket handler and returns
// once the viewer goes away.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump keeps the connection alive and detects disconnection.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump is the only goroutine writing to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// dropped or hub stopped
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.frameType(), message.Data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
