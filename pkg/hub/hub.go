package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-livecam/internal/log"
)

// Hub fans messages out to its connected clients. One goroutine (Run) owns
// the client set; other methods talk to it over channels.
type Hub struct {
	name   string
	logger *slog.Logger

	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	started    chan struct{}
	done       chan struct{}

	mu      sync.RWMutex // guards clients for ClientCount and running
	runOnce sync.Once
	running bool
}

// New returns a hub that does nothing until Run is called.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     log.Component("hub").With("hub", name),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		started:    make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and blocks until ctx is cancelled.
// On return every client's send channel is closed.
func (h *Hub) Run(ctx context.Context) {
	started := false
	h.runOnce.Do(func() { started = true })
	if !started {
		return
	}

	close(h.started)
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", "clients", n)
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				h.dropLocked(c)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", "clients", n)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// fanOut hands msg to every client, dropping any whose queue is full.
func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropLocked(c)
			h.logger.Warn("dropped slow client")
		}
	}
}

func (h *Hub) dropLocked(c *Client) {
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	for c := range h.clients {
		h.dropLocked(c)
	}
	h.running = false
	h.mu.Unlock()
	close(h.done)
}

// Started is closed once Run accepts clients.
func (h *Hub) Started() <-chan struct{} {
	return h.started
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Broadcast queues msg for every client. It never blocks; when the
// queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastJSON encodes v and queues it for every client.
func (h *Hub) BroadcastJSON(v interface{}) error {
	msg, err := Encode(v)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// BroadcastBinary queues a binary frame (a preview JPEG) for every client.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(Binary(data))
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// add registers c unless the hub is not running.
func (h *Hub) add(c *Client) bool {
	if !h.hasStarted() {
		return false
	}
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove unregisters c unless the hub is not running.
func (h *Hub) remove(c *Client) {
	if !h.hasStarted() {
		return
	}
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) hasStarted() bool {
	select {
	case <-h.started:
		return true
	default:
		return false
	}
}
