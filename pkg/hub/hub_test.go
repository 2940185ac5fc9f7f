package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

// fakeConn records writes and blocks reads until closed.
type fakeConn struct {
	mu     sync.Mutex
	writes []written
	closed chan struct{}
	once   sync.Once
}

type written struct {
	typ  int
	data []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(typ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.closed:
		return errors.New("closed")
	default:
	}
	f.writes = append(f.writes, written{typ: typ, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) snapshot() []written {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]written, len(f.writes))
	copy(out, f.writes)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHubBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)
	waitFor(t, h.IsRunning)

	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.BroadcastBinary([]byte{0xff, 0xd8})
	if err := h.BroadcastJSON(map[string]string{"kind": "capture"}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	waitFor(t, func() bool { return len(conn.snapshot()) >= 2 })
	got := conn.snapshot()
	if got[0].typ != websocket.BinaryMessage {
		t.Errorf("first message type: got %d, want binary", got[0].typ)
	}
	if got[1].typ != websocket.TextMessage || string(got[1].data) != `{"kind":"capture"}` {
		t.Errorf("second message: got %d %q", got[1].typ, got[1].data)
	}

	conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHubBacklogFirst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("backlog")
	go h.Run(ctx)
	waitFor(t, h.IsRunning)

	conn := newFakeConn()
	client := NewClient(h, conn, Text([]byte(`"old"`)))
	go client.Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Broadcast(Text([]byte(`"new"`)))

	waitFor(t, func() bool { return len(conn.snapshot()) >= 2 })
	got := conn.snapshot()
	if string(got[0].data) != `"old"` || string(got[1].data) != `"new"` {
		t.Errorf("order: got %q then %q", got[0].data, got[1].data)
	}
	conn.Close()
}

func TestHubStopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := New("stop")
	go h.Run(ctx)
	waitFor(t, h.IsRunning)

	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if h.IsRunning() {
		t.Error("hub should report not running")
	}

	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("client connection should be closed when the hub stops")
	}

	// Registering after stop must not block.
	late := newFakeConn()
	NewClient(h, late)
}

func TestHubRunOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("once")
	go h.Run(ctx)
	waitFor(t, h.IsRunning)

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Run should return immediately")
	}
}

func TestClientOnIdleHubDoesNotBlock(t *testing.T) {
	h := New("idle")
	conn := newFakeConn()

	done := make(chan struct{})
	go func() {
		NewClient(h, conn, Text([]byte(`{"n":1}`))).Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client on a hub that was never run should finish")
	}

	got := conn.snapshot()
	if len(got) != 2 {
		t.Fatalf("writes: got %d, want backlog + close", len(got))
	}
	if got[0].typ != websocket.TextMessage || string(got[0].data) != `{"n":1}` {
		t.Errorf("backlog frame: %+v", got[0])
	}
	if got[1].typ != websocket.CloseMessage {
		t.Errorf("last frame should be a close, got type %d", got[1].typ)
	}
	if h.ClientCount() != 0 {
		t.Error("idle hub should hold no clients")
	}
}
