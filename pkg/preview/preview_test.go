package preview

import (
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-livecam/pkg/camera"
)

type recordingSink struct {
	mu     sync.Mutex
	frames int
}

func (r *recordingSink) BroadcastBinary(data []byte) {
	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
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

func TestBindPumpsFrames(t *testing.T) {
	sink := &recordingSink{}
	feed := NewFeed(sink, 100)

	s := camera.NewMockStream()
	feed.Bind(s)
	defer feed.Clear()

	if feed.Bound() != s {
		t.Fatal("Bound should return the bound stream")
	}
	waitFor(t, func() bool { return sink.count() >= 3 })
	if feed.LastFrame() == nil {
		t.Error("LastFrame should be set while streaming")
	}
	if feed.FrameCount() < 3 {
		t.Errorf("FrameCount: got %d", feed.FrameCount())
	}
}

func TestClearStopsPump(t *testing.T) {
	sink := &recordingSink{}
	feed := NewFeed(sink, 100)

	feed.Bind(camera.NewMockStream())
	waitFor(t, func() bool { return sink.count() >= 1 })

	feed.Clear()
	if feed.Bound() != nil {
		t.Error("Bound should be nil after Clear")
	}
	if feed.LastFrame() != nil {
		t.Error("LastFrame should be nil after Clear")
	}

	after := sink.count()
	time.Sleep(50 * time.Millisecond)
	if sink.count() != after {
		t.Errorf("frames sent after Clear: %d -> %d", after, sink.count())
	}
}

func TestRebindReplaces(t *testing.T) {
	feed := NewFeed(&recordingSink{}, 50)
	first := camera.NewMockStream()
	second := camera.NewMockStream()

	feed.Bind(first)
	feed.Bind(second)
	defer feed.Clear()

	if feed.Bound() != second {
		t.Error("second Bind should replace the first")
	}
}

func TestBindNilClears(t *testing.T) {
	feed := NewFeed(&recordingSink{}, 50)
	feed.Bind(camera.NewMockStream())
	feed.Bind(nil)
	if feed.Bound() != nil {
		t.Error("Bind(nil) should clear")
	}
}

func TestPumpExitsWhenTrackStops(t *testing.T) {
	sink := &recordingSink{}
	feed := NewFeed(sink, 100)

	s := camera.NewMockStream()
	feed.Bind(s)
	waitFor(t, func() bool { return sink.count() >= 1 })

	camera.StopAll(s)
	time.Sleep(30 * time.Millisecond)
	n := sink.count()
	time.Sleep(50 * time.Millisecond)
	if sink.count() != n {
		t.Error("pump should stop once the track is stopped")
	}

	// Clear must not hang on an already-exited pump.
	feed.Clear()
}

func TestClearWhenIdle(t *testing.T) {
	feed := NewFeed(&recordingSink{}, 0)
	feed.Clear()
	if feed.Bound() != nil {
		t.Error("idle feed has nothing bound")
	}
}
