// Package preview is the local preview surface: while a stream is bound,
// its JPEG frames are pumped to every connected viewer.
package preview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-livecam/internal/log"
	"github.com/teslashibe/go-livecam/pkg/camera"
)

// Sink receives preview frames. *hub.Hub satisfies it.
type Sink interface {
	BroadcastBinary(data []byte)
}

// Surface is what a stream gets bound to.
type Surface interface {
	Bind(s camera.Stream)
	Clear()
	Bound() camera.Stream
}

// Feed is a Surface that forwards frames of the bound stream to a Sink.
type Feed struct {
	sink     Sink
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	bound  camera.Stream
	cancel context.CancelFunc
	done   chan struct{}

	framesMu sync.RWMutex
	frames   uint64
	last     []byte
}

// NewFeed creates a feed pushing at most fps frames per second.
func NewFeed(sink Sink, fps int) *Feed {
	if fps <= 0 {
		fps = 10
	}
	return &Feed{
		sink:     sink,
		interval: time.Second / time.Duration(fps),
		logger:   log.Component("preview"),
	}
}

// Bind attaches s to the surface, replacing any previous binding.
// A nil stream is the same as Clear.
func (f *Feed) Bind(s camera.Stream) {
	if s == nil {
		f.Clear()
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()

	f.bound = s
	_, reader, ok := camera.VideoTrack(s)
	if !ok {
		f.logger.Warn("stream has no readable video track", "stream", s.ID())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.pump(ctx, s.ID(), reader, f.done)
	f.logger.Info("preview bound", "stream", s.ID())
}

// Clear detaches the current stream and waits for the pump to exit.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bound != nil {
		f.logger.Info("preview cleared", "stream", f.bound.ID())
	}
	f.stopLocked()
	f.bound = nil

	f.framesMu.Lock()
	f.last = nil
	f.framesMu.Unlock()
}

// Bound returns the bound stream, or nil.
func (f *Feed) Bound() camera.Stream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bound
}

// LastFrame returns the most recent frame of the bound stream, or nil.
func (f *Feed) LastFrame() []byte {
	f.framesMu.RLock()
	defer f.framesMu.RUnlock()
	return f.last
}

// FrameCount returns the number of frames forwarded since creation.
func (f *Feed) FrameCount() uint64 {
	f.framesMu.RLock()
	defer f.framesMu.RUnlock()
	return f.frames
}

func (f *Feed) stopLocked() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.cancel = nil
	f.done = nil
}

func (f *Feed) pump(ctx context.Context, streamID string, reader camera.FrameReader, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	var lastErr time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := reader.ReadJPEG()
			if errors.Is(err, camera.ErrTrackStopped) {
				f.logger.Debug("track stopped, pump exiting", "stream", streamID)
				return
			}
			if err != nil {
				if time.Since(lastErr) > 5*time.Second {
					f.logger.Warn("frame read failed", "stream", streamID, "error", err)
					lastErr = time.Now()
				}
				continue
			}
			if len(frame) == 0 {
				continue
			}

			// Drop frames that lost the race with Clear.
			if ctx.Err() != nil {
				return
			}
			f.framesMu.Lock()
			f.frames++
			f.last = frame
			first := f.frames == 1
			f.framesMu.Unlock()

			f.sink.BroadcastBinary(frame)
			if first {
				f.logger.Debug("first frame sent", "stream", streamID, "bytes", len(frame))
			}
		}
	}
}

// Verify Feed implements Surface at compile time.
var _ Surface = (*Feed)(nil)
