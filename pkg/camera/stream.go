package camera

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Kind is the media type of a track.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Track is one independently stoppable media channel of a stream.
type Track interface {
	ID() string
	Kind() Kind
	// Stop releases the underlying device. Safe to call more than once.
	Stop()
	Stopped() bool
}

// FrameReader is implemented by video tracks that can produce JPEG frames.
type FrameReader interface {
	ReadJPEG() ([]byte, error)
}

// Stream is a live capture handle.
type Stream interface {
	ID() string
	Tracks() []Track
}

// Source is the platform media layer: it turns constraints into a live stream.
type Source interface {
	Capture(ctx context.Context, c Constraints) (Stream, error)
}

// StopAll stops every track of s. A nil stream is a no-op.
func StopAll(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// Active reports whether any track of s is still running.
func Active(s Stream) bool {
	if s == nil {
		return false
	}
	for _, t := range s.Tracks() {
		if !t.Stopped() {
			return true
		}
	}
	return false
}

// VideoTrack returns the first video track of s that can produce frames.
func VideoTrack(s Stream) (Track, FrameReader, bool) {
	if s == nil {
		return nil, nil, false
	}
	for _, t := range s.Tracks() {
		if t.Kind() != KindVideo {
			continue
		}
		if fr, ok := t.(FrameReader); ok {
			return t, fr, true
		}
	}
	return nil, nil, false
}

type stream struct {
	id     string
	tracks []Track
}

// NewStream groups tracks under a fresh stream ID.
func NewStream(tracks ...Track) Stream {
	return &stream{id: uuid.New().String(), tracks: tracks}
}

func (s *stream) ID() string { return s.id }

func (s *stream) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// FuncTrack is a video track backed by a read function and a release function.
// Sources build their tracks from it.
type FuncTrack struct {
	id      string
	read    func() ([]byte, error)
	release func()

	mu      sync.Mutex
	stopped bool
}

// NewFuncTrack creates a video track. release runs once, on the first Stop.
func NewFuncTrack(read func() ([]byte, error), release func()) *FuncTrack {
	return &FuncTrack{
		id:      uuid.New().String(),
		read:    read,
		release: release,
	}
}

func (t *FuncTrack) ID() string { return t.id }

func (t *FuncTrack) Kind() Kind { return KindVideo }

// ReadJPEG returns the next frame, or ErrTrackStopped once stopped.
// The lock is held during the read so Stop waits for it before releasing the device.
func (t *FuncTrack) ReadJPEG() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil, ErrTrackStopped
	}
	return t.read()
}

func (t *FuncTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.release != nil {
		t.release()
	}
}

func (t *FuncTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
