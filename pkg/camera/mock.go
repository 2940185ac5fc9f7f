package camera

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"
)

// MockSource implements Source for testing.
type MockSource struct {
	// CaptureFunc is called when Capture is invoked. Nil means a fresh one-track stream.
	CaptureFunc func(ctx context.Context, c Constraints) (Stream, error)

	mu      sync.Mutex
	calls   []MockCall
	streams []Stream
}

// MockCall records a capture request.
type MockCall struct {
	Constraints Constraints
	Time        time.Time
}

// NewMockSource creates a source that always succeeds.
func NewMockSource() *MockSource {
	return &MockSource{}
}

// DeniedSource returns a source whose every capture fails with ErrCaptureDenied.
func DeniedSource() *MockSource {
	return &MockSource{
		CaptureFunc: func(ctx context.Context, c Constraints) (Stream, error) {
			return nil, &CaptureError{Device: c.Device, Err: ErrCaptureDenied}
		},
	}
}

// Capture records the call and returns a stream.
func (m *MockSource) Capture(ctx context.Context, c Constraints) (Stream, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Constraints: c, Time: time.Now()})
	fn := m.CaptureFunc
	m.mu.Unlock()

	var (
		s   Stream
		err error
	)
	if fn != nil {
		s, err = fn(ctx, c)
	} else {
		s = NewMockStream()
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.streams = append(m.streams, s)
	m.mu.Unlock()
	return s, nil
}

// CallCount returns the number of capture requests.
func (m *MockSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns all recorded capture requests.
func (m *MockSource) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Streams returns every stream handed out, oldest first.
func (m *MockSource) Streams() []Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Stream, len(m.streams))
	copy(out, m.streams)
	return out
}

// NewMockStream returns a stream with one video track producing a gray test frame.
func NewMockStream() Stream {
	frame := TestFrame()
	return NewStream(NewFuncTrack(func() ([]byte, error) {
		return frame, nil
	}, nil))
}

var (
	testFrame     []byte
	testFrameOnce sync.Once
)

// TestFrame returns a small valid JPEG.
func TestFrame() []byte {
	testFrameOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
			}
		}
		var buf bytes.Buffer
		_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80})
		testFrame = buf.Bytes()
	})
	return testFrame
}

// Verify MockSource implements Source at compile time.
var _ Source = (*MockSource)(nil)
