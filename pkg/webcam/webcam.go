// Package webcam captures local video devices through OpenCV (gocv).
package webcam

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/teslashibe/go-livecam/internal/log"
	"github.com/teslashibe/go-livecam/pkg/camera"
	"gocv.io/x/gocv"
)

// Source opens a gocv.VideoCapture per capture request.
type Source struct {
	mu sync.Mutex
}

// NewSource creates a webcam source.
func NewSource() *Source {
	return &Source{}
}

// Capture opens the device named in c and returns a one-track video stream.
// Audio is never captured.
func (s *Source) Capture(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errs := c.Validate(); len(errs) > 0 {
		return nil, &camera.CaptureError{Device: c.Device, Err: fmt.Errorf("%w: %v", camera.ErrCaptureUnavailable, errs)}
	}

	// VideoCapture setup is not safe to run concurrently on every backend.
	s.mu.Lock()
	defer s.mu.Unlock()

	vc, err := open(c.Device)
	if err != nil {
		return nil, &camera.CaptureError{Device: c.Device, Err: classify(err)}
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, &camera.CaptureError{Device: c.Device, Err: camera.ErrCaptureUnavailable}
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.Framerate))

	dev := &device{vc: vc, mat: gocv.NewMat(), quality: c.Quality}

	// A device that opens but never yields a frame is as good as absent.
	if _, err := dev.read(); err != nil {
		dev.close()
		return nil, &camera.CaptureError{Device: c.Device, Err: fmt.Errorf("%w: %v", camera.ErrCaptureUnavailable, err)}
	}

	log.Component("webcam").Info("device opened",
		"device", c.Device,
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)))

	return camera.NewStream(camera.NewFuncTrack(dev.read, dev.close)), nil
}

// device owns one open capture and its scratch Mat.
type device struct {
	vc      *gocv.VideoCapture
	mat     gocv.Mat
	quality int
}

func (d *device) read() ([]byte, error) {
	if ok := d.vc.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, d.mat, []int{int(gocv.IMWriteJpegQuality), d.quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	src := buf.GetBytes()
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func (d *device) close() {
	d.mat.Close()
	d.vc.Close()
	log.Component("webcam").Info("device released")
}

// open accepts a numeric index or a path/URL.
func open(device string) (*gocv.VideoCapture, error) {
	if id, err := strconv.Atoi(device); err == nil {
		return gocv.OpenVideoCapture(id)
	}
	return gocv.OpenVideoCapture(device)
}

// classify maps OpenCV's open errors onto the capture taxonomy.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "denied") {
		return fmt.Errorf("%w: %v", camera.ErrCaptureDenied, err)
	}
	return fmt.Errorf("%w: %v", camera.ErrCaptureUnavailable, err)
}

// Verify Source implements camera.Source at compile time.
var _ camera.Source = (*Source)(nil)
