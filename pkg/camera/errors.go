package camera

import (
	"errors"
	"fmt"
)

// Sentinel errors for capture failures.
var (
	// ErrCaptureDenied is returned when the platform refuses access to the device.
	ErrCaptureDenied = errors.New("camera: access denied")

	// ErrCaptureUnavailable is returned when no device can satisfy the request.
	ErrCaptureUnavailable = errors.New("camera: device not available")

	// ErrTrackStopped is returned when reading from a stopped track.
	ErrTrackStopped = errors.New("camera: track stopped")
)

// CaptureError wraps a capture failure with the device it concerned.
type CaptureError struct {
	Device string
	Err    error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("camera [%s]: %v", e.Device, e.Err)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error {
	return e.Err
}

// IsDenied reports whether err is a permission failure.
func IsDenied(err error) bool {
	return errors.Is(err, ErrCaptureDenied)
}

// IsUnavailable reports whether err means no usable device.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrCaptureUnavailable)
}
