package detection

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrBackendUnreachable is matched by every transport-level failure.
	ErrBackendUnreachable = errors.New("detection: backend unreachable")

	// ErrInvalidResponse is returned when a 2xx response is not a JSON object.
	ErrInvalidResponse = errors.New("detection: invalid response body")

	// ErrNoBaseURL is returned when the client is built without a backend URL.
	ErrNoBaseURL = errors.New("detection: base URL required")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	// Endpoint is the request path, e.g. /api/start_live_camera.
	Endpoint string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the (truncated) response body, for the logs.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("detection [%s]: server responded with status: %d", e.Endpoint, e.StatusCode)
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// TransportError wraps a network failure talking to the backend.
type TransportError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("detection [%s]: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes every TransportError match ErrBackendUnreachable.
func (e *TransportError) Is(target error) bool {
	return target == ErrBackendUnreachable
}

// IsRejected reports whether the backend answered with a non-2xx status
// or with a body that is not JSON.
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) || errors.Is(err, ErrInvalidResponse)
}

// IsUnreachable reports whether err is a transport failure.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrBackendUnreachable)
}
