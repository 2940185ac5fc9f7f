// Package detectsvc is a development stand-in for the AI detection backend.
//
// It answers the two live-camera commands over HTTP. Start launches one
// detection worker; Stop cancels it and waits for it to exit.
package detectsvc

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-livecam/internal/log"
)

// WorkFunc is the detection loop. It runs until ctx is cancelled or it fails.
type WorkFunc func(ctx context.Context) error

// Runner runs at most one WorkFunc at a time.
type Runner struct {
	work   WorkFunc
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
	runs    int
}

// NewRunner creates an idle runner.
func NewRunner(work WorkFunc) *Runner {
	return &Runner{
		work:   work,
		logger: log.Component("detectsvc"),
	}
}

// Start launches the worker. It returns false if one is already running.
func (r *Runner) Start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runningLocked() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.lastErr = nil
	r.runs++

	go func() {
		defer close(done)
		err := r.work(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Error("detection worker failed", "error", err)
			r.mu.Lock()
			r.lastErr = err
			r.mu.Unlock()
		}
	}()
	r.logger.Info("detection worker started", "run", r.runs)
	return true
}

// Stop cancels the worker and waits for it. It returns false if none was running.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	if !r.runningLocked() {
		r.mu.Unlock()
		return false
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	r.logger.Info("detection worker stopped")
	return true
}

// Running reports whether the worker is alive.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runningLocked()
}

// Err returns the error that ended the last run, if it ended on its own.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *Runner) runningLocked() bool {
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}
