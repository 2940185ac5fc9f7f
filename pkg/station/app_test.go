package station

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-livecam/internal/config"
	"github.com/teslashibe/go-livecam/pkg/camera"
	"github.com/teslashibe/go-livecam/pkg/detection"
	"github.com/teslashibe/go-livecam/pkg/livecam"
)

type pathRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (p *pathRecorder) add(path string) {
	p.mu.Lock()
	p.paths = append(p.paths, path)
	p.mu.Unlock()
}

func (p *pathRecorder) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

func newBackend(t *testing.T) (*pathRecorder, string) {
	t.Helper()
	rec := &pathRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)
	return rec, srv.URL
}

func TestNewValidates(t *testing.T) {
	cfg := config.Default()
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error without a source")
	}

	cfg.Backend.URL = "not a url"
	if _, err := New(cfg, camera.NewMockSource()); err == nil {
		t.Error("expected error for a bad backend URL")
	}
}

func TestInitWiresControllerToDashboard(t *testing.T) {
	rec, url := newBackend(t)
	cfg := config.Default()
	cfg.Backend.URL = url + "/"
	cfg.Camera.Preset = camera.PresetLow

	source := camera.NewMockSource()
	app, err := New(cfg, source)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := app.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	resp, err := app.WebServer().App().Test(httptest.NewRequest("POST", "/api/camera/start", nil))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("start status: %d", resp.StatusCode)
	}
	app.Controller().Wait()

	if app.Controller().State() != livecam.StateCapturing {
		t.Error("controller should be capturing")
	}
	if got := source.Calls()[0].Constraints; got.Width != 320 || got.Audio {
		t.Errorf("capture constraints: %+v", got)
	}

	app.Shutdown()

	paths := rec.all()
	if len(paths) != 2 || paths[0] != detection.StartPath || paths[1] != detection.StopPath {
		t.Errorf("backend calls: %v", paths)
	}
	for _, s := range source.Streams() {
		if camera.Active(s) {
			t.Error("Shutdown should release the camera")
		}
	}
}

// newStopBackend answers start at once and holds stop until the request is
// cancelled or delay passes.
func newStopBackend(t *testing.T, delay time.Duration) (*pathRecorder, string) {
	t.Helper()
	rec := &pathRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == detection.StopPath {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(delay):
			}
		}
		rec.add(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)
	return rec, srv.URL
}

func startCapturing(t *testing.T, url string) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Backend.URL = url

	app, err := New(cfg, camera.NewMockSource())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := app.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := app.Controller().Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	app.Controller().Wait()
	return app
}

func TestShutdownWhileCapturingWaitsForStop(t *testing.T) {
	rec, url := newStopBackend(t, 100*time.Millisecond)
	app := startCapturing(t, url)
	handle := app.Controller().Handle()

	app.Shutdown()

	paths := rec.all()
	if len(paths) != 2 || paths[1] != detection.StopPath {
		t.Fatalf("stop should be delivered before Shutdown returns: %v", paths)
	}
	if camera.Active(handle) {
		t.Error("Shutdown should release the camera")
	}
	if st := app.Controller().Status(); st.Backend == nil || st.Backend.Action != livecam.ActionStop || !st.Backend.OK {
		t.Errorf("outcome should be the stop answer: %+v", st.Backend)
	}
}

func TestShutdownGivesUpOnSlowStop(t *testing.T) {
	old := shutdownStopWait
	shutdownStopWait = 50 * time.Millisecond
	t.Cleanup(func() { shutdownStopWait = old })

	rec, url := newStopBackend(t, time.Minute)
	app := startCapturing(t, url)

	begin := time.Now()
	app.Shutdown()
	if took := time.Since(begin); took > 5*time.Second {
		t.Errorf("Shutdown took %v with a hung backend", took)
	}
	if app.Controller().State() != livecam.StateIdle {
		t.Error("camera should be released")
	}
	if paths := rec.all(); len(paths) != 1 || paths[0] != detection.StartPath {
		t.Errorf("hung stop should not be recorded: %v", paths)
	}
}

func TestShutdownWhenIdleSendsNothing(t *testing.T) {
	rec, url := newBackend(t)
	cfg := config.Default()
	cfg.Backend.URL = url

	app, err := New(cfg, camera.NewMockSource())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := app.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	app.Shutdown()

	if n := len(rec.all()); n != 0 {
		t.Errorf("idle shutdown should not contact the backend, got %d calls", n)
	}
}

func TestCameraConstraints(t *testing.T) {
	tests := []struct {
		name    string
		in      config.CameraConfig
		want    camera.Constraints
		wantErr bool
	}{
		{
			name: "defaults",
			in:   config.CameraConfig{Device: "0"},
			want: camera.DefaultConstraints(),
		},
		{
			name: "preset then override",
			in:   config.CameraConfig{Device: "/dev/video2", Preset: camera.Preset720p, Framerate: 15},
			want: func() camera.Constraints {
				c := camera.HD720Constraints()
				c.Device = "/dev/video2"
				c.Framerate = 15
				return c
			}(),
		},
		{name: "unknown preset", in: config.CameraConfig{Preset: "4k"}, wantErr: true},
		{name: "out of range", in: config.CameraConfig{Width: 10}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cameraConstraints(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
