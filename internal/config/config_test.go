package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "livecam.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LIVECAM_BACKEND_URL", "LIVECAM_PORT", "LIVECAM_DEVICE", "LIVECAM_PRESET",
		"LOG_LEVEL", "DETECTORD_PORT", "DETECTOR_MODEL", "DETECTOR_DEVICE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("port: got %q, want %q", cfg.Server.Port, DefaultPort)
	}
	if cfg.Backend.URL != DefaultBackendURL {
		t.Errorf("backend url: got %q", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != DefaultTimeout {
		t.Errorf("timeout: got %v", cfg.Backend.Timeout)
	}
	if cfg.Camera.Device != "0" {
		t.Errorf("device: got %q", cfg.Camera.Device)
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeYAML(t, `
server:
  port: "9090"
backend:
  url: "http://detector.local:5000/"
  timeout: 3s
camera:
  device: "/dev/video2"
  preset: "720p"
  quality: 70
log:
  level: debug
detector:
  classes: ["pistol", "knife"]
  alert: ["pistol"]
  interval: 500ms
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port: got %q", cfg.Server.Port)
	}
	if cfg.Backend.Timeout != 3*time.Second {
		t.Errorf("timeout: got %v", cfg.Backend.Timeout)
	}
	if cfg.BackendBaseURL() != "http://detector.local:5000" {
		t.Errorf("base url: got %q", cfg.BackendBaseURL())
	}
	if cfg.Camera.Device != "/dev/video2" || cfg.Camera.Preset != "720p" || cfg.Camera.Quality != 70 {
		t.Errorf("camera: got %+v", cfg.Camera)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level: got %q", cfg.Log.Level)
	}
	if len(cfg.Detector.Classes) != 2 || cfg.Detector.Alert[0] != "pistol" {
		t.Errorf("detector classes: got %+v", cfg.Detector)
	}
	if cfg.Detector.Interval != 500*time.Millisecond {
		t.Errorf("interval: got %v", cfg.Detector.Interval)
	}
	// Untouched detector fields keep their defaults.
	if cfg.Detector.Confidence != 0.5 || cfg.Detector.ModelPath != DefaultModelPath {
		t.Errorf("detector defaults lost: %+v", cfg.Detector)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeYAML(t, "server:\n  port: \"9090\"\n")
	t.Setenv("LIVECAM_PORT", "7070")
	t.Setenv("LIVECAM_BACKEND_URL", "https://ai.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port: got %q, want env value 7070", cfg.Server.Port)
	}
	if cfg.Backend.URL != "https://ai.example.com" {
		t.Errorf("backend: got %q", cfg.Backend.URL)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad yaml", "server: [", "unmarshal yaml"},
		{"relative backend", "backend:\n  url: \"/api\"\n", "absolute URL"},
		{"bad scheme", "backend:\n  url: \"ftp://host\"\n", "scheme"},
		{"bad port", "server:\n  port: \"http\"\n", "server.port"},
		{"port range", "server:\n  port: \"70000\"\n", "out of range"},
		{"confidence", "detector:\n  confidence: 1.5\n", "detector.confidence"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeYAML(t, tc.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q should mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
