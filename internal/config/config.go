// Package config loads go-livecam configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultPort         = "8181"
	DefaultBackendURL   = "http://localhost:5000"
	DefaultTimeout      = 10 * time.Second
	DefaultDevice       = "0"
	DefaultDetectorPort = "5000"
	DefaultModelPath    = "models/yolov8s.onnx"
)

// ServerConfig configures the station dashboard.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// BackendConfig points at the detection backend.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"` // per-request, e.g. "10s"
}

// CameraConfig selects the local capture device and its constraints.
type CameraConfig struct {
	Device    string `yaml:"device"` // index ("0") or path/URL
	Preset    string `yaml:"preset"` // optional, applied before the fields below
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Framerate int    `yaml:"framerate"`
	Quality   int    `yaml:"quality"` // JPEG quality for the preview
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DetectorConfig configures cmd/detectord.
type DetectorConfig struct {
	Port       string        `yaml:"port"`
	ModelPath  string        `yaml:"model_path"`
	Device     string        `yaml:"device"`
	Classes    []string      `yaml:"classes"` // class names by model output index; empty = COCO
	Alert      []string      `yaml:"alert"`   // class names worth a warning; empty = all
	Confidence float64       `yaml:"confidence"`
	NMS        float64       `yaml:"nms"`
	Interval   time.Duration `yaml:"interval"` // time between analysed frames
}

// Config aggregates all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Camera   CameraConfig   `yaml:"camera"`
	Log      LogConfig      `yaml:"log"`
	Detector DetectorConfig `yaml:"detector"`
}

// Default returns a config usable without any file.
func Default() Config {
	return Config{
		Server:  ServerConfig{Port: DefaultPort},
		Backend: BackendConfig{URL: DefaultBackendURL, Timeout: DefaultTimeout},
		Camera:  CameraConfig{Device: DefaultDevice},
		Log:     LogConfig{Level: "info"},
		Detector: DetectorConfig{
			Port:       DefaultDetectorPort,
			ModelPath:  DefaultModelPath,
			Device:     DefaultDevice,
			Confidence: 0.5,
			NMS:        0.45,
			Interval:   200 * time.Millisecond,
		},
	}
}

// Load builds the configuration.
// Priority (highest to lowest): environment (.env included) > YAML file > defaults.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	}

	cfg.ApplyEnv()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LIVECAM_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("LIVECAM_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("LIVECAM_DEVICE"); v != "" {
		c.Camera.Device = v
	}
	if v := os.Getenv("LIVECAM_PRESET"); v != "" {
		c.Camera.Preset = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DETECTORD_PORT"); v != "" {
		c.Detector.Port = v
	}
	if v := os.Getenv("DETECTOR_MODEL"); v != "" {
		c.Detector.ModelPath = v
	}
	if v := os.Getenv("DETECTOR_DEVICE"); v != "" {
		c.Detector.Device = v
	}
}

// fillDefaults restores defaults for fields a YAML file blanked out.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
	if c.Backend.URL == "" {
		c.Backend.URL = d.Backend.URL
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = d.Backend.Timeout
	}
	if c.Camera.Device == "" {
		c.Camera.Device = d.Camera.Device
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Detector.Port == "" {
		c.Detector.Port = d.Detector.Port
	}
	if c.Detector.ModelPath == "" {
		c.Detector.ModelPath = d.Detector.ModelPath
	}
	if c.Detector.Device == "" {
		c.Detector.Device = d.Detector.Device
	}
	if c.Detector.Confidence == 0 {
		c.Detector.Confidence = d.Detector.Confidence
	}
	if c.Detector.NMS == 0 {
		c.Detector.NMS = d.Detector.NMS
	}
	if c.Detector.Interval <= 0 {
		c.Detector.Interval = d.Detector.Interval
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.url must be an absolute URL, got %q", c.Backend.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url scheme must be http or https, got %q", u.Scheme)
	}
	if err := validPort(c.Server.Port); err != nil {
		return fmt.Errorf("server.port: %w", err)
	}
	if err := validPort(c.Detector.Port); err != nil {
		return fmt.Errorf("detector.port: %w", err)
	}
	if c.Detector.Confidence < 0 || c.Detector.Confidence > 1 {
		return fmt.Errorf("detector.confidence must be between 0 and 1, got %.2f", c.Detector.Confidence)
	}
	if c.Detector.NMS < 0 || c.Detector.NMS > 1 {
		return fmt.Errorf("detector.nms must be between 0 and 1, got %.2f", c.Detector.NMS)
	}
	return nil
}

// BackendBaseURL returns the backend URL without a trailing slash.
func (c *Config) BackendBaseURL() string {
	return strings.TrimRight(c.Backend.URL, "/")
}

func validPort(p string) error {
	n, err := strconv.Atoi(p)
	if err != nil {
		return fmt.Errorf("not a number: %q", p)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("out of range: %d", n)
	}
	return nil
}
