// Package detection is the client for the AI live-camera detection backend.
//
// The backend exposes two commands, each a POST with an empty body answering JSON:
//
//	POST /api/start_live_camera
//	POST /api/stop_live_camera
//
// Any non-2xx status is a failure (*APIError); network failures are *TransportError.
package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teslashibe/go-livecam/internal/httpc"
)

// Endpoint paths.
const (
	StartPath = "/api/start_live_camera"
	StopPath  = "/api/stop_live_camera"
)

// maxBody bounds how much of a response is read.
const maxBody = 1 << 20

// Response is the parsed JSON body of a successful command.
type Response map[string]interface{}

// Status returns the "status" field, if the backend sent one.
func (r Response) Status() string {
	s, _ := r["status"].(string)
	return s
}

// Config holds client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Client issues detection commands.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	cfg := &Config{
		BaseURL: baseURL,
		Timeout: httpc.DefaultTimeout,
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("detection: parse base URL: %w", err)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpc.NewClient(cfg.Timeout)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StartDetection asks the backend to begin live-camera detection.
func (c *Client) StartDetection(ctx context.Context) (Response, error) {
	return c.command(ctx, StartPath)
}

// StopDetection asks the backend to stop live-camera detection.
func (c *Client) StopDetection(ctx context.Context) (Response, error) {
	return c.command(ctx, StopPath)
}

func (c *Client) command(ctx context.Context, path string) (Response, error) {
	start := time.Now()

	resp, err := httpc.PostEmpty(ctx, c.http, c.baseURL+path)
	if err != nil {
		return nil, &TransportError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &TransportError{Endpoint: path, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("detection command",
		"endpoint", path,
		"status", resp.StatusCode,
		"latency", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Endpoint: path, StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w from %s: %v", ErrInvalidResponse, path, err)
	}
	if out == nil {
		// "null" decodes without error but is not an object.
		return nil, fmt.Errorf("%w from %s: null", ErrInvalidResponse, path)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
