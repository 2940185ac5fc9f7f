// Package camera defines local capture streams, their constraints and the
// runtime-configurable settings applied to the next capture.
package camera

import "fmt"

// Constraints describes what a capture request asks the platform for.
// These can be modified via the camera API at runtime.
type Constraints struct {
	Video bool `json:"video"`
	Audio bool `json:"audio"`

	// Device selects the capture device: an index ("0") or a path/URL.
	Device string `json:"device"`

	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100 for preview frames
}

// Device limits.
const (
	MinWidth     = 160
	MinHeight    = 120
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 60
)

// DefaultConstraints returns the video-only VGA configuration.
func DefaultConstraints() Constraints {
	return Constraints{
		Video:     true,
		Audio:     false,
		Device:    "0",
		Width:     640,
		Height:    480,
		Framerate: 30,
		Quality:   80,
	}
}

// VideoOnly returns a copy with video requested and audio disabled.
func (c Constraints) VideoOnly() Constraints {
	c.Video = true
	c.Audio = false
	return c
}

// Validate checks if the constraint values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Constraints) Validate() []string {
	var errors []string

	if !c.Video {
		errors = append(errors, "video must be requested")
	}
	if c.Audio {
		errors = append(errors, "audio capture is not supported")
	}

	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}

// Capabilities returns the supported ranges, for the dashboard.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"min_width":     MinWidth,
		"min_height":    MinHeight,
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"audio":         false,
		"presets":       PresetNames(),
	}
}
