package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLow     = "low"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
)

// Presets returns all available preset configurations.
func Presets() map[string]Constraints {
	return map[string]Constraints{
		PresetDefault: DefaultConstraints(),
		PresetLow:     LowBandwidthConstraints(),
		Preset720p:    HD720Constraints(),
		Preset1080p:   HD1080Constraints(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLow,
		Preset720p,
		Preset1080p,
	}
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *Constraints {
	if c, ok := Presets()[name]; ok {
		return &c
	}
	return nil
}

// LowBandwidthConstraints keeps the preview light for remote viewers.
func LowBandwidthConstraints() Constraints {
	c := DefaultConstraints()
	c.Width = 320
	c.Height = 240
	c.Framerate = 15
	c.Quality = 60
	return c
}

// HD720Constraints returns 720p HD configuration.
func HD720Constraints() Constraints {
	c := DefaultConstraints()
	c.Width = 1280
	c.Height = 720
	return c
}

// HD1080Constraints returns 1080p Full HD configuration.
// Higher CPU usage for the JPEG preview.
func HD1080Constraints() Constraints {
	c := DefaultConstraints()
	c.Width = 1920
	c.Height = 1080
	c.Quality = 85
	return c
}
