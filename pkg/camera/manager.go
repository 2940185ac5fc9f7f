package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the constraints used for the next capture and handles updates.
// Changes never touch a stream that is already running.
type Manager struct {
	constraints Constraints
	mu          sync.RWMutex

	// Callback when constraints change
	OnChange func(c Constraints)
}

// NewManager creates a new manager with the given constraints.
func NewManager(initial Constraints) *Manager {
	return &Manager{
		constraints: initial.VideoOnly(),
	}
}

// Constraints returns the current constraints.
func (m *Manager) Constraints() Constraints {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.constraints
}

// Set replaces the constraints after validation.
func (m *Manager) Set(c Constraints) error {
	if errs := c.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	m.mu.Lock()
	m.constraints = c
	callback := m.OnChange
	m.mu.Unlock()

	if callback != nil {
		callback(c)
	}
	return nil
}

// Update updates specific fields of the constraints.
// Accepts a map of field names to values; "preset" is applied first and keeps the device.
func (m *Manager) Update(params map[string]interface{}) error {
	c := m.Constraints()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		device := c.Device
		c = *preset
		c.Device = device
	}

	for key, value := range params {
		switch key {
		case "device":
			if v, ok := value.(string); ok {
				c.Device = v
			}
		case "width":
			if v, ok := toInt(value); ok {
				c.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				c.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				c.Framerate = v
			}
		case "quality":
			if v, ok := toInt(value); ok {
				c.Quality = v
			}
		case "audio":
			if v, ok := value.(bool); ok {
				c.Audio = v
			}
		}
	}

	return m.Set(c)
}

// JSON returns the current constraints as a map for JSON serialization.
func (m *Manager) JSON() map[string]interface{} {
	data, _ := json.Marshal(m.Constraints())
	var result map[string]interface{}
	_ = json.Unmarshal(data, &result)
	return result
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
