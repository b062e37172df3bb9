package compose

import "strings"

// Preset pins the delivery resolution, frame rate, and video bitrate.
type Preset struct {
	Name         string
	Width        int
	Height       int
	FPS          int
	VideoBitrate string
}

var presets = []Preset{
	{Name: "fast", Width: 1920, Height: 1080, FPS: 30, VideoBitrate: "5M"},
	{Name: "balanced", Width: 1920, Height: 1080, FPS: 30, VideoBitrate: "8M"},
	{Name: "maximum", Width: 1920, Height: 1080, FPS: 60, VideoBitrate: "12M"},
}

// Presets returns the known quality presets in ascending quality order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// PresetByName resolves a preset, case-insensitively.
func PresetByName(name string) (Preset, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, preset := range presets {
		if preset.Name == name {
			return preset, true
		}
	}
	return Preset{}, false
}
