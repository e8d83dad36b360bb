package core

import (
	"os"
	"strings"
)

const (
	EnvDisableValidation = "VKT_DISABLE_VALIDATION"
	EnvKeepHanging       = "VKT_KEEP_HANGING"
	EnvLayerPath         = "VK_LAYER_PATH"
	EnvWindowBackend     = "VKT_WINDOW_BACKEND"
	EnvConfigPath        = "VKT_CONFIG"
	EnvVideoDriver       = "SDL_VIDEODRIVER"
	EnvWaylandDisplay    = "WAYLAND_DISPLAY"
	EnvDisplay           = "DISPLAY"
)

// Environment is a snapshot of the process variables the application reacts to.
type Environment struct {
	DisableValidation bool
	KeepHanging       bool
	LayerPath         string
	WindowBackend     string
	ConfigPath        string
	VideoDriver       string
	WaylandDisplay    string
	Display           string
}

// ProbeEnvironment reads the variables through lookup, usually os.LookupEnv.
// Flags count as set when present, whatever their value, unless the value is
// an explicit "0" or "false".
func ProbeEnvironment(lookup func(string) (string, bool)) Environment {
	value := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	flag := func(key string) bool {
		v, ok := lookup(key)
		if !ok {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "false", "no", "off":
			return false
		}
		return true
	}

	return Environment{
		DisableValidation: flag(EnvDisableValidation),
		KeepHanging:       flag(EnvKeepHanging),
		LayerPath:         value(EnvLayerPath),
		WindowBackend:     strings.ToLower(value(EnvWindowBackend)),
		ConfigPath:        value(EnvConfigPath),
		VideoDriver:       strings.ToLower(value(EnvVideoDriver)),
		WaylandDisplay:    value(EnvWaylandDisplay),
		Display:           value(EnvDisplay),
	}
}

func ProcessEnvironment() Environment {
	return ProbeEnvironment(os.LookupEnv)
}

// SurfaceKind names the native surface the window system will hand out on goos.
func (e Environment) SurfaceKind(goos string) string {
	switch goos {
	case "windows":
		return "win32"
	case "darwin", "ios":
		return "metal"
	}
	switch e.VideoDriver {
	case "wayland":
		return "wayland"
	case "x11":
		return "x11"
	}
	if e.Display == "" && e.WaylandDisplay != "" {
		return "wayland"
	}
	return "x11"
}
