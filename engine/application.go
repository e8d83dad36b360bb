package engine

import (
	"bytes"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/platform"
	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

const DefaultConfigPath = "vulkantesting.toml"

type WindowConfig struct {
	Title string `toml:"title"`
	// Window starting position, if applicable.
	X uint32 `toml:"x"`
	Y uint32 `toml:"y"`
	// Window starting size.
	Width     uint32 `toml:"width"`
	Height    uint32 `toml:"height"`
	Resizable bool   `toml:"resizable"`
	// glfw or sdl
	Backend string `toml:"backend"`
}

type RendererConfig struct {
	Validation     bool       `toml:"validation"`
	FramesInFlight int        `toml:"frames_in_flight"`
	ExtraImages    uint32     `toml:"extra_images"`
	ClampExtent    bool       `toml:"clamp_extent"`
	RecordEachTick bool       `toml:"record_each_tick"`
	PresentThread  bool       `toml:"present_thread"`
	FenceTimeoutMs uint32     `toml:"fence_timeout_ms"`
	StallAbortMs   uint32     `toml:"stall_abort_ms"`
	ClearColor     [4]float32 `toml:"clear_color"`
}

type ShaderConfig struct {
	Dir      string `toml:"dir"`
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
}

type LogConfig struct {
	Level        string `toml:"level"`
	File         string `toml:"file"`
	ReportCaller bool   `toml:"report_caller"`
}

type DebugConfig struct {
	BreakOnValidation bool `toml:"break_on_validation"`
	WatchConfig       bool `toml:"watch_config"`
}

// ApplicationConfig is everything the application reads at startup.
type ApplicationConfig struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Shaders  ShaderConfig   `toml:"shaders"`
	Log      LogConfig      `toml:"log"`
	Debug    DebugConfig    `toml:"debug"`

	// Path the configuration was loaded from, empty when defaults are used.
	Path string `toml:"-"`
	// KeepHanging keeps the process alive after shutdown.
	KeepHanging bool `toml:"-"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	opts := renderer.DefaultOptions()
	return &ApplicationConfig{
		Window: WindowConfig{
			Title:     "Vulkan Testing",
			Width:     1024,
			Height:    512,
			Resizable: true,
			Backend:   platform.BackendGLFW,
		},
		Renderer: RendererConfig{
			Validation:     true,
			FramesInFlight: opts.FramesInFlight,
			ExtraImages:    opts.ExtraImages,
			ClampExtent:    opts.ClampExtent,
			RecordEachTick: opts.RecordEachTick,
			PresentThread:  opts.PresentThread,
			FenceTimeoutMs: opts.FenceTimeoutMs,
			StallAbortMs:   opts.StallAbortMs,
			ClearColor:     opts.ClearColor,
		},
		Shaders: ShaderConfig{
			Dir:      "assets/shaders",
			Vertex:   "vert.spv",
			Fragment: "frag.spv",
		},
		Log: LogConfig{
			Level: "debug",
			File:  "vulkantesting.log",
		},
	}
}

// LoadApplicationConfig reads path over the defaults. A missing file is not an
// error. Environment overrides are applied last.
func LoadApplicationConfig(path string, env core.Environment) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	if env.ConfigPath != "" {
		path = env.ConfigPath
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, errors.Wrapf(err, "reading config %s", path)
		default:
			if err := decodeConfig(data, config); err != nil {
				return nil, errors.Wrapf(err, "parsing config %s", path)
			}
			config.Path = path
		}
	}

	config.applyEnvironment(env)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func decodeConfig(data []byte, config *ApplicationConfig) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(config)
}

func (c *ApplicationConfig) applyEnvironment(env core.Environment) {
	if env.DisableValidation {
		c.Renderer.Validation = false
	}
	if env.WindowBackend != "" {
		c.Window.Backend = env.WindowBackend
	}
	c.KeepHanging = env.KeepHanging
}

func (c *ApplicationConfig) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Newf("window size %dx%d is invalid", c.Window.Width, c.Window.Height)
	}
	switch c.Window.Backend {
	case "", platform.BackendGLFW, platform.BackendSDL:
	default:
		return errors.Newf("unknown window backend %q", c.Window.Backend)
	}
	if c.Renderer.FramesInFlight < 1 {
		return errors.Newf("frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	}
	if c.Renderer.FenceTimeoutMs > 0 && c.Renderer.StallAbortMs < c.Renderer.FenceTimeoutMs {
		return errors.Newf("stall_abort_ms (%d) is shorter than fence_timeout_ms (%d)",
			c.Renderer.StallAbortMs, c.Renderer.FenceTimeoutMs)
	}
	if c.Shaders.Vertex == "" || c.Shaders.Fragment == "" {
		return errors.New("both shader stages must be named")
	}
	return nil
}

// RendererOptions maps the configuration onto the scheduler options.
func (c *ApplicationConfig) RendererOptions() renderer.Options {
	return renderer.Options{
		FramesInFlight: c.Renderer.FramesInFlight,
		ExtraImages:    c.Renderer.ExtraImages,
		ClampExtent:    c.Renderer.ClampExtent,
		RecordEachTick: c.Renderer.RecordEachTick,
		FenceTimeoutMs: c.Renderer.FenceTimeoutMs,
		StallAbortMs:   c.Renderer.StallAbortMs,
		PresentThread:  c.Renderer.PresentThread,
		ClearColor:     mgl32.Vec4(c.Renderer.ClearColor),
	}
}

func (c *ApplicationConfig) WindowOptions() platform.WindowConfig {
	return platform.WindowConfig{
		Title:     c.Window.Title,
		X:         c.Window.X,
		Y:         c.Window.Y,
		Width:     c.Window.Width,
		Height:    c.Window.Height,
		Resizable: c.Window.Resizable,
	}
}

func (c *ApplicationConfig) LoggerOptions() core.LoggerOptions {
	return core.LoggerOptions{
		Level:        c.Log.Level,
		File:         c.Log.File,
		ReportCaller: c.Log.ReportCaller,
	}
}
