package platform

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

type sdlWindow struct {
	window      *sdl.Window
	events      *core.EventBus
	logger      *core.Logger
	shouldClose bool
}

func newSDLWindow(config WindowConfig, events *core.EventBus, logger *core.Logger) (*sdlWindow, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "failed to initialize sdl")
	}

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN)
	if config.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}
	x, y := int32(sdl.WINDOWPOS_UNDEFINED), int32(sdl.WINDOWPOS_UNDEFINED)
	if config.X != 0 || config.Y != 0 {
		x, y = int32(config.X), int32(config.Y)
	}

	window, err := sdl.CreateWindow(config.Title, x, y, int32(config.Width), int32(config.Height), flags)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "failed to create window")
	}

	logger.Info("Window created", "backend", BackendSDL, "width", config.Width, "height", config.Height)
	return &sdlWindow{
		window: window,
		events: events,
		logger: logger,
	}, nil
}

func (w *sdlWindow) ProcessEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			w.shouldClose = true
			fireQuit(w.events, w)
		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_CLOSE:
				w.shouldClose = true
				fireQuit(w.events, w)
			case sdl.WINDOWEVENT_MINIMIZED:
				fireResized(w.events, w, 0, 0)
			case sdl.WINDOWEVENT_RESTORED, sdl.WINDOWEVENT_SIZE_CHANGED:
				fw, fh := w.FramebufferSize()
				fireResized(w.events, w, fw, fh)
			}
		case *sdl.KeyboardEvent:
			code, ok := sdlKeys[e.Keysym.Sym]
			if !ok || e.Repeat != 0 {
				continue
			}
			fireKey(w.events, w, code, e.Type == sdl.KEYDOWN)
		}
	}
}

func (w *sdlWindow) ShouldClose() bool {
	return w.shouldClose
}

func (w *sdlWindow) SetTitle(title string) {
	w.window.SetTitle(title)
}

func (w *sdlWindow) FramebufferSize() (uint32, uint32) {
	if w.window.GetFlags()&sdl.WINDOW_MINIMIZED != 0 {
		return 0, 0
	}
	width, height := w.window.VulkanGetDrawableSize()
	return clampSize(int(width), int(height))
}

func (w *sdlWindow) RequiredInstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

func (w *sdlWindow) GetInstanceProcAddress() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w *sdlWindow) CreateSurface(instance interface{}) (uintptr, error) {
	surface, err := w.window.VulkanCreateSurface(instance)
	if err != nil {
		return 0, err
	}
	return uintptr(surface), nil
}

func (w *sdlWindow) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}

var sdlKeys = map[sdl.Keycode]core.KeyCode{
	sdl.K_RETURN: core.KEY_ENTER,
	sdl.K_ESCAPE: core.KEY_ESCAPE,
	sdl.K_SPACE:  core.KEY_SPACE,
	sdl.K_F11:    core.KEY_F11,
}
