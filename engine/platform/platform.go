package platform

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/math"
)

func init() {
	// Window system event handling must run on the main OS thread
	runtime.LockOSThread()
}

const (
	BackendGLFW = "glfw"
	BackendSDL  = "sdl"
)

type WindowConfig struct {
	Title     string
	X, Y      uint32
	Width     uint32
	Height    uint32
	Resizable bool
}

// Window is a native window that can host a Vulkan surface. All methods must
// be called from the main thread.
type Window interface {
	// ProcessEvents pumps the native queue and fires the matching events on
	// the bus.
	ProcessEvents()
	ShouldClose() bool
	SetTitle(title string)
	// FramebufferSize is the drawable size in pixels; zero while minimized.
	FramebufferSize() (uint32, uint32)
	RequiredInstanceExtensions() []string
	GetInstanceProcAddress() unsafe.Pointer
	CreateSurface(instance interface{}) (uintptr, error)
	Destroy()
}

// New opens a window on the requested backend. An empty backend means GLFW.
func New(backend string, config WindowConfig, events *core.EventBus, logger *core.Logger) (Window, error) {
	if config.Width == 0 || config.Height == 0 {
		return nil, errors.Newf("invalid window size %dx%d", config.Width, config.Height)
	}
	switch backend {
	case "", BackendGLFW:
		return newGLFWWindow(config, events, logger)
	case BackendSDL:
		return newSDLWindow(config, events, logger)
	}
	return nil, errors.Newf("unknown window backend %q", backend)
}

func fireQuit(events *core.EventBus, sender interface{}) {
	events.Fire(core.EVENT_CODE_APPLICATION_QUIT, sender, core.EventContext{})
}

func fireKey(events *core.EventBus, sender interface{}, key core.KeyCode, pressed bool) {
	context := core.EventContext{}
	context.Data.U16[0] = uint16(key)
	code := core.EVENT_CODE_KEY_RELEASED
	if pressed {
		code = core.EVENT_CODE_KEY_PRESSED
	}
	events.Fire(code, sender, context)
}

func fireResized(events *core.EventBus, sender interface{}, width, height uint32) {
	context := core.EventContext{}
	context.Data.U32[0] = width
	context.Data.U32[1] = height
	events.Fire(core.EVENT_CODE_RESIZED, sender, context)
}

func clampSize(w, h int) (uint32, uint32) {
	return uint32(math.Max(w, 0)), uint32(math.Max(h, 0))
}
