package platform

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

type glfwWindow struct {
	window *glfw.Window
	events *core.EventBus
	logger *core.Logger
}

func newGLFWWindow(config WindowConfig, events *core.EventBus, logger *core.Logger) (*glfwWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("glfw reports no Vulkan loader")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.
	if config.Resizable {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}

	window, err := glfw.CreateWindow(int(config.Width), int(config.Height), config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "failed to create window")
	}

	w := &glfwWindow{
		window: window,
		events: events,
		logger: logger,
	}
	window.SetCloseCallback(w.closeCallback)
	window.SetKeyCallback(w.keyCallback)
	window.SetFramebufferSizeCallback(w.framebufferSizeCallback)
	if config.X != 0 || config.Y != 0 {
		window.SetPos(int(config.X), int(config.Y))
	}
	window.Show()

	logger.Info("Window created", "backend", BackendGLFW, "width", config.Width, "height", config.Height)
	return w, nil
}

func (w *glfwWindow) ProcessEvents() {
	glfw.PollEvents()
}

func (w *glfwWindow) ShouldClose() bool {
	return w.window.ShouldClose()
}

func (w *glfwWindow) SetTitle(title string) {
	w.window.SetTitle(title)
}

func (w *glfwWindow) FramebufferSize() (uint32, uint32) {
	return clampSize(w.window.GetFramebufferSize())
}

func (w *glfwWindow) RequiredInstanceExtensions() []string {
	return w.window.GetRequiredInstanceExtensions()
}

func (w *glfwWindow) GetInstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (w *glfwWindow) CreateSurface(instance interface{}) (uintptr, error) {
	return w.window.CreateWindowSurface(instance, nil)
}

func (w *glfwWindow) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	glfw.Terminate()
}

func (w *glfwWindow) closeCallback(window *glfw.Window) {
	fireQuit(w.events, w)
}

func (w *glfwWindow) keyCallback(window *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := glfwKeys[key]
	if !ok {
		return
	}
	switch action {
	case glfw.Press:
		fireKey(w.events, w, code, true)
	case glfw.Release:
		fireKey(w.events, w, code, false)
	}
}

func (w *glfwWindow) framebufferSizeCallback(window *glfw.Window, width, height int) {
	fw, fh := clampSize(width, height)
	fireResized(w.events, w, fw, fh)
}

var glfwKeys = map[glfw.Key]core.KeyCode{
	glfw.KeyEnter:  core.KEY_ENTER,
	glfw.KeyEscape: core.KEY_ESCAPE,
	glfw.KeySpace:  core.KEY_SPACE,
	glfw.KeyF11:    core.KEY_F11,
}
