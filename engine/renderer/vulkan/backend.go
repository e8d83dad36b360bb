package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

// Window is what the backend needs from the platform layer.
type Window interface {
	Surfacer
	FramebufferSizer
	GetInstanceProcAddress() unsafe.Pointer
}

type RendererConfig struct {
	ApplicationName string
	Validation      bool
	// BreakOnValidation traps into an attached debugger on every validation
	// warning or error.
	BreakOnValidation bool
	Options           renderer.Options
	Requirements      renderer.AdapterRequirements
}

// VulkanRenderer owns every Vulkan object of the application. Objects are
// torn down in reverse creation order.
type VulkanRenderer struct {
	FrameNumber uint64

	window  Window
	config  RendererConfig
	logger  *core.Logger
	context *VulkanContext
	device  *VulkanDevice

	swapchain *renderer.SwapchainManager
	scheduler *renderer.FrameScheduler

	teardown []func()
}

func New(window Window, config RendererConfig, logger *core.Logger) *VulkanRenderer {
	return &VulkanRenderer{
		window: window,
		config: config,
		logger: logger,
	}
}

func (vr *VulkanRenderer) push(fn func()) {
	vr.teardown = append(vr.teardown, fn)
}

// Initialize brings up the instance, device, swapchain and frame slots. On
// failure everything created so far is released again.
func (vr *VulkanRenderer) Initialize(shaders *renderer.ShaderSet) (err error) {
	defer func() {
		if err != nil {
			vr.release()
		}
	}()

	procAddr := vr.window.GetInstanceProcAddress()
	if procAddr == nil {
		return errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize vk")
	}

	ctxConfig := ContextConfig{
		ApplicationName: vr.config.ApplicationName,
		Validation:      vr.config.Validation,
	}
	if vr.config.BreakOnValidation {
		ctxConfig.BreakOnValidation = func(severity renderer.Severity, id string) {
			runtime.Breakpoint()
		}
	}
	vr.context, err = NewContext(ctxConfig, vr.window, vr.logger)
	if err != nil {
		return err
	}
	vr.push(vr.context.Destroy)

	adapters, err := EnumerateAdapters(vr.context)
	if err != nil {
		return err
	}
	adapter, families, err := renderer.SelectAdapter(adapters, vr.config.Requirements, vr.logger)
	if err != nil {
		return err
	}

	vr.device, err = NewDevice(vr.context, adapter, families, vr.window, vr.logger)
	if err != nil {
		return err
	}
	vr.push(vr.device.Destroy)

	vr.swapchain = renderer.NewSwapchainManager(vr.device, shaders, vr.config.Options, vr.logger)
	if err := vr.swapchain.Create(); err != nil {
		return errors.Wrap(err, "failed to create swapchain")
	}
	vr.push(vr.swapchain.Destroy)

	vr.scheduler, err = renderer.NewFrameScheduler(vr.device, vr.swapchain, vr.config.Options, vr.logger)
	if err != nil {
		return errors.Wrap(err, "failed to create frame slots")
	}
	vr.push(vr.scheduler.Destroy)

	vr.logger.Info("Vulkan renderer initialized successfully.",
		"adapter", adapter.Name, "swapchain", vr.swapchain.State().Config.String())
	return nil
}

// Resized schedules a swapchain recreation for the next frame.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.logger.Debug("Framebuffer resized", "width", width, "height", height)
	if vr.scheduler != nil {
		vr.scheduler.RequestRecreate()
	}
}

func (vr *VulkanRenderer) DrawFrame() error {
	if err := vr.scheduler.Tick(); err != nil {
		return err
	}
	vr.FrameNumber++
	return nil
}

// WaitIdle also flushes presents still queued on the presenter thread.
func (vr *VulkanRenderer) WaitIdle() error {
	if vr.scheduler != nil {
		return vr.scheduler.Idle()
	}
	if vr.device == nil {
		return nil
	}
	return vr.device.WaitIdle()
}

// Shutdown waits for the GPU and releases everything. It is safe to call more
// than once.
func (vr *VulkanRenderer) Shutdown() {
	if err := vr.WaitIdle(); err != nil {
		vr.logger.Error("failed to wait for device idle before shutdown", "err", err)
	}
	vr.release()
}

func (vr *VulkanRenderer) release() {
	for i := len(vr.teardown) - 1; i >= 0; i-- {
		vr.teardown[i]()
	}
	vr.teardown = nil
	vr.scheduler = nil
	vr.swapchain = nil
	vr.device = nil
	vr.context = nil
}
