package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

const ValidationLayerName = "VK_LAYER_KHRONOS_validation"

// Surfacer is the part of the window the context needs.
type Surfacer interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance interface{}) (uintptr, error)
}

// VulkanContext owns the instance, the debug callback and the surface. It is
// created first and destroyed last.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	ValidationEnabled bool

	debugCallback vk.DebugReportCallback
	diagnostics   *renderer.Diagnostics
	logger        *core.Logger
}

type ContextConfig struct {
	ApplicationName string
	Validation      bool
	// BreakOnValidation installs a break hook on the diagnostics sink.
	BreakOnValidation func(severity renderer.Severity, id string)
}

// NewContext creates the instance, installs the diagnostics callback and
// creates the window surface. vk.Init must have been called.
func NewContext(cfg ContextConfig, window Surfacer, logger *core.Logger) (*VulkanContext, error) {
	c := &VulkanContext{
		ValidationEnabled: cfg.Validation,
		logger:            logger,
	}
	var err error
	defer func() {
		if err != nil {
			c.Destroy()
		}
	}()

	if err = c.createInstance(cfg.ApplicationName, window.RequiredInstanceExtensions()); err != nil {
		return nil, err
	}

	if cfg.Validation {
		c.diagnostics = renderer.NewDiagnostics(logger.Named("validation"))
		c.diagnostics.BreakHook = cfg.BreakOnValidation
		if err = c.createDebugCallback(c.diagnostics); err != nil {
			return nil, err
		}
	}

	logger.Debug("Creating Vulkan surface...")
	surface, err := window.CreateSurface(c.Instance)
	if err != nil {
		err = errors.Wrap(err, "failed to create window surface")
		return nil, err
	}
	c.Surface = vk.SurfaceFromPointer(surface)
	logger.Debug("Vulkan surface created.")
	return c, nil
}

// Diagnostics is nil when validation is disabled.
func (vc *VulkanContext) Diagnostics() *renderer.Diagnostics {
	return vc.diagnostics
}

// Destroy releases whatever was created so far. Safe on a partially built or
// nil context.
func (vc *VulkanContext) Destroy() {
	if vc == nil {
		return
	}
	if vc.Surface != vk.NullSurface {
		vc.logger.Debug("Destroying Vulkan surface...")
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}

	if vc.debugCallback != vk.NullDebugReportCallback {
		vc.logger.Debug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugCallback, vc.Allocator)
		vc.debugCallback = vk.NullDebugReportCallback
	}
	if vc.diagnostics != nil {
		vc.logger.Info("Validation summary", "messages", vc.diagnostics.Emitted())
	}
	if !vc.ValidationEnabled {
		vc.logger.Warn("VALIDATION LAYERS WERE DISABLED FOR THIS RUN, ERRORS MAY HAVE GONE UNREPORTED")
	}

	if vc.Instance != nil {
		vc.logger.Debug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}
