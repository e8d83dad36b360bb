package renderer

import (
	vk "github.com/goki/vulkan"
)

// WaitForever is the timeout passed to blocking GPU waits that must only
// return once the GPU is done.
const WaitForever uint64 = ^uint64(0)

// Object is any GPU resource with an explicit lifetime.
type Object interface {
	Destroy()
}

// Image is a presentable image owned by a swapchain. It is never destroyed by
// the application.
type Image interface{}

type ImageView interface{ Object }

type Framebuffer interface{ Object }

type RenderPass interface{ Object }

type Pipeline interface{ Object }

type Semaphore interface{ Object }

// Fence is a GPU to CPU completion signal.
type Fence interface {
	Object
	// Wait blocks until the fence is signaled. A timeout is reported as
	// core.ErrFenceTimeout.
	Wait(timeoutNs uint64) error
	Signaled() (bool, error)
	// Reset moves a signaled fence back to unsignaled.
	Reset() error
}

// CommandBuffer records the fixed frame: clear, bind pipeline, draw 3 vertices.
type CommandBuffer interface {
	Object
	Record(pass RenderPass, framebuffer Framebuffer, pipeline Pipeline, extent vk.Extent2D, clear [4]float32) error
}

// CommandPool is private to one swapchain image.
type CommandPool interface {
	Object
	Allocate() (CommandBuffer, error)
	Reset() error
}

type Swapchain interface {
	Object
	Images() ([]Image, error)
	// AcquireNextImage signals the semaphore once the image is ready. A stale
	// surface is reported as core.ErrSurfaceOutOfDate.
	AcquireNextImage(timeoutNs uint64, signal Semaphore) (uint32, error)
}

// Device is the logical device plus its queues, as seen by the swapchain
// manager and the frame scheduler.
type Device interface {
	WaitIdle() error
	QueueFamilies() QueueFamilyIndices
	QuerySwapchainSupport() (*SwapchainSupport, error)
	// FramebufferSize is the window size in pixels, used when the surface does
	// not dictate an extent.
	FramebufferSize() (uint32, uint32)

	CreateSwapchain(config *SwapchainConfig, previous Swapchain) (Swapchain, error)
	CreateImageView(image Image, format vk.Format) (ImageView, error)
	CreateRenderPass(format vk.Format) (RenderPass, error)
	CreatePipeline(pass RenderPass, extent vk.Extent2D, shaders *ShaderSet) (Pipeline, error)
	CreateFramebuffer(pass RenderPass, view ImageView, extent vk.Extent2D) (Framebuffer, error)
	CreateCommandPool() (CommandPool, error)
	CreateSemaphore() (Semaphore, error)
	CreateFence(signaled bool) (Fence, error)

	// Submit waits on wait at the color attachment output stage, signals
	// signal and then fence.
	Submit(cb CommandBuffer, wait, signal Semaphore, fence Fence) error
	// Present reports a stale or suboptimal surface as core.ErrSurfaceOutOfDate.
	Present(swapchain Swapchain, imageIndex uint32, wait Semaphore) error
}
