package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

type VulkanSwapchain struct {
	Handle vk.Swapchain
	device *VulkanDevice
}

// CreateSwapchain creates a swapchain from a negotiated config. previous, when
// set, is handed to the driver as the old swapchain; the caller still
// destroys it.
func (vd *VulkanDevice) CreateSwapchain(config *renderer.SwapchainConfig, previous renderer.Swapchain) (renderer.Swapchain, error) {
	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vd.context.Surface,
		MinImageCount:    config.ImageCount,
		ImageFormat:      config.Format,
		ImageColorSpace:  config.ColorSpace,
		ImageExtent:      config.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: config.SharingMode,
		PreTransform:     config.PreTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      config.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     nil,
	}
	if config.SharingMode == vk.SharingModeConcurrent {
		createInfo.QueueFamilyIndexCount = uint32(len(config.QueueFamilyIndices))
		createInfo.PQueueFamilyIndices = config.QueueFamilyIndices
	}
	if old, ok := previous.(*VulkanSwapchain); ok && old != nil {
		createInfo.OldSwapchain = old.Handle
	}

	var handle vk.Swapchain
	if err := check("vkCreateSwapchainKHR", vk.CreateSwapchain(vd.LogicalDevice, &createInfo, vd.context.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanSwapchain{Handle: handle, device: vd}, nil
}

func (vs *VulkanSwapchain) Images() ([]renderer.Image, error) {
	var count uint32
	if err := check("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(vs.device.LogicalDevice, vs.Handle, &count, nil)); err != nil {
		return nil, err
	}
	handles := make([]vk.Image, count)
	if err := check("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(vs.device.LogicalDevice, vs.Handle, &count, handles)); err != nil {
		return nil, err
	}
	images := make([]renderer.Image, count)
	for i, h := range handles[:count] {
		images[i] = h
	}
	return images, nil
}

// AcquireNextImage treats a suboptimal swapchain as usable; the present that
// follows reports it. No image within timeoutNs is core.ErrAcquireTimeout.
func (vs *VulkanSwapchain) AcquireNextImage(timeoutNs uint64, signal renderer.Semaphore) (uint32, error) {
	var index uint32
	result := vk.AcquireNextImage(vs.device.LogicalDevice, vs.Handle, timeoutNs, semaphoreHandle(signal), nil, &index)
	switch result {
	case vk.Success, vk.Suboptimal:
		return index, nil
	case vk.Timeout, vk.NotReady:
		return 0, core.ErrAcquireTimeout
	case vk.ErrorOutOfDate:
		return 0, errors.Wrap(core.ErrSurfaceOutOfDate, "acquire")
	}
	return 0, check("vkAcquireNextImageKHR", result)
}

func (vs *VulkanSwapchain) Destroy() {
	if vs.Handle != nil {
		vk.DestroySwapchain(vs.device.LogicalDevice, vs.Handle, vs.device.context.Allocator)
		vs.Handle = nil
	}
}
