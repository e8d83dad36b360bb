package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

type VulkanImageView struct {
	Handle vk.ImageView
	device *VulkanDevice
}

// CreateImageView creates a 2D color view over a swapchain image. Swapchain
// images themselves are owned by the swapchain.
func (vd *VulkanDevice) CreateImageView(image renderer.Image, format vk.Format) (renderer.ImageView, error) {
	handle, ok := image.(vk.Image)
	if !ok {
		return nil, errors.Newf("unexpected image type %T", image)
	}
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if err := check("vkCreateImageView", vk.CreateImageView(vd.LogicalDevice, &viewInfo, vd.context.Allocator, &view)); err != nil {
		return nil, err
	}
	return &VulkanImageView{Handle: view, device: vd}, nil
}

func (v *VulkanImageView) Destroy() {
	if v.Handle != nil {
		vk.DestroyImageView(v.device.LogicalDevice, v.Handle, v.device.context.Allocator)
		v.Handle = nil
	}
}
