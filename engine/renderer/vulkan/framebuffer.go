package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
	device      *VulkanDevice
}

func (vd *VulkanDevice) CreateFramebuffer(pass renderer.RenderPass, view renderer.ImageView, extent vk.Extent2D) (renderer.Framebuffer, error) {
	renderpass, ok := pass.(*VulkanRenderpass)
	if !ok {
		return nil, errors.Newf("unexpected render pass type %T", pass)
	}
	colorView, ok := view.(*VulkanImageView)
	if !ok {
		return nil, errors.Newf("unexpected image view type %T", view)
	}

	outFramebuffer := &VulkanFramebuffer{
		Attachments: []vk.ImageView{colorView.Handle},
		Renderpass:  renderpass,
		device:      vd,
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if err := check("vkCreateFramebuffer", vk.CreateFramebuffer(vd.LogicalDevice, &createInfo, vd.context.Allocator, &handle)); err != nil {
		return nil, err
	}
	outFramebuffer.Handle = handle
	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy() {
	if vfb.Handle != nil {
		vk.DestroyFramebuffer(vfb.device.LogicalDevice, vfb.Handle, vfb.device.context.Allocator)
	}
	vfb.Attachments = nil
	vfb.Handle = nil
	vfb.Renderpass = nil
}
