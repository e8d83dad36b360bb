package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// VulkanCommandPool belongs to a single swapchain image, so resetting it never
// touches a buffer another frame may still be executing.
type VulkanCommandPool struct {
	Handle  vk.CommandPool
	buffers []*VulkanCommandBuffer
	device  *VulkanDevice
}

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
	pool  *VulkanCommandPool
}

func (vd *VulkanDevice) CreateCommandPool() (renderer.CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: vd.Families.Graphics,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var handle vk.CommandPool
	if err := check("vkCreateCommandPool", vk.CreateCommandPool(vd.LogicalDevice, &poolCreateInfo, vd.context.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanCommandPool{Handle: handle, device: vd}, nil
}

// Allocate allocates one primary command buffer from the pool.
func (p *VulkanCommandPool) Allocate() (renderer.CommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.Handle,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := check("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(p.device.LogicalDevice, &allocateInfo, handles)); err != nil {
		return nil, err
	}
	cb := &VulkanCommandBuffer{
		Handle: handles[0],
		State:  COMMAND_BUFFER_STATE_READY,
		pool:   p,
	}
	p.buffers = append(p.buffers, cb)
	return cb, nil
}

// Reset returns every buffer of the pool to the initial state.
func (p *VulkanCommandPool) Reset() error {
	if err := check("vkResetCommandPool", vk.ResetCommandPool(p.device.LogicalDevice, p.Handle, 0)); err != nil {
		return err
	}
	for _, cb := range p.buffers {
		cb.State = COMMAND_BUFFER_STATE_READY
	}
	return nil
}

// Destroy frees the pool and every buffer allocated from it.
func (p *VulkanCommandPool) Destroy() {
	if p.Handle != nil {
		vk.DestroyCommandPool(p.device.LogicalDevice, p.Handle, p.device.context.Allocator)
		p.Handle = nil
	}
	for _, cb := range p.buffers {
		cb.Handle = nil
		cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	p.buffers = nil
}

// Destroy frees the buffer back to its pool.
func (v *VulkanCommandBuffer) Destroy() {
	if v.Handle == nil || v.pool == nil || v.pool.Handle == nil {
		return
	}
	vk.FreeCommandBuffers(v.pool.device.LogicalDevice, v.pool.Handle, 1, []vk.CommandBuffer{v.Handle})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	for i, cb := range v.pool.buffers {
		if cb == v {
			v.pool.buffers = append(v.pool.buffers[:i], v.pool.buffers[i+1:]...)
			break
		}
	}
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if err := check("vkBeginCommandBuffer", vk.BeginCommandBuffer(v.Handle, beginInfo)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if err := check("vkEndCommandBuffer", vk.EndCommandBuffer(v.Handle)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// Record writes the whole frame: clear the framebuffer, bind the pipeline and
// draw three vertices.
func (v *VulkanCommandBuffer) Record(pass renderer.RenderPass, framebuffer renderer.Framebuffer, pipeline renderer.Pipeline, extent vk.Extent2D, clear [4]float32) error {
	renderpass, ok := pass.(*VulkanRenderpass)
	if !ok {
		return errors.Newf("unexpected render pass type %T", pass)
	}
	fb, ok := framebuffer.(*VulkanFramebuffer)
	if !ok {
		return errors.Newf("unexpected framebuffer type %T", framebuffer)
	}
	gp, ok := pipeline.(*VulkanPipeline)
	if !ok {
		return errors.Newf("unexpected pipeline type %T", pipeline)
	}
	if v.State == COMMAND_BUFFER_STATE_SUBMITTED {
		return errors.New("command buffer is still pending")
	}

	if err := v.Begin(false, false, false); err != nil {
		return err
	}
	renderpass.begin(v.Handle, fb, extent, clear)
	v.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	gp.bind(v.Handle)
	vk.CmdDraw(v.Handle, 3, 1, 0, 0)
	renderpass.end(v.Handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return v.End()
}
