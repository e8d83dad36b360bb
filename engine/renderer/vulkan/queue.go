package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

// Submit queues cb on the graphics queue. Execution waits on wait at the color
// attachment output stage, then signals signal and fence.
func (vd *VulkanDevice) Submit(cb renderer.CommandBuffer, wait, signal renderer.Semaphore, fence renderer.Fence) error {
	buffer, ok := cb.(*VulkanCommandBuffer)
	if !ok {
		return errors.Newf("unexpected command buffer type %T", cb)
	}
	vf, ok := fence.(*VulkanFence)
	if !ok {
		return errors.Newf("unexpected fence type %T", fence)
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{semaphoreHandle(wait)},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{buffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{semaphoreHandle(signal)},
	}

	err := vd.locks.SafeQueueCall(vd.Families.Graphics, func() error {
		return check("vkQueueSubmit", vk.QueueSubmit(vd.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vf.Handle))
	})
	if err != nil {
		return err
	}
	vf.IsSignaled = false
	buffer.UpdateSubmitted()
	return nil
}

// Present hands the image back to the presentation engine. Both an out of
// date and a suboptimal swapchain are reported as stale.
func (vd *VulkanDevice) Present(swapchain renderer.Swapchain, imageIndex uint32, wait renderer.Semaphore) error {
	sc, ok := swapchain.(*VulkanSwapchain)
	if !ok {
		return errors.Newf("unexpected swapchain type %T", swapchain)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{semaphoreHandle(wait)},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	var result vk.Result
	_ = vd.locks.SafeQueueCall(vd.Families.Present, func() error {
		result = vk.QueuePresent(vd.PresentQueue, &presentInfo)
		return nil
	})
	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return errors.Wrapf(core.ErrSurfaceOutOfDate, "present returned %s", VulkanResultString(result))
	}
	return check("vkQueuePresentKHR", result)
}
