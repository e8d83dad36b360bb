package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
	device     *VulkanDevice
}

func (vd *VulkanDevice) CreateFence(signaled bool) (renderer.Fence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: signaled,
		device:     vd,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if err := check("vkCreateFence", vk.CreateFence(vd.LogicalDevice, &fenceCreateInfo, vd.context.Allocator, &pFence)); err != nil {
		return nil, err
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) Destroy() {
	if vf.Handle != nil {
		vk.DestroyFence(vf.device.LogicalDevice, vf.Handle, vf.device.context.Allocator)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

func (vf *VulkanFence) Wait(timeoutNs uint64) error {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	result := vk.WaitForFences(vf.device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		return errors.Wrapf(core.ErrFenceTimeout, "after %dns", timeoutNs)
	}
	return check("vkWaitForFences", result)
}

func (vf *VulkanFence) Signaled() (bool, error) {
	if vf.IsSignaled {
		return true, nil
	}
	switch result := vk.GetFenceStatus(vf.device.LogicalDevice, vf.Handle); result {
	case vk.Success:
		vf.IsSignaled = true
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, check("vkGetFenceStatus", result)
	}
}

func (vf *VulkanFence) Reset() error {
	if vf.IsSignaled {
		if err := check("vkResetFences", vk.ResetFences(vf.device.LogicalDevice, 1, []vk.Fence{vf.Handle})); err != nil {
			return err
		}
		vf.IsSignaled = false
	}
	return nil
}

type VulkanSemaphore struct {
	Handle vk.Semaphore
	device *VulkanDevice
}

func (vd *VulkanDevice) CreateSemaphore() (renderer.Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var handle vk.Semaphore
	if err := check("vkCreateSemaphore", vk.CreateSemaphore(vd.LogicalDevice, &createInfo, vd.context.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanSemaphore{Handle: handle, device: vd}, nil
}

func (s *VulkanSemaphore) Destroy() {
	if s.Handle != nil {
		vk.DestroySemaphore(s.device.LogicalDevice, s.Handle, s.device.context.Allocator)
		s.Handle = nil
	}
}

func semaphoreHandle(s renderer.Semaphore) vk.Semaphore {
	if vs, ok := s.(*VulkanSemaphore); ok && vs != nil {
		return vs.Handle
	}
	return nil
}
