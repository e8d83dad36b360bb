package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

const shaderEntryPoint = "main\x00"

// VulkanShaderStage is a single shader stage. Modules only live as long as
// pipeline creation.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

func (vd *VulkanDevice) newShaderStage(code []uint32, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if len(code) == 0 {
		return nil, errors.Wrapf(core.ErrInvalidShader, "empty code for stage %d", stage)
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	shaderStage := &VulkanShaderStage{}
	if err := check("vkCreateShaderModule", vk.CreateShaderModule(vd.LogicalDevice, &createInfo, vd.context.Allocator, &shaderStage.Handle)); err != nil {
		return nil, err
	}

	shaderStage.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: shaderStage.Handle,
		PName:  shaderEntryPoint,
	}
	return shaderStage, nil
}

func (vd *VulkanDevice) destroyShaderStage(stage *VulkanShaderStage) {
	if stage != nil && stage.Handle != nil {
		vk.DestroyShaderModule(vd.LogicalDevice, stage.Handle, vd.context.Allocator)
		stage.Handle = nil
	}
}
