package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

func severityFromFlags(flags vk.DebugReportFlags) renderer.Severity {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return renderer.SeverityError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		return renderer.SeverityWarning
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		return renderer.SeverityInfo
	default:
		return renderer.SeverityVerbose
	}
}

// createDebugCallback forwards every debug report to sink. The callback runs
// on driver threads and always lets the call continue.
func (vc *VulkanContext) createDebugCallback(sink renderer.DiagnosticsSink) error {
	vc.logger.Debug("Creating Vulkan debugger...")

	callback := func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
		var objects []renderer.ObjectRef
		if object != 0 {
			objects = append(objects, renderer.ObjectRef{Type: fmt.Sprintf("object type %d", objectType), Handle: object})
		}
		sink.OnMessage(severityFromFlags(flags), fmt.Sprintf("%s:%d", pLayerPrefix, messageCode), pMessage, objects)
		return vk.Bool32(vk.False)
	}

	createInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
		PfnCallback: callback,
	}

	var dbg vk.DebugReportCallback
	if err := check("vkCreateDebugReportCallbackEXT", vk.CreateDebugReportCallback(vc.Instance, &createInfo, vc.Allocator, &dbg)); err != nil {
		return err
	}
	vc.debugCallback = dbg
	vc.logger.Debug("Vulkan debugger created.")
	return nil
}
