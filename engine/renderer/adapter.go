package renderer

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

const SwapchainExtensionName = "VK_KHR_swapchain"

type QueueFamily struct {
	Index      uint32
	QueueCount uint32
	Flags      vk.QueueFlags
	// Present reports whether the family can present to the target surface.
	Present bool
}

func (q QueueFamily) Supports(flag vk.QueueFlagBits) bool {
	return q.Flags&vk.QueueFlags(flag) != 0
}

// AdapterInfo describes one enumerated physical adapter.
type AdapterInfo struct {
	// Handle is backend specific (a vk.PhysicalDevice for the Vulkan backend).
	Handle        interface{}
	Name          string
	DeviceType    vk.PhysicalDeviceType
	APIVersion    uint32
	DriverVersion uint32
	QueueFamilies []QueueFamily
	Extensions    []string
}

// QueueFamilyIndices are the resolved graphics and present families. Transfer
// is only checked for when selecting an adapter; no queue is created for it.
type QueueFamilyIndices struct {
	Graphics uint32
	Present  uint32
	Transfer uint32
}

// Shared reports whether a single family serves graphics and present.
func (f QueueFamilyIndices) Shared() bool {
	return f.Graphics == f.Present
}

// Unique lists the distinct graphics and present families, graphics first.
// These are the families the device creates queues for.
func (f QueueFamilyIndices) Unique() []uint32 {
	if f.Shared() {
		return []uint32{f.Graphics}
	}
	return []uint32{f.Graphics, f.Present}
}

type AdapterRequirements struct {
	DiscreteGPU bool
	Graphics    bool
	Transfer    bool
	Present     bool
	Extensions  []string
}

// DefaultAdapterRequirements asks for a discrete GPU with graphics, transfer and
// present families and swapchain support. MoltenVK only exposes integrated
// GPUs on Apple silicon, so darwin drops the device class requirement.
func DefaultAdapterRequirements() AdapterRequirements {
	return AdapterRequirements{
		DiscreteGPU: runtime.GOOS != "darwin",
		Graphics:    true,
		Transfer:    true,
		Present:     true,
		Extensions:  []string{SwapchainExtensionName},
	}
}

// SelectAdapter returns the first adapter meeting the requirements along with
// its resolved queue families.
func SelectAdapter(adapters []AdapterInfo, req AdapterRequirements, logger *core.Logger) (*AdapterInfo, QueueFamilyIndices, error) {
	for i := range adapters {
		adapter := &adapters[i]
		logger.Info("Evaluating adapter", "name", adapter.Name, "type", DeviceTypeName(adapter.DeviceType),
			"api", VersionString(adapter.APIVersion), "driver", VersionString(adapter.DriverVersion))

		indices, err := MeetsRequirements(adapter, req)
		if err != nil {
			logger.Info("Adapter rejected", "name", adapter.Name, "reason", err)
			continue
		}
		logger.Info("Selected adapter", "name", adapter.Name,
			"graphics", indices.Graphics, "present", indices.Present, "transfer", indices.Transfer)
		return adapter, indices, nil
	}
	return nil, QueueFamilyIndices{}, errors.Wrapf(core.ErrNoSuitableAdapter, "%d adapters enumerated", len(adapters))
}

// MeetsRequirements checks one adapter. A family serving both graphics and
// present is preferred, otherwise the first family of each kind is used.
func MeetsRequirements(adapter *AdapterInfo, req AdapterRequirements) (QueueFamilyIndices, error) {
	var indices QueueFamilyIndices
	if req.DiscreteGPU && adapter.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		return indices, errors.Newf("device class is %s, not discrete", DeviceTypeName(adapter.DeviceType))
	}

	graphics, present, transfer, both := -1, -1, -1, -1
	for _, family := range adapter.QueueFamilies {
		idx := int(family.Index)
		isGraphics := family.Supports(vk.QueueGraphicsBit)
		if isGraphics && graphics < 0 {
			graphics = idx
		}
		if family.Present && present < 0 {
			present = idx
		}
		if isGraphics && family.Present && both < 0 {
			both = idx
		}
		if family.Supports(vk.QueueTransferBit) {
			// A dedicated transfer family wins over a shared one.
			if transfer < 0 || !isGraphics {
				transfer = idx
			}
		}
	}

	if req.Graphics && graphics < 0 {
		return indices, errors.New("no graphics capable queue family")
	}
	if req.Present && present < 0 {
		return indices, errors.New("no queue family can present to the surface")
	}
	if req.Transfer && transfer < 0 {
		return indices, errors.New("no transfer capable queue family")
	}
	for _, ext := range req.Extensions {
		if !hasExtension(adapter.Extensions, ext) {
			return indices, errors.Newf("missing device extension %s", ext)
		}
	}

	if both >= 0 {
		graphics, present = both, both
	}
	if transfer < 0 {
		transfer = graphics
	}
	indices.Graphics = uint32(graphics)
	indices.Present = uint32(present)
	indices.Transfer = uint32(transfer)
	return indices, nil
}

func hasExtension(available []string, name string) bool {
	for _, e := range available {
		if strings.TrimRight(e, "\x00") == name {
			return true
		}
	}
	return false
}

func DeviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated GPU"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete GPU"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual GPU"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	}
	return "other"
}

func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}
