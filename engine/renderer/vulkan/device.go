package vulkan

import (
	"strings"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

// FramebufferSizer reports the window size in pixels.
type FramebufferSizer interface {
	FramebufferSize() (uint32, uint32)
}

// VulkanDevice is the logical device and its queues. It implements
// renderer.Device.
type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Adapter        *renderer.AdapterInfo
	Families       renderer.QueueFamilyIndices

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	Memory vk.PhysicalDeviceMemoryProperties

	context *VulkanContext
	window  FramebufferSizer
	locks   *VulkanLockPool
	logger  *core.Logger
}

// EnumerateAdapters describes every physical device with respect to the
// context's surface.
func EnumerateAdapters(context *VulkanContext) ([]renderer.AdapterInfo, error) {
	var count uint32
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errors.Wrap(core.ErrNoSuitableAdapter, "no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &count, physicalDevices)); err != nil {
		return nil, err
	}

	adapters := make([]renderer.AdapterInfo, 0, count)
	for _, pd := range physicalDevices {
		info, err := describeAdapter(context, pd)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, info)
	}
	return adapters, nil
}

func describeAdapter(context *VulkanContext, pd vk.PhysicalDevice) (renderer.AdapterInfo, error) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()

	info := renderer.AdapterInfo{
		Handle:        pd,
		Name:          vk.ToString(properties.DeviceName[:]),
		DeviceType:    properties.DeviceType,
		APIVersion:    properties.ApiVersion,
		DriverVersion: properties.DriverVersion,
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)

	context.logger.Debug("Queue families", "adapter", info.Name)
	context.logger.Debug("Graphics | Present | Compute | Transfer | Count")
	for i := range families {
		families[i].Deref()
		var supported vk.Bool32
		if err := check("vkGetPhysicalDeviceSurfaceSupportKHR",
			vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), context.Surface, &supported)); err != nil {
			return info, err
		}
		family := renderer.QueueFamily{
			Index:      uint32(i),
			QueueCount: families[i].QueueCount,
			Flags:      families[i].QueueFlags,
			Present:    supported == vk.True,
		}
		info.QueueFamilies = append(info.QueueFamilies, family)
		context.logger.Debugf("       %d |       %d |       %d |        %d | %d",
			b2i(family.Supports(vk.QueueGraphicsBit)), b2i(family.Present),
			b2i(family.Supports(vk.QueueComputeBit)), b2i(family.Supports(vk.QueueTransferBit)),
			family.QueueCount)
	}

	var extCount uint32
	if err := check("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(pd, "", &extCount, nil)); err != nil {
		return info, err
	}
	if extCount > 0 {
		extensions := make([]vk.ExtensionProperties, extCount)
		if err := check("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(pd, "", &extCount, extensions)); err != nil {
			return info, err
		}
		for i := range extensions {
			extensions[i].Deref()
			info.Extensions = append(info.Extensions, vk.ToString(extensions[i].ExtensionName[:]))
		}
	}
	return info, nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NewDevice creates the logical device on the selected adapter with one queue
// per distinct family.
func NewDevice(context *VulkanContext, adapter *renderer.AdapterInfo, families renderer.QueueFamilyIndices, window FramebufferSizer, logger *core.Logger) (*VulkanDevice, error) {
	pd, ok := adapter.Handle.(vk.PhysicalDevice)
	if !ok {
		return nil, errors.Newf("adapter %q has no Vulkan handle", adapter.Name)
	}

	device := &VulkanDevice{
		PhysicalDevice: pd,
		Adapter:        adapter,
		Families:       families,
		context:        context,
		window:         window,
		locks:          NewVulkanLockPool(),
		logger:         logger,
	}

	logger.Info("Creating logical device...")

	unique := families.Unique()
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(unique))
	for i, index := range unique {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
		device.locks.SetQueueFamily(index)
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	for _, e := range adapter.Extensions {
		if strings.TrimRight(e, end) == portabilitySubsetExtension {
			logger.Info("Adding required extension", "extension", portabilitySubsetExtension)
			extensionNames = mergeNames(extensionNames, portabilitySubsetExtension)
		}
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logical vk.Device
	if err := check("vkCreateDevice", vk.CreateDevice(pd, &deviceCreateInfo, context.Allocator, &logical)); err != nil {
		return nil, err
	}
	device.LogicalDevice = logical
	logger.Info("Logical device created.")

	vk.GetDeviceQueue(logical, families.Graphics, 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(logical, families.Present, 0, &device.PresentQueue)
	logger.Info("Queues obtained.")

	vk.GetPhysicalDeviceMemoryProperties(pd, &device.Memory)
	device.Memory.Deref()
	for j := 0; j < int(device.Memory.MemoryHeapCount); j++ {
		heap := device.Memory.MemoryHeaps[j]
		heap.Deref()
		sizeGib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			logger.Infof("Local GPU memory: %.2f GiB", sizeGib)
		} else {
			logger.Infof("Shared System memory: %.2f GiB", sizeGib)
		}
	}
	return device, nil
}

func (vd *VulkanDevice) QueueFamilies() renderer.QueueFamilyIndices {
	return vd.Families
}

func (vd *VulkanDevice) FramebufferSize() (uint32, uint32) {
	return vd.window.FramebufferSize()
}

// WaitIdle blocks until every queue is idle. It holds all queue locks so no
// submission can slip in while waiting.
func (vd *VulkanDevice) WaitIdle() error {
	return vd.locks.SafeDeviceCall(vd.Families.Unique(), func() error {
		return check("vkDeviceWaitIdle", vk.DeviceWaitIdle(vd.LogicalDevice))
	})
}

func (vd *VulkanDevice) QuerySwapchainSupport() (*renderer.SwapchainSupport, error) {
	pd, surface := vd.PhysicalDevice, vd.context.Surface
	support := &renderer.SwapchainSupport{}

	if err := check("vkGetPhysicalDeviceSurfaceCapabilitiesKHR",
		vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &support.Capabilities)); err != nil {
		return nil, err
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := check("vkGetPhysicalDeviceSurfaceFormatsKHR",
		vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil)); err != nil {
		return nil, err
	}
	if formatCount != 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := check("vkGetPhysicalDeviceSurfaceFormatsKHR",
			vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, support.Formats)); err != nil {
			return nil, err
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if err := check("vkGetPhysicalDeviceSurfacePresentModesKHR",
		vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, nil)); err != nil {
		return nil, err
	}
	if modeCount != 0 {
		support.PresentModes = make([]vk.PresentMode, modeCount)
		if err := check("vkGetPhysicalDeviceSurfacePresentModesKHR",
			vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, support.PresentModes)); err != nil {
			return nil, err
		}
	}
	return support, nil
}

func (vd *VulkanDevice) Destroy() {
	vd.GraphicsQueue = nil
	vd.PresentQueue = nil

	if vd.LogicalDevice != nil {
		vd.logger.Info("Destroying logical device...")
		vk.DestroyDevice(vd.LogicalDevice, vd.context.Allocator)
		vd.LogicalDevice = nil
	}
	// Physical devices are not destroyed.
	vd.PhysicalDevice = nil
}
