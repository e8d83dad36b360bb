package vulkan

import (
	"strings"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

func availableLayers() ([]string, error) {
	var count uint32
	if err := check("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, count)
	if err := check("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].LayerName[:]))
	}
	return names, nil
}

func availableInstanceExtensions() ([]string, error) {
	var count uint32
	if err := check("vkEnumerateInstanceExtensionProperties", vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := check("vkEnumerateInstanceExtensionProperties", vk.EnumerateInstanceExtensionProperties("", &count, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].ExtensionName[:]))
	}
	return names, nil
}

func (vc *VulkanContext) createInstance(appName string, windowExtensions []string) error {
	logger := vc.logger

	var layers []string
	if vc.ValidationEnabled {
		logger.Info("Validation layers enabled. Enumerating...")
		available, err := availableLayers()
		if err != nil {
			return err
		}
		found := false
		for _, l := range available {
			logger.Debug("Available layer", "name", l)
			if l == ValidationLayerName {
				found = true
			}
		}
		if !found {
			return errors.Wrapf(core.ErrValidationLayerMissing, "layer %s", ValidationLayerName)
		}
		layers = append(layers, ValidationLayerName)
	} else {
		logger.Warn("VALIDATION LAYERS ARE DISABLED, ERRORS WILL GO UNREPORTED")
	}

	available, err := availableInstanceExtensions()
	if err != nil {
		return err
	}
	has := func(name string) bool {
		for _, e := range available {
			if e == name {
				return true
			}
		}
		return false
	}

	extensions := mergeNames(windowExtensions, vk.KhrSurfaceExtensionName)
	for _, e := range platformInstanceExtensions() {
		if has(e) {
			extensions = mergeNames(extensions, e)
		} else {
			logger.Warn("Platform surface extension not available", "extension", e)
		}
	}
	if vc.ValidationEnabled {
		extensions = mergeNames(extensions, vk.ExtDebugReportExtensionName)
	}

	var flags vk.InstanceCreateFlags
	if portabilityEnumeration && has(portabilityEnumerationExtension) {
		extensions = mergeNames(extensions, portabilityEnumerationExtension)
		flags |= vk.InstanceCreateFlags(portabilityEnumerationBit)
	}

	trimmed := make([]string, len(extensions))
	for i, e := range extensions {
		trimmed[i] = strings.TrimRight(e, end)
	}
	logger.Info("Required instance extensions", "extensions", strings.Join(trimmed, ", "))

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   VulkanSafeString(appName),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PEngineName:        VulkanSafeString("vulkantesting"),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
	}

	createInfo := &vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		Flags:                   flags,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(layers),
	}

	var instance vk.Instance
	if err := check("vkCreateInstance", vk.CreateInstance(createInfo, vc.Allocator, &instance)); err != nil {
		return err
	}
	vc.Instance = instance

	if err := vk.InitInstance(instance); err != nil {
		return errors.Wrap(err, "failed to load instance functions")
	}
	logger.Info("Vulkan instance created.")
	return nil
}
