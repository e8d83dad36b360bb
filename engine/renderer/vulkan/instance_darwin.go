//go:build darwin

package vulkan

const (
	portabilityEnumeration          = true
	portabilityEnumerationExtension = "VK_KHR_portability_enumeration"
	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	portabilityEnumerationBit = 0x00000001
)

func platformInstanceExtensions() []string {
	return []string{"VK_EXT_metal_surface"}
}
