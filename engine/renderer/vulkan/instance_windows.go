//go:build windows

package vulkan

const (
	portabilityEnumeration          = false
	portabilityEnumerationExtension = ""
	portabilityEnumerationBit       = 0
)

func platformInstanceExtensions() []string {
	return []string{"VK_KHR_win32_surface"}
}
