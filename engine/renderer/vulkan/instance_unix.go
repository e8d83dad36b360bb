//go:build !darwin && !windows

package vulkan

import (
	"runtime"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

const (
	portabilityEnumeration          = false
	portabilityEnumerationExtension = ""
	portabilityEnumerationBit       = 0
)

// platformInstanceExtensions picks the surface extension for the display
// server the window will be created on.
func platformInstanceExtensions() []string {
	if core.ProcessEnvironment().SurfaceKind(runtime.GOOS) == "wayland" {
		return []string{"VK_KHR_wayland_surface"}
	}
	return []string{"VK_KHR_xlib_surface"}
}
