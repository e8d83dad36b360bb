//go:build windows

package renderer

import vk "github.com/goki/vulkan"

// PreferredPresentMode is the low latency triple buffering mode on Windows.
const PreferredPresentMode = vk.PresentModeMailbox
