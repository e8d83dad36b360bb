//go:build !windows

package renderer

import vk "github.com/goki/vulkan"

const PreferredPresentMode = vk.PresentModeFifo
