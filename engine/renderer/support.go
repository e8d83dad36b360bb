package renderer

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/math"
)

const (
	RequiredFormat     = vk.FormatB8g8r8a8Srgb
	RequiredColorSpace = vk.ColorSpaceSrgbNonlinear
)

// undefinedExtent is reported by surfaces that let the swapchain pick its size.
const undefinedExtent = ^uint32(0)

// SwapchainSupport is what the surface reports for the selected adapter.
type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// SwapchainConfig is the negotiated swapchain configuration.
type SwapchainConfig struct {
	Format       vk.Format
	ColorSpace   vk.ColorSpace
	PresentMode  vk.PresentMode
	Extent       vk.Extent2D
	ImageCount   uint32
	PreTransform vk.SurfaceTransformFlagBits
	SharingMode  vk.SharingMode
	// QueueFamilyIndices is only set for concurrent sharing.
	QueueFamilyIndices []uint32
}

func (c *SwapchainConfig) String() string {
	return fmt.Sprintf("%dx%d, %d images, format %d, present mode %s",
		c.Extent.Width, c.Extent.Height, c.ImageCount, c.Format, PresentModeName(c.PresentMode))
}

// ChooseSurfaceFormat only accepts 8-bit BGRA sRGB with the sRGB nonlinear
// color space. There is no fallback.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	for _, f := range formats {
		if f.Format == RequiredFormat && f.ColorSpace == RequiredColorSpace {
			return f, nil
		}
	}
	return vk.SurfaceFormat{}, errors.Wrapf(core.ErrUnsupportedFormat,
		"none of the %d surface formats is B8G8R8A8_SRGB/SRGB_NONLINEAR", len(formats))
}

// ChoosePresentMode requires the preferred mode for this platform.
func ChoosePresentMode(modes []vk.PresentMode, preferred vk.PresentMode) (vk.PresentMode, error) {
	for _, m := range modes {
		if m == preferred {
			return m, nil
		}
	}
	return 0, errors.Wrapf(core.ErrUnsupportedPresentMode,
		"could not find present mode %s", PresentModeName(preferred))
}

// ChooseExtent uses the surface's current extent, or the window size when the
// surface leaves it undefined. With clamp the result is kept within the
// surface's min and max image extent.
func ChooseExtent(caps *vk.SurfaceCapabilities, framebufferWidth, framebufferHeight uint32, clamp bool) vk.Extent2D {
	extent := vk.Extent2D{
		Width:  caps.CurrentExtent.Width,
		Height: caps.CurrentExtent.Height,
	}
	if extent.Width == undefinedExtent {
		extent.Width = framebufferWidth
		extent.Height = framebufferHeight
		clamp = true
	}
	if clamp {
		extent.Width = math.Clamp(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
		extent.Height = math.Clamp(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	}
	return extent
}

// ChooseImageCount asks for extra images over the minimum, bounded by the
// maximum when the surface declares one.
func ChooseImageCount(caps *vk.SurfaceCapabilities, extra uint32) uint32 {
	count := math.SaturatingAdd(caps.MinImageCount, extra)
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// ChooseConfig negotiates the whole swapchain configuration. It touches no GPU
// object, so a failure here leaves nothing to clean up.
func ChooseConfig(support *SwapchainSupport, opts Options, families QueueFamilyIndices, framebufferWidth, framebufferHeight uint32) (*SwapchainConfig, error) {
	format, err := ChooseSurfaceFormat(support.Formats)
	if err != nil {
		return nil, err
	}
	mode, err := ChoosePresentMode(support.PresentModes, PreferredPresentMode)
	if err != nil {
		return nil, err
	}

	caps := &support.Capabilities
	extent := ChooseExtent(caps, framebufferWidth, framebufferHeight, opts.ClampExtent)
	if extent.Width == 0 || extent.Height == 0 {
		return nil, errors.Wrapf(core.ErrSurfaceMinimized, "extent %dx%d", extent.Width, extent.Height)
	}

	config := &SwapchainConfig{
		Format:       format.Format,
		ColorSpace:   format.ColorSpace,
		PresentMode:  mode,
		Extent:       extent,
		ImageCount:   ChooseImageCount(caps, opts.ExtraImages),
		PreTransform: caps.CurrentTransform,
		SharingMode:  vk.SharingModeExclusive,
	}
	if !families.Shared() {
		config.SharingMode = vk.SharingModeConcurrent
		config.QueueFamilyIndices = []uint32{families.Graphics, families.Present}
	}
	return config, nil
}

func PresentModeName(mode vk.PresentMode) string {
	switch mode {
	case vk.PresentModeImmediate:
		return "IMMEDIATE"
	case vk.PresentModeMailbox:
		return "MAILBOX"
	case vk.PresentModeFifo:
		return "FIFO"
	case vk.PresentModeFifoRelaxed:
		return "FIFO_RELAXED"
	}
	return fmt.Sprintf("PRESENT_MODE_%d", mode)
}
