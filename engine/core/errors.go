package core

import (
	"github.com/cockroachdb/errors"
)

// Configuration errors.
var (
	ErrValidationLayerMissing = errors.New("validation requested but the validation layer is not installed")
	ErrShaderFileNotFound     = errors.New("shader file not found")
	ErrInvalidShader          = errors.New("shader file is not valid SPIR-V")
)

// Capability negotiation errors.
var (
	ErrNoSuitableAdapter      = errors.New("no suitable adapter")
	ErrUnsupportedFormat      = errors.New("unsupported surface format")
	ErrUnsupportedPresentMode = errors.New("unsupported present mode")
)

// Presentation errors. ErrSurfaceOutOfDate is the only recoverable one.
var (
	ErrSurfaceOutOfDate = errors.New("surface out of date")
	ErrSurfaceMinimized = errors.New("surface has a zero extent")
	ErrFenceTimeout     = errors.New("fence wait timed out")
	ErrAcquireTimeout   = errors.New("no swapchain image became available in time")
	ErrDeviceHung       = errors.New("gpu stalled past the abort threshold")
)
