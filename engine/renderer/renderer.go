package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

const DefaultFramesInFlight = 2

// ShaderSet holds the SPIR-V words of the two fixed pipeline stages.
type ShaderSet struct {
	Vertex   []uint32
	Fragment []uint32
}

// Options controls the swapchain manager and the frame scheduler.
type Options struct {
	FramesInFlight int
	// ExtraImages is added to the surface minimum image count.
	ExtraImages uint32
	ClampExtent bool
	// RecordEachTick re-records the image command buffer every tick. When
	// false the buffers recorded at swapchain creation are reused.
	RecordEachTick bool
	// FenceTimeoutMs bounds every frame fence wait when nonzero. Once the
	// cumulative stall reaches StallAbortMs the scheduler gives up.
	FenceTimeoutMs uint32
	StallAbortMs   uint32
	PresentThread  bool
	ClearColor     mgl32.Vec4
}

func DefaultOptions() Options {
	return Options{
		FramesInFlight: DefaultFramesInFlight,
		ExtraImages:    1,
		ClampExtent:    true,
		RecordEachTick: true,
		StallAbortMs:   1000,
		ClearColor:     mgl32.Vec4{0.0, 0.0, 0.2, 1.0},
	}
}
