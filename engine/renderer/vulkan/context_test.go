package vulkan

import (
	"testing"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

func TestContextDestroyNil(t *testing.T) {
	var ctx *VulkanContext
	ctx.Destroy()
}

// A context whose instance creation failed has no handles at all; Destroy
// must only log.
func TestContextDestroyPartial(t *testing.T) {
	ctx := &VulkanContext{ValidationEnabled: true, logger: core.NewDiscardLogger()}
	ctx.Destroy()
	ctx.Destroy()
	if ctx.Instance != nil {
		t.Error("instance should stay nil")
	}
}
