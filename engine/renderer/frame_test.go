package renderer

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

func newTestScheduler(t *testing.T, dev *fakeDevice, opts Options) (*FrameScheduler, *SwapchainManager) {
	t.Helper()
	logger := core.NewDiscardLogger()
	m := NewSwapchainManager(dev, &ShaderSet{}, opts, logger)
	if err := m.Create(); err != nil {
		t.Fatal(err)
	}
	fs, err := NewFrameScheduler(dev, m, opts, logger)
	if err != nil {
		t.Fatal(err)
	}
	return fs, m
}

func runTicks(t *testing.T, fs *FrameScheduler, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := fs.Tick(); err != nil {
			t.Fatalf("tick %d: %v", fs.Ticks(), err)
		}
	}
}

func checkNoViolations(t *testing.T, dev *fakeDevice) {
	t.Helper()
	if len(dev.violations) != 0 {
		t.Errorf("violations:\n%s", strings.Join(dev.violations, "\n"))
	}
}

func TestFrameSchedulerSteadyState(t *testing.T) {
	dev := newFakeDevice()
	fs, _ := newTestScheduler(t, dev, DefaultOptions())

	runTicks(t, fs, 20)

	if dev.submissionCount() != 20 || dev.presents() != 20 {
		t.Errorf("submissions=%d presents=%d, want 20", dev.submissionCount(), dev.presents())
	}
	if fs.Ticks() != 20 || fs.CurrentFrame() != 0 {
		t.Errorf("ticks=%d frame=%d", fs.Ticks(), fs.CurrentFrame())
	}
	// Two slots over three images: slot and image indices drift apart.
	for i, sub := range dev.submissions[:6] {
		if sub.fence != fs.Slots()[i%2].InFlight {
			t.Errorf("submission %d did not use slot %d", i, i%2)
		}
	}
	checkNoViolations(t, dev)
}

func TestFrameSchedulerCrossHazardWait(t *testing.T) {
	dev := newFakeDevice()
	// Image 0 comes back on the very next tick, through the other slot.
	dev.acquireOrder = []uint32{0, 0, 1, 1, 2, 2}
	fs, _ := newTestScheduler(t, dev, DefaultOptions())

	runTicks(t, fs, 12)

	if fs.HazardWaits() == 0 {
		t.Fatal("expected the scheduler to wait on the fence of the image's previous submission")
	}
	// The fake reports recording into a buffer whose submission is still
	// running as a violation.
	checkNoViolations(t, dev)
}

func TestFrameSchedulerFenceResetOnlyWhenSignaled(t *testing.T) {
	dev := newFakeDevice()
	dev.acquireOrder = []uint32{2, 1, 0, 0, 2}
	fs, _ := newTestScheduler(t, dev, DefaultOptions())
	runTicks(t, fs, 25)
	checkNoViolations(t, dev)
}

func TestFrameSchedulerStaleOnPresent(t *testing.T) {
	dev := newFakeDevice()
	fs, m := newTestScheduler(t, dev, DefaultOptions())

	runTicks(t, fs, 10)
	dev.setStaleNextPresent()

	// Tick 10 still submits and presents, recreation waits for tick 11.
	runTicks(t, fs, 1)
	if dev.submissionCount() != 11 {
		t.Errorf("tick 10 should have submitted, got %d submissions", dev.submissionCount())
	}
	if !fs.RecreatePending() || fs.Recreations() != 0 {
		t.Fatalf("recreation should be deferred (pending=%v recreations=%d)", fs.RecreatePending(), fs.Recreations())
	}
	oldGeneration := m.State().Generation

	start := dev.eventCount()
	runTicks(t, fs, 1)

	if fs.Recreations() != 1 || m.State().Generation != oldGeneration+1 {
		t.Fatalf("tick 11 should recreate (recreations=%d)", fs.Recreations())
	}
	if dev.lastSubmission().fence != fs.Slots()[0].InFlight {
		t.Error("tick 11 should draw through slot 0")
	}
	if fs.Ticks() != 12 || fs.CurrentFrame() != 1 {
		t.Errorf("ticks=%d frame=%d", fs.Ticks(), fs.CurrentFrame())
	}
	if dev.waitIdleCalls == 0 {
		t.Error("recreation must wait for the device to go idle")
	}
	checkTeardownOrder(t, dev.eventsSince(start))
	checkNoViolations(t, dev)
}

// checkTeardownOrder verifies that the destroys preceding the new swapchain
// follow slots, command buffers, pools, framebuffers, pipeline, render pass,
// image views.
func checkTeardownOrder(t *testing.T, events []string) {
	t.Helper()
	rank := map[string]int{
		"semaphore": 0, "fence": 0,
		"commandbuffer": 1, "commandpool": 2, "framebuffer": 3,
		"pipeline": 4, "renderpass": 5, "imageview": 6,
	}
	last := -1
	seen := 0
	for _, e := range events {
		if e == "create:swapchain" {
			break
		}
		kind, ok := strings.CutPrefix(e, "destroy:")
		if !ok {
			continue
		}
		r, known := rank[kind]
		if !known {
			t.Errorf("unexpected destroy of %s during recreation", kind)
			continue
		}
		if r < last {
			t.Errorf("%s destroyed out of dependency order: %v", kind, events)
			return
		}
		last = r
		seen++
	}
	// 2 slots x 3 objects, 3 x (buffer, pool, framebuffer, view), pipeline, pass.
	if seen != 6+12+2 {
		t.Errorf("destroyed %d objects before the new swapchain, want 20", seen)
	}
}

func TestFrameSchedulerStaleOnAcquireRecreatesImmediately(t *testing.T) {
	dev := newFakeDevice()
	fs, _ := newTestScheduler(t, dev, DefaultOptions())
	runTicks(t, fs, 3)

	dev.staleNextAcquire = true
	runTicks(t, fs, 1)
	if fs.Recreations() != 1 || fs.RecreatePending() {
		t.Fatalf("acquire staleness should recreate in the same tick (recreations=%d)", fs.Recreations())
	}
	if dev.submissionCount() != 3 {
		t.Errorf("the stale tick must not submit, got %d submissions", dev.submissionCount())
	}
	if fs.Ticks() != 4 || fs.CurrentFrame() != 0 {
		t.Errorf("ticks=%d frame=%d", fs.Ticks(), fs.CurrentFrame())
	}
	runTicks(t, fs, 3)
	checkNoViolations(t, dev)
}

func TestFrameSchedulerMinimizedKeepsRecreationPending(t *testing.T) {
	dev := newFakeDevice()
	fs, _ := newTestScheduler(t, dev, DefaultOptions())
	runTicks(t, fs, 2)

	extent := dev.support.Capabilities.CurrentExtent
	dev.support.Capabilities.CurrentExtent = vk.Extent2D{}
	dev.support.Capabilities.MinImageExtent = vk.Extent2D{}
	fs.RequestRecreate()
	runTicks(t, fs, 3)
	if !fs.RecreatePending() || dev.submissionCount() != 2 {
		t.Fatalf("minimized window should skip drawing (pending=%v submissions=%d)", fs.RecreatePending(), dev.submissionCount())
	}

	dev.support.Capabilities.CurrentExtent = extent
	runTicks(t, fs, 1)
	if fs.RecreatePending() || fs.Recreations() != 1 || dev.submissionCount() != 3 {
		t.Errorf("restored window should recreate and draw (recreations=%d submissions=%d)", fs.Recreations(), dev.submissionCount())
	}
	checkNoViolations(t, dev)
}

func TestFrameSchedulerReusesRecordedBuffers(t *testing.T) {
	dev := newFakeDevice()
	opts := DefaultOptions()
	opts.RecordEachTick = false
	fs, m := newTestScheduler(t, dev, opts)
	runTicks(t, fs, 9)

	for i, img := range m.State().Images {
		if n := img.CommandBuffer.(*fakeCommandBuffer).recordings; n != 1 {
			t.Errorf("image %d recorded %d times, want 1", i, n)
		}
	}
	checkNoViolations(t, dev)
}

func TestFrameSchedulerBoundedWaitAborts(t *testing.T) {
	dev := newFakeDevice()
	opts := DefaultOptions()
	opts.FenceTimeoutMs = 20
	opts.StallAbortMs = 100
	fs, _ := newTestScheduler(t, dev, opts)

	runTicks(t, fs, 2)
	dev.hangFences = true
	err := fs.Tick()
	if !errors.Is(err, core.ErrDeviceHung) {
		t.Fatalf("expected ErrDeviceHung, got %v", err)
	}
}

func TestFrameSchedulerShutdownReleasesEverything(t *testing.T) {
	dev := newFakeDevice()
	fs, m := newTestScheduler(t, dev, DefaultOptions())
	runTicks(t, fs, 5)
	fs.RequestRecreate()
	runTicks(t, fs, 5)

	if err := dev.WaitIdle(); err != nil {
		t.Fatal(err)
	}
	fs.Destroy()
	m.Destroy()

	for kind, n := range dev.created {
		if dev.destroyed[kind] != n {
			t.Errorf("%s: created %d, destroyed %d", kind, n, dev.destroyed[kind])
		}
	}
	checkNoViolations(t, dev)
}

func TestFrameSchedulerFailedRecreationReleasesEverything(t *testing.T) {
	failures := append([]struct {
		kind string
		nth  int
	}{{"semaphore", 3}, {"fence", 2}}, generationFailures...)

	for _, tt := range failures {
		t.Run(tt.kind, func(t *testing.T) {
			dev := newFakeDevice()
			fs, m := newTestScheduler(t, dev, DefaultOptions())
			runTicks(t, fs, 4)

			dev.failKind, dev.failAt = tt.kind, dev.attempts[tt.kind]+tt.nth
			fs.RequestRecreate()
			if err := fs.Tick(); !errors.Is(err, errInjected) {
				t.Fatalf("Tick err = %v, want the injected failure", err)
			}

			fs.Destroy()
			m.Destroy()
			checkBalanced(t, dev)
		})
	}
}
