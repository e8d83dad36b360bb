package renderer

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

// FrameSlot is one reusable set of per frame synchronization objects. Its fence
// is signaled exactly when the GPU has finished everything submitted through
// the slot.
type FrameSlot struct {
	Index          int
	ImageAvailable Semaphore
	RenderFinished Semaphore
	InFlight       Fence
	// CommandBuffer is the buffer of the slot's last submission. It belongs to
	// the swapchain image it was recorded for.
	CommandBuffer CommandBuffer

	presenting sync.WaitGroup
	resources  resourceStack
}

func newFrameSlot(device Device, index int) (*FrameSlot, error) {
	s := &FrameSlot{Index: index}
	var err error

	if s.ImageAvailable, err = device.CreateSemaphore(); err != nil {
		s.Destroy()
		return nil, errors.Wrap(err, "failed to create image available semaphore")
	}
	s.resources.push(s.ImageAvailable)

	if s.RenderFinished, err = device.CreateSemaphore(); err != nil {
		s.Destroy()
		return nil, errors.Wrap(err, "failed to create render finished semaphore")
	}
	s.resources.push(s.RenderFinished)

	// Signaled so the very first wait returns immediately.
	if s.InFlight, err = device.CreateFence(true); err != nil {
		s.Destroy()
		return nil, errors.Wrap(err, "failed to create in flight fence")
	}
	s.resources.push(s.InFlight)
	return s, nil
}

func (s *FrameSlot) Destroy() {
	s.resources.release()
	s.CommandBuffer = nil
}

// acquireRetryInterval bounds a single acquire attempt while the presenter
// goroutine shares the swapchain.
const acquireRetryInterval = time.Millisecond

// FrameScheduler drives one acquire, record, submit and present cycle per tick
// and recreates the swapchain when the surface goes stale. Slot indices and
// swapchain image indices are separate cycles.
type FrameScheduler struct {
	device    Device
	swapchain *SwapchainManager
	logger    *core.Logger
	opts      Options
	presenter *Presenter

	// swapchainLock gives acquire and present exclusive use of the swapchain.
	swapchainLock sync.Mutex

	slots           []*FrameSlot
	currentFrame    int
	tick            uint64
	recreatePending bool

	hazardWaits uint64
	recreations uint64
}

func NewFrameScheduler(device Device, swapchain *SwapchainManager, opts Options, logger *core.Logger) (*FrameScheduler, error) {
	if opts.FramesInFlight <= 0 {
		opts.FramesInFlight = DefaultFramesInFlight
	}
	fs := &FrameScheduler{
		device:    device,
		swapchain: swapchain,
		logger:    logger,
		opts:      opts,
	}
	if err := fs.createSlots(); err != nil {
		return nil, err
	}
	if opts.PresentThread {
		fs.presenter = NewPresenter(device, opts.FramesInFlight, &fs.swapchainLock, logger)
		logger.Info("Presentation moved to a dedicated thread")
	}
	return fs, nil
}

func (fs *FrameScheduler) createSlots() error {
	slots := make([]*FrameSlot, 0, fs.opts.FramesInFlight)
	for i := 0; i < fs.opts.FramesInFlight; i++ {
		slot, err := newFrameSlot(fs.device, i)
		if err != nil {
			for _, s := range slots {
				s.Destroy()
			}
			return err
		}
		slots = append(slots, slot)
	}
	fs.slots = slots
	return nil
}

func (fs *FrameScheduler) destroySlots() {
	for _, s := range fs.slots {
		s.Destroy()
	}
	fs.slots = nil
}

// RequestRecreate schedules a swapchain recreation at the top of the next tick.
func (fs *FrameScheduler) RequestRecreate() {
	fs.recreatePending = true
}

func (fs *FrameScheduler) RecreatePending() bool {
	return fs.recreatePending
}

func (fs *FrameScheduler) CurrentFrame() int {
	return fs.currentFrame
}

func (fs *FrameScheduler) Ticks() uint64 {
	return fs.tick
}

func (fs *FrameScheduler) Slots() []*FrameSlot {
	return fs.slots
}

// HazardWaits counts how often an acquired image was still in use by another
// slot's submission.
func (fs *FrameScheduler) HazardWaits() uint64 {
	return fs.hazardWaits
}

func (fs *FrameScheduler) Recreations() uint64 {
	return fs.recreations
}

// Tick runs one frame. Any returned error is fatal.
func (fs *FrameScheduler) Tick() error {
	defer func() { fs.tick++ }()

	if fs.presenter != nil {
		if err := fs.presenter.Err(); err != nil {
			return errors.Wrap(err, "present failed")
		}
		if fs.presenter.TakeStale() {
			fs.recreatePending = true
		}
	}

	if fs.recreatePending {
		if err := fs.recreateSwapchain(); err != nil {
			if errors.Is(err, core.ErrSurfaceMinimized) {
				return nil
			}
			return err
		}
	}

	slot := fs.slots[fs.currentFrame]
	slot.presenting.Wait()
	if err := fs.waitFence(slot.InFlight); err != nil {
		return errors.Wrapf(err, "waiting on frame slot %d", slot.Index)
	}

	state := fs.swapchain.State()
	imageIndex, err := fs.acquire(state.Handle, slot.ImageAvailable)
	if errors.Is(err, core.ErrSurfaceOutOfDate) {
		fs.logger.Info("Surface out of date on acquire, recreating swapchain", "tick", fs.tick)
		fs.recreatePending = true
		if err := fs.recreateSwapchain(); err != nil && !errors.Is(err, core.ErrSurfaceMinimized) {
			return err
		}
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to acquire swapchain image")
	}
	image := state.Images[imageIndex]

	// The image may still be rendered by a submission from another slot.
	if image.LastFence != nil {
		signaled, err := image.LastFence.Signaled()
		if err != nil {
			return errors.Wrap(err, "failed to query image fence")
		}
		if !signaled {
			fs.hazardWaits++
			if err := fs.waitFence(image.LastFence); err != nil {
				return errors.Wrapf(err, "waiting on image %d", imageIndex)
			}
		}
	}
	image.LastFence = slot.InFlight

	if fs.opts.RecordEachTick {
		if err := image.CommandPool.Reset(); err != nil {
			return errors.Wrap(err, "failed to reset command pool")
		}
		if err := image.CommandBuffer.Record(state.RenderPass, image.Framebuffer, state.Pipeline, state.Config.Extent, fs.opts.ClearColor); err != nil {
			return errors.Wrap(err, "failed to record command buffer")
		}
	}
	slot.CommandBuffer = image.CommandBuffer

	if err := slot.InFlight.Reset(); err != nil {
		return errors.Wrap(err, "failed to reset frame fence")
	}
	if err := fs.device.Submit(slot.CommandBuffer, slot.ImageAvailable, slot.RenderFinished, slot.InFlight); err != nil {
		return errors.Wrap(err, "failed to submit frame")
	}

	if fs.presenter != nil {
		if err := fs.presenter.Present(slot, state.Handle, imageIndex); err != nil {
			return errors.Wrap(err, "failed to hand frame to the presenter")
		}
	} else {
		fs.swapchainLock.Lock()
		err := fs.device.Present(state.Handle, imageIndex, slot.RenderFinished)
		fs.swapchainLock.Unlock()
		if errors.Is(err, core.ErrSurfaceOutOfDate) {
			fs.logger.Info("Surface out of date on present, recreating next tick", "tick", fs.tick)
			fs.recreatePending = true
		} else if err != nil {
			return errors.Wrap(err, "failed to present frame")
		}
	}

	fs.currentFrame = (fs.currentFrame + 1) % len(fs.slots)
	return nil
}

// acquire holds the swapchain lock for one attempt at a time. With the
// presenter running an attempt is bounded, so a queued present can get the
// lock and give an image back.
func (fs *FrameScheduler) acquire(swapchain Swapchain, signal Semaphore) (uint32, error) {
	timeout := WaitForever
	if fs.presenter != nil {
		timeout = uint64(acquireRetryInterval.Nanoseconds())
	}
	for {
		fs.swapchainLock.Lock()
		index, err := swapchain.AcquireNextImage(timeout, signal)
		fs.swapchainLock.Unlock()
		if timeout == WaitForever || !errors.Is(err, core.ErrAcquireTimeout) {
			return index, err
		}
	}
}

func (fs *FrameScheduler) waitFence(f Fence) error {
	if fs.opts.FenceTimeoutMs == 0 {
		return f.Wait(WaitForever)
	}

	timeout := time.Duration(fs.opts.FenceTimeoutMs) * time.Millisecond
	abort := time.Duration(fs.opts.StallAbortMs) * time.Millisecond
	var stalled time.Duration
	for {
		err := f.Wait(uint64(timeout.Nanoseconds()))
		if err == nil {
			return nil
		}
		if !errors.Is(err, core.ErrFenceTimeout) {
			return err
		}
		stalled += timeout
		fs.logger.Warn("Frame fence is late", "stalled", stalled, "tick", fs.tick)
		if stalled >= abort {
			return errors.Wrapf(core.ErrDeviceHung, "fence unsignaled after %s", stalled)
		}
	}
}

// recreateSwapchain negotiates first so a minimized window keeps the current
// generation alive. Otherwise it waits for idle, drops the slots, rebuilds the
// swapchain from the old handle and starts again from slot 0.
func (fs *FrameScheduler) recreateSwapchain() error {
	config, err := fs.swapchain.Negotiate()
	if err != nil {
		if errors.Is(err, core.ErrSurfaceMinimized) {
			fs.logger.Debug("Surface has no area, postponing swapchain recreation")
		}
		return err
	}

	if fs.presenter != nil {
		fs.presenter.Drain()
	}
	if err := fs.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "failed to wait for device idle")
	}

	fs.destroySlots()
	if err := fs.swapchain.Rebuild(config); err != nil {
		return err
	}
	if err := fs.createSlots(); err != nil {
		return err
	}

	fs.currentFrame = 0
	fs.recreatePending = false
	fs.recreations++
	fs.logger.Info("Swapchain recreated", "tick", fs.tick, "recreations", fs.recreations)
	return nil
}

// Idle returns once every handed off present was issued and the GPU has
// finished all submitted work.
func (fs *FrameScheduler) Idle() error {
	if fs.presenter != nil {
		fs.presenter.Drain()
	}
	return fs.device.WaitIdle()
}

// Destroy stops the presenter, waits for the device and releases the frame
// slots.
func (fs *FrameScheduler) Destroy() {
	if fs.presenter != nil {
		fs.presenter.Stop()
		fs.presenter = nil
	}
	if err := fs.device.WaitIdle(); err != nil {
		fs.logger.Error("failed to wait for device idle before releasing frame slots", "err", err)
	}
	fs.destroySlots()
}
