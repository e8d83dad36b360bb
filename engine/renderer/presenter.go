package renderer

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vulkantesting/engine/containers"
	"github.com/spaghettifunk/vulkantesting/engine/core"
)

type presentRequest struct {
	slot       *FrameSlot
	swapchain  Swapchain
	imageIndex uint32
}

// Presenter issues present calls from its own goroutine. The frame slot of a
// request belongs to the presenter until the present returned; the scheduler
// waits on the slot before touching it again.
type Presenter struct {
	device  Device
	logger  *core.Logger
	queue   *containers.BlockingQueue[presentRequest]
	pending sync.WaitGroup
	done    chan struct{}
	stale   atomic.Bool

	// swapchainLock is shared with the acquiring side.
	swapchainLock *sync.Mutex

	mu  sync.Mutex
	err error
}

func NewPresenter(device Device, depth int, swapchainLock *sync.Mutex, logger *core.Logger) *Presenter {
	p := &Presenter{
		device:        device,
		logger:        logger,
		swapchainLock: swapchainLock,
		queue:         containers.NewBlockingQueue[presentRequest](depth),
		done:          make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *Presenter) loop() {
	defer close(p.done)
	for {
		req, ok := p.queue.Dequeue()
		if !ok {
			return
		}
		p.swapchainLock.Lock()
		err := p.device.Present(req.swapchain, req.imageIndex, req.slot.RenderFinished)
		p.swapchainLock.Unlock()
		switch {
		case err == nil:
		case errors.Is(err, core.ErrSurfaceOutOfDate):
			p.stale.Store(true)
		default:
			p.mu.Lock()
			if p.err == nil {
				p.err = err
			}
			p.mu.Unlock()
		}
		req.slot.presenting.Done()
		p.pending.Done()
	}
}

// Present hands the slot over to the presenter goroutine.
func (p *Presenter) Present(slot *FrameSlot, swapchain Swapchain, imageIndex uint32) error {
	slot.presenting.Add(1)
	p.pending.Add(1)
	err := p.queue.Enqueue(presentRequest{slot: slot, swapchain: swapchain, imageIndex: imageIndex})
	if err != nil {
		slot.presenting.Done()
		p.pending.Done()
	}
	return err
}

// Drain blocks until every queued frame has been presented.
func (p *Presenter) Drain() {
	p.pending.Wait()
}

// TakeStale reports and clears a stale surface seen since the last call.
func (p *Presenter) TakeStale() bool {
	return p.stale.Swap(false)
}

func (p *Presenter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop issues the presents still queued and ends the goroutine.
func (p *Presenter) Stop() {
	p.queue.Close()
	<-p.done
}
