package renderer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

// fakeDevice models just enough of a GPU to check the lifecycle rules: fences
// complete only when somebody waits on them (or on the whole device), and every
// misuse is recorded as a violation instead of crashing.
type fakeDevice struct {
	mu sync.Mutex

	support  *SwapchainSupport
	families QueueFamilyIndices
	width    uint32
	height   uint32

	nextID    int
	created   map[string]int
	destroyed map[string]int
	// events holds create:/destroy: per object kind plus "present" and
	// "waitidle" in call order.
	events []string

	violationsMu sync.Mutex
	violations   []string

	// failKind makes the failAt-th (1 based) creation of that kind fail.
	failKind string
	failAt   int
	attempts map[string]int

	// acquireOrder is cycled through by AcquireNextImage; empty means round robin.
	acquireOrder     []uint32
	acquireCalls     int
	staleNextAcquire bool
	staleNextPresent bool
	hangFences       bool
	// acquireTimeouts is how many acquires report no image before one succeeds.
	acquireTimeouts int
	presentDelay    time.Duration

	submissions   []*fakeSubmission
	presentCalls  int
	waitIdleCalls int
	swapchains    []*fakeSwapchain
}

type fakeSubmission struct {
	cb    *fakeCommandBuffer
	fence *fakeFence
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		support:   fakeSupport(2, 0),
		families:  QueueFamilyIndices{Graphics: 0, Present: 0, Transfer: 0},
		width:     1024,
		height:    512,
		created:   map[string]int{},
		destroyed: map[string]int{},
		attempts:  map[string]int{},
	}
}

func fakeSupport(minImages, maxImages uint32) *SwapchainSupport {
	return &SwapchainSupport{
		Capabilities: vk.SurfaceCapabilities{
			MinImageCount:  minImages,
			MaxImageCount:  maxImages,
			CurrentExtent:  vk.Extent2D{Width: 1024, Height: 512},
			MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
		},
		Formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		PresentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox, vk.PresentModeImmediate},
	}
}

func (d *fakeDevice) violate(format string, args ...interface{}) {
	d.violationsMu.Lock()
	defer d.violationsMu.Unlock()
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

var errInjected = fmt.Errorf("injected failure")

func (d *fakeDevice) injected(kind string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts[kind]++
	if kind == d.failKind && d.attempts[kind] == d.failAt {
		return errInjected
	}
	return nil
}

func (d *fakeDevice) record(event string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *fakeDevice) newObject(kind string) fakeObject {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.created[kind]++
	d.events = append(d.events, "create:"+kind)
	return fakeObject{dev: d, kind: kind, id: d.nextID}
}

func (d *fakeDevice) totalCreated() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.created {
		n += c
	}
	return n
}

func (d *fakeDevice) eventsSince(start int) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events)-start)
	copy(out, d.events[start:])
	return out
}

func (d *fakeDevice) eventCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

type fakeObject struct {
	dev       *fakeDevice
	kind      string
	id        int
	destroyed bool
}

func (o *fakeObject) Destroy() {
	o.dev.mu.Lock()
	defer o.dev.mu.Unlock()
	if o.destroyed {
		o.dev.violate("%s %d destroyed twice", o.kind, o.id)
		return
	}
	o.destroyed = true
	o.dev.destroyed[o.kind]++
	o.dev.events = append(o.dev.events, "destroy:"+o.kind)
}

type fakeImage struct{ index int }

type fakeSemaphore struct{ fakeObject }

type fakeFence struct {
	fakeObject
	signaled bool
	pending  bool
}

func (f *fakeFence) Wait(timeoutNs uint64) error {
	if f.destroyed {
		f.dev.violate("wait on destroyed fence %d", f.id)
	}
	if f.signaled {
		return nil
	}
	if !f.pending {
		if timeoutNs == WaitForever {
			f.dev.violate("fence %d waited forever without a pending submission", f.id)
			return nil
		}
		return core.ErrFenceTimeout
	}
	if f.dev.hangFences && timeoutNs != WaitForever {
		return core.ErrFenceTimeout
	}
	f.complete()
	return nil
}

func (f *fakeFence) complete() {
	f.pending = false
	f.signaled = true
}

func (f *fakeFence) Signaled() (bool, error) {
	return f.signaled, nil
}

func (f *fakeFence) Reset() error {
	if !f.signaled {
		f.dev.violate("fence %d reset while unsignaled", f.id)
	}
	f.signaled = false
	return nil
}

type fakeCommandBuffer struct {
	fakeObject
	lastFence  *fakeFence
	recordings int
}

func (cb *fakeCommandBuffer) Record(pass RenderPass, fb Framebuffer, pipeline Pipeline, extent vk.Extent2D, clear [4]float32) error {
	if cb.lastFence != nil && !cb.lastFence.signaled {
		cb.dev.violate("command buffer %d recorded while its last submission is running", cb.id)
	}
	if pass.(*fakeRenderPass).destroyed || fb.(*fakeFramebuffer).destroyed || pipeline.(*fakePipeline).destroyed {
		cb.dev.violate("command buffer %d recorded against destroyed objects", cb.id)
	}
	cb.recordings++
	return nil
}

type fakeCommandPool struct{ fakeObject }

func (p *fakeCommandPool) Allocate() (CommandBuffer, error) {
	if err := p.dev.injected("commandbuffer"); err != nil {
		return nil, err
	}
	return &fakeCommandBuffer{fakeObject: p.dev.newObject("commandbuffer")}, nil
}

func (p *fakeCommandPool) Reset() error { return nil }

type fakeImageView struct{ fakeObject }
type fakeFramebuffer struct{ fakeObject }
type fakeRenderPass struct{ fakeObject }
type fakePipeline struct{ fakeObject }

type fakeSwapchain struct {
	fakeObject
	config   SwapchainConfig
	previous *fakeSwapchain
	images   []Image
	// inUse counts callers inside acquire or present.
	inUse atomic.Int32
}

func (s *fakeSwapchain) enter(op string) {
	if s.inUse.Add(1) != 1 {
		s.dev.violate("%s on swapchain %d while another call uses it", op, s.id)
	}
}

func (s *fakeSwapchain) leave() {
	s.inUse.Add(-1)
}

func (s *fakeSwapchain) Images() ([]Image, error) {
	return s.images, nil
}

func (s *fakeSwapchain) AcquireNextImage(timeoutNs uint64, signal Semaphore) (uint32, error) {
	d := s.dev
	s.enter("acquire")
	defer s.leave()
	if s.destroyed {
		d.violate("acquire on destroyed swapchain %d", s.id)
	}
	if d.acquireTimeouts > 0 {
		if timeoutNs == WaitForever {
			d.violate("acquire waited forever with no image available")
		}
		d.acquireTimeouts--
		return 0, core.ErrAcquireTimeout
	}
	if d.staleNextAcquire {
		d.staleNextAcquire = false
		return 0, core.ErrSurfaceOutOfDate
	}
	var idx uint32
	if len(d.acquireOrder) > 0 {
		idx = d.acquireOrder[d.acquireCalls%len(d.acquireOrder)]
	} else {
		idx = uint32(d.acquireCalls % len(s.images))
	}
	d.acquireCalls++
	return idx, nil
}

func (d *fakeDevice) WaitIdle() error {
	d.mu.Lock()
	subs := d.submissions
	d.waitIdleCalls++
	d.events = append(d.events, "waitidle")
	d.mu.Unlock()
	for _, s := range subs {
		if s.fence.pending && !s.fence.destroyed {
			s.fence.complete()
		}
	}
	return nil
}

func (d *fakeDevice) QueueFamilies() QueueFamilyIndices { return d.families }

func (d *fakeDevice) QuerySwapchainSupport() (*SwapchainSupport, error) {
	return d.support, nil
}

func (d *fakeDevice) FramebufferSize() (uint32, uint32) { return d.width, d.height }

func (d *fakeDevice) CreateSwapchain(config *SwapchainConfig, previous Swapchain) (Swapchain, error) {
	if err := d.injected("swapchain"); err != nil {
		return nil, err
	}
	sc := &fakeSwapchain{fakeObject: d.newObject("swapchain"), config: *config}
	if previous != nil {
		sc.previous = previous.(*fakeSwapchain)
	}
	for i := uint32(0); i < config.ImageCount; i++ {
		sc.images = append(sc.images, &fakeImage{index: int(i)})
	}
	d.swapchains = append(d.swapchains, sc)
	return sc, nil
}

func (d *fakeDevice) CreateImageView(image Image, format vk.Format) (ImageView, error) {
	if err := d.injected("imageview"); err != nil {
		return nil, err
	}
	return &fakeImageView{d.newObject("imageview")}, nil
}

func (d *fakeDevice) CreateRenderPass(format vk.Format) (RenderPass, error) {
	if err := d.injected("renderpass"); err != nil {
		return nil, err
	}
	return &fakeRenderPass{d.newObject("renderpass")}, nil
}

func (d *fakeDevice) CreatePipeline(pass RenderPass, extent vk.Extent2D, shaders *ShaderSet) (Pipeline, error) {
	if err := d.injected("pipeline"); err != nil {
		return nil, err
	}
	return &fakePipeline{d.newObject("pipeline")}, nil
}

func (d *fakeDevice) CreateFramebuffer(pass RenderPass, view ImageView, extent vk.Extent2D) (Framebuffer, error) {
	if err := d.injected("framebuffer"); err != nil {
		return nil, err
	}
	return &fakeFramebuffer{d.newObject("framebuffer")}, nil
}

func (d *fakeDevice) CreateCommandPool() (CommandPool, error) {
	if err := d.injected("commandpool"); err != nil {
		return nil, err
	}
	return &fakeCommandPool{d.newObject("commandpool")}, nil
}

func (d *fakeDevice) CreateSemaphore() (Semaphore, error) {
	if err := d.injected("semaphore"); err != nil {
		return nil, err
	}
	return &fakeSemaphore{d.newObject("semaphore")}, nil
}

func (d *fakeDevice) CreateFence(signaled bool) (Fence, error) {
	if err := d.injected("fence"); err != nil {
		return nil, err
	}
	return &fakeFence{fakeObject: d.newObject("fence"), signaled: signaled}, nil
}

func (d *fakeDevice) Submit(cb CommandBuffer, wait, signal Semaphore, fence Fence) error {
	f := fence.(*fakeFence)
	c := cb.(*fakeCommandBuffer)
	if f.signaled || f.pending {
		d.violate("submit with fence %d that was not reset", f.id)
	}
	if c.destroyed || f.destroyed {
		d.violate("submit uses destroyed objects")
	}
	f.pending = true
	c.lastFence = f
	d.mu.Lock()
	d.submissions = append(d.submissions, &fakeSubmission{cb: c, fence: f})
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Present(swapchain Swapchain, imageIndex uint32, wait Semaphore) error {
	sc := swapchain.(*fakeSwapchain)
	sc.enter("present")
	defer sc.leave()
	if sc.destroyed {
		d.violate("present on destroyed swapchain %d", sc.id)
	}
	if s := wait.(*fakeSemaphore); s.destroyed {
		d.violate("present waits on destroyed semaphore %d", s.id)
	}
	time.Sleep(d.presentDelay)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentCalls++
	d.events = append(d.events, "present")
	if d.staleNextPresent {
		d.staleNextPresent = false
		return core.ErrSurfaceOutOfDate
	}
	return nil
}

func (d *fakeDevice) setStaleNextPresent() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staleNextPresent = true
}

func (d *fakeDevice) presents() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presentCalls
}

func (d *fakeDevice) submissionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.submissions)
}

func (d *fakeDevice) lastSubmission() *fakeSubmission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submissions[len(d.submissions)-1]
}
