package engine

import (
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

type fakeWindow struct {
	ticks     int
	onTick    func(tick int)
	close     bool
	titles    []string
	destroyed int
}

func (w *fakeWindow) ProcessEvents() {
	w.ticks++
	if w.onTick != nil {
		w.onTick(w.ticks)
	}
}
func (w *fakeWindow) ShouldClose() bool { return w.close }
func (w *fakeWindow) SetTitle(title string) { w.titles = append(w.titles, title) }
func (w *fakeWindow) FramebufferSize() (uint32, uint32) { return 800, 600 }
func (w *fakeWindow) RequiredInstanceExtensions() []string { return nil }
func (w *fakeWindow) GetInstanceProcAddress() unsafe.Pointer { return nil }
func (w *fakeWindow) CreateSurface(interface{}) (uintptr, error) { return 0, nil }
func (w *fakeWindow) Destroy() { w.destroyed++ }

type fakeRenderer struct {
	calls    []string
	initErr  error
	drawErr  error
	draws    int
	resizes  [][2]uint32
	shutdown int
}

func (r *fakeRenderer) Initialize(*renderer.ShaderSet) error {
	r.calls = append(r.calls, "initialize")
	return r.initErr
}

func (r *fakeRenderer) DrawFrame() error {
	r.draws++
	return r.drawErr
}

func (r *fakeRenderer) Resized(w, h uint32) {
	r.resizes = append(r.resizes, [2]uint32{w, h})
}

func (r *fakeRenderer) WaitIdle() error {
	r.calls = append(r.calls, "wait-idle")
	return nil
}

func (r *fakeRenderer) Shutdown() {
	r.shutdown++
	r.calls = append(r.calls, "shutdown")
}

type fakeShaders struct {
	calls *[]string
	err   error
}

func (s fakeShaders) LoadShaders(vertex, fragment string) (*renderer.ShaderSet, error) {
	*s.calls = append(*s.calls, "load-shaders")
	if s.err != nil {
		return nil, s.err
	}
	return &renderer.ShaderSet{Vertex: []uint32{0x07230203}, Fragment: []uint32{0x07230203}}, nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeWindow, *fakeRenderer, *core.EventBus) {
	t.Helper()
	window := &fakeWindow{}
	r := &fakeRenderer{}
	events := core.NewEventBus()
	e := New(DefaultApplicationConfig(), window, r, fakeShaders{calls: &r.calls}, events, core.NewDiscardLogger())
	return e, window, r, events
}

func resizeContext(w, h uint32) core.EventContext {
	ctx := core.EventContext{}
	ctx.Data.U32[0] = w
	ctx.Data.U32[1] = h
	return ctx
}

func keyContext(key core.KeyCode) core.EventContext {
	ctx := core.EventContext{}
	ctx.Data.U16[0] = uint16(key)
	return ctx
}

func TestInitializeLoadsShadersFirst(t *testing.T) {
	e, _, r, _ := newTestEngine(t)
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(r.calls) != 2 || r.calls[0] != "load-shaders" || r.calls[1] != "initialize" {
		t.Errorf("calls = %v", r.calls)
	}
	if e.Stage() != EngineStageInitialized {
		t.Errorf("stage = %d", e.Stage())
	}
}

func TestInitializeStopsOnShaderError(t *testing.T) {
	r := &fakeRenderer{}
	e := New(DefaultApplicationConfig(), &fakeWindow{}, r,
		fakeShaders{calls: &r.calls, err: core.ErrShaderFileNotFound}, core.NewEventBus(), core.NewDiscardLogger())

	err := e.Initialize()
	if !errors.Is(err, core.ErrShaderFileNotFound) {
		t.Fatalf("Initialize err = %v, want ErrShaderFileNotFound", err)
	}
	for _, c := range r.calls {
		if c == "initialize" {
			t.Error("renderer must not be touched when shaders are missing")
		}
	}
}

func TestRunRequiresInitialize(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	if err := e.Run(); err == nil {
		t.Fatal("expected error when running an uninitialized engine")
	}
}

func TestRunExitsOnWindowClose(t *testing.T) {
	e, window, r, _ := newTestEngine(t)
	window.onTick = func(tick int) {
		if tick == 4 {
			window.close = true
		}
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.draws != 3 {
		t.Errorf("draws = %d, want 3", r.draws)
	}
	if last := r.calls[len(r.calls)-1]; last != "wait-idle" {
		t.Errorf("last call = %s, want wait-idle", last)
	}
	if e.Metrics().Ticks() != 3 {
		t.Errorf("ticks = %d, want 3", e.Metrics().Ticks())
	}
}

func TestEscapeQuits(t *testing.T) {
	e, window, r, events := newTestEngine(t)
	window.onTick = func(tick int) {
		if tick == 2 {
			events.Fire(core.EVENT_CODE_KEY_PRESSED, window, keyContext(core.KEY_ESCAPE))
		}
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if r.draws != 1 {
		t.Errorf("draws = %d, want 1", r.draws)
	}
}

func TestOtherKeysAreIgnored(t *testing.T) {
	e, _, _, events := newTestEngine(t)
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if events.Fire(core.EVENT_CODE_KEY_PRESSED, nil, keyContext(core.KEY_ENTER)) {
		t.Error("enter should not be handled")
	}
	if events.Fire(core.EVENT_CODE_KEY_RELEASED, nil, keyContext(core.KEY_ESCAPE)) {
		t.Error("escape release should not be handled")
	}
}

func TestDrawErrorStopsLoop(t *testing.T) {
	e, _, r, _ := newTestEngine(t)
	r.drawErr = core.ErrDeviceHung
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	err := e.Run()
	if !errors.Is(err, core.ErrDeviceHung) {
		t.Fatalf("Run err = %v, want ErrDeviceHung", err)
	}
	if r.draws != 1 {
		t.Errorf("draws = %d, want 1", r.draws)
	}
	if last := r.calls[len(r.calls)-1]; last != "wait-idle" {
		t.Errorf("device must be idle after a failed frame, last call %s", last)
	}
}

func TestMinimizeSuspendsDrawing(t *testing.T) {
	e, window, r, events := newTestEngine(t)
	window.onTick = func(tick int) {
		switch tick {
		case 2:
			events.Fire(core.EVENT_CODE_RESIZED, window, resizeContext(0, 0))
		case 5:
			events.Fire(core.EVENT_CODE_RESIZED, window, resizeContext(640, 480))
		case 6:
			window.close = true
		}
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	// ticks 1 and 5 draw, 2 to 4 are suspended
	if r.draws != 2 {
		t.Errorf("draws = %d, want 2", r.draws)
	}
	if len(r.resizes) != 1 || r.resizes[0] != [2]uint32{640, 480} {
		t.Errorf("resizes = %v", r.resizes)
	}
	if w, h := e.GetFramebufferSize(); w != 640 || h != 480 {
		t.Errorf("size = %dx%d", w, h)
	}
}

func TestResizeToSameSizeIsIgnored(t *testing.T) {
	e, _, r, events := newTestEngine(t)
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	w, h := e.GetFramebufferSize()
	if events.Fire(core.EVENT_CODE_RESIZED, nil, resizeContext(w, h)) {
		t.Error("same size should not be handled")
	}
	if len(r.resizes) != 0 {
		t.Errorf("resizes = %v", r.resizes)
	}
}

func TestStopFromAnotherGoroutine(t *testing.T) {
	e, window, _, _ := newTestEngine(t)
	stopped := make(chan struct{})
	window.onTick = func(tick int) {
		if tick == 3 {
			go func() {
				e.Stop()
				close(stopped)
			}()
			<-stopped
		}
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if window.ticks != 3 {
		t.Errorf("ticks = %d, want 3", window.ticks)
	}
}

func TestShutdownOnce(t *testing.T) {
	e, window, r, _ := newTestEngine(t)
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	e.Shutdown()
	e.Shutdown()

	select {
	case <-e.Stopped():
	default:
		t.Fatal("Stopped channel should be closed")
	}
	if r.shutdown != 1 || window.destroyed != 1 {
		t.Errorf("renderer shutdown %d times, window destroyed %d times", r.shutdown, window.destroyed)
	}
	if e.Stage() != EngineStageShutdown {
		t.Errorf("stage = %d", e.Stage())
	}
}
