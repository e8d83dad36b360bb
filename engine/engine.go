package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/platform"
	"github.com/spaghettifunk/vulkantesting/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Everything has been released
	EngineStageShutdown
)

const suspendedPollInterval = 10 * time.Millisecond

// Renderer is the GPU side of the application.
type Renderer interface {
	Initialize(shaders *renderer.ShaderSet) error
	DrawFrame() error
	Resized(width, height uint32)
	WaitIdle() error
	Shutdown()
}

// ShaderSource provides the SPIR-V of the pipeline stages.
type ShaderSource interface {
	LoadShaders(vertex, fragment string) (*renderer.ShaderSet, error)
}

// Engine drives the main loop: pump window events, draw, update metrics.
type Engine struct {
	config   *ApplicationConfig
	window   platform.Window
	renderer Renderer
	shaders  ShaderSource
	events   *core.EventBus
	logger   *core.Logger

	clock   *core.Clock
	metrics *core.Metrics

	currentStage Stage
	running      atomic.Bool
	isSuspended  bool
	width        uint32
	height       uint32

	shutdownOnce sync.Once
	stopped      chan struct{}
}

func New(config *ApplicationConfig, window platform.Window, r Renderer, shaders ShaderSource, events *core.EventBus, logger *core.Logger) *Engine {
	return &Engine{
		config:       config,
		window:       window,
		renderer:     r,
		shaders:      shaders,
		events:       events,
		logger:       logger,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		currentStage: EngineStageUninitialized,
		width:        config.Window.Width,
		height:       config.Window.Height,
		stopped:      make(chan struct{}),
	}
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}

// Initialize loads the shaders before any GPU object exists, then brings the
// renderer up.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	// register some events
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_KEY_RELEASED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	shaders, err := e.shaders.LoadShaders(e.config.Shaders.Vertex, e.config.Shaders.Fragment)
	if err != nil {
		return errors.Wrap(err, "failed to load shaders")
	}

	if err := e.renderer.Initialize(shaders); err != nil {
		return errors.Wrap(err, "failed to initialize renderer")
	}

	e.running.Store(true)
	e.currentStage = EngineStageInitialized
	return nil
}

// Run ticks until a stop is requested or drawing fails. The device is always
// idle when Run returns.
func (e *Engine) Run() (err error) {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	lastTime := e.clock.Elapsed()

	defer func() {
		if waitErr := e.renderer.WaitIdle(); waitErr != nil && err == nil {
			err = errors.Wrap(waitErr, "failed to wait for device idle")
		}
	}()

	for {
		e.window.ProcessEvents()
		if e.window.ShouldClose() {
			e.running.Store(false)
		}
		if !e.running.Load() {
			break
		}

		if e.isSuspended {
			// nothing to present into, don't spin
			time.Sleep(suspendedPollInterval)
			continue
		}

		if err := e.renderer.DrawFrame(); err != nil {
			e.running.Store(false)
			return errors.Wrapf(err, "frame %d", e.metrics.Ticks())
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		if e.metrics.Update(currentTime - lastTime) {
			e.window.SetTitle(fmt.Sprintf("%s - %.0f FPS", e.config.Window.Title, e.metrics.FPS()))
			e.logger.Debug("Frame statistics", "fps", e.metrics.FPS(), "frame_ms", e.metrics.FrameTime())
		}
		lastTime = currentTime
	}

	e.logger.Info("Main loop finished", "ticks", e.metrics.Ticks())
	return nil
}

// Stop asks the loop to exit at the next tick boundary. It is safe to call
// from any goroutine.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Stopped is closed once Shutdown has released everything.
func (e *Engine) Stopped() <-chan struct{} {
	return e.stopped
}

// Shutdown releases the renderer, then the window. It runs once.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.currentStage = EngineStageShuttingDown
		e.running.Store(false)
		e.clock.Stop()

		e.renderer.Shutdown()
		e.events.Shutdown()
		if e.window != nil {
			e.window.Destroy()
		}

		e.currentStage = EngineStageShutdown
		close(e.stopped)
	})
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		e.logger.Info("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.running.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	keyCode := core.KeyCode(data.Data.U16[0])
	if code == core.EVENT_CODE_KEY_PRESSED && keyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	width := data.Data.U32[0]
	height := data.Data.U32[1]

	if width == e.width && height == e.height && !e.isSuspended {
		return false
	}
	e.width = width
	e.height = height
	e.logger.Debug("Window resize", "width", width, "height", height)

	// Handle minimization
	if width == 0 || height == 0 {
		if !e.isSuspended {
			e.logger.Info("Window minimized, suspending application.")
			e.isSuspended = true
		}
		return true
	}
	if e.isSuspended {
		e.logger.Info("Window restored, resuming application.")
		e.isSuspended = false
	}
	e.renderer.Resized(width, height)
	return true
}
