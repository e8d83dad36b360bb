package renderer

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

// SwapchainImage groups everything that exists once per presentable image.
type SwapchainImage struct {
	Image         Image
	View          ImageView
	Framebuffer   Framebuffer
	CommandPool   CommandPool
	CommandBuffer CommandBuffer
	// LastFence is the fence of the frame slot that last submitted work
	// rendering into this image. It is not owned.
	LastFence Fence
}

// SwapchainState is one generation of the swapchain and everything derived
// from it. A generation is built completely or not at all.
type SwapchainState struct {
	Config     *SwapchainConfig
	Handle     Swapchain
	Images     []*SwapchainImage
	RenderPass RenderPass
	Pipeline   Pipeline
	Generation uint64

	resources resourceStack
}

// releaseResources destroys the per image objects, the pipeline and the render
// pass. The swapchain handle is left alone so it can be handed over to the next
// generation.
func (s *SwapchainState) releaseResources() {
	s.resources.release()
	s.Images = nil
	s.RenderPass = nil
	s.Pipeline = nil
}

// SwapchainManager creates and recreates the swapchain in place. The surface
// it presents to is owned by the context and outlives every generation.
type SwapchainManager struct {
	device  Device
	shaders *ShaderSet
	opts    Options
	logger  *core.Logger
	state   *SwapchainState
}

func NewSwapchainManager(device Device, shaders *ShaderSet, opts Options, logger *core.Logger) *SwapchainManager {
	return &SwapchainManager{
		device:  device,
		shaders: shaders,
		opts:    opts,
		logger:  logger,
	}
}

func (m *SwapchainManager) State() *SwapchainState {
	return m.state
}

// Negotiate queries the surface and picks a configuration without touching
// any GPU object.
func (m *SwapchainManager) Negotiate() (*SwapchainConfig, error) {
	support, err := m.device.QuerySwapchainSupport()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query swapchain support")
	}
	for _, f := range support.Formats {
		m.logger.Debug("Surface supports format", "format", f.Format, "colorspace", f.ColorSpace)
	}
	for _, p := range support.PresentModes {
		m.logger.Debug("Surface supports present mode", "mode", PresentModeName(p))
	}
	width, height := m.device.FramebufferSize()
	return ChooseConfig(support, m.opts, m.device.QueueFamilies(), width, height)
}

// Create builds the first generation.
func (m *SwapchainManager) Create() error {
	config, err := m.Negotiate()
	if err != nil {
		return err
	}
	return m.build(config, nil, 0)
}

// Rebuild replaces the current generation. The device must be idle and no
// frame slot may reference the old generation. The old swapchain is passed to
// the driver as the previous swapchain and destroyed once replaced.
func (m *SwapchainManager) Rebuild(config *SwapchainConfig) error {
	var previous Swapchain
	var generation uint64
	if m.state != nil {
		m.state.releaseResources()
		previous = m.state.Handle
		generation = m.state.Generation + 1
		m.state = nil
	}

	err := m.build(config, previous, generation)
	if previous != nil {
		previous.Destroy()
	}
	return err
}

// Destroy releases the current generation including the swapchain handle.
func (m *SwapchainManager) Destroy() {
	if m.state == nil {
		return
	}
	m.state.releaseResources()
	m.state.Handle.Destroy()
	m.state = nil
}

func (m *SwapchainManager) build(config *SwapchainConfig, previous Swapchain, generation uint64) (err error) {
	handle, err := m.device.CreateSwapchain(config, previous)
	if err != nil {
		return errors.Wrap(err, "failed to create swapchain")
	}

	cfg := *config
	state := &SwapchainState{
		Config:     &cfg,
		Handle:     handle,
		Generation: generation,
	}
	defer func() {
		if err != nil {
			state.releaseResources()
			handle.Destroy()
		}
	}()

	images, err := handle.Images()
	if err != nil {
		return errors.Wrap(err, "failed to retrieve swapchain images")
	}
	if uint32(len(images)) != cfg.ImageCount {
		m.logger.Debug("Driver returned a different image count", "requested", cfg.ImageCount, "got", len(images))
		cfg.ImageCount = uint32(len(images))
	}

	for _, img := range images {
		view, err := m.device.CreateImageView(img, cfg.Format)
		if err != nil {
			return errors.Wrap(err, "failed to create image view")
		}
		state.resources.push(view)
		state.Images = append(state.Images, &SwapchainImage{Image: img, View: view})
	}

	if state.RenderPass, err = m.device.CreateRenderPass(cfg.Format); err != nil {
		return errors.Wrap(err, "failed to create render pass")
	}
	state.resources.push(state.RenderPass)

	if state.Pipeline, err = m.device.CreatePipeline(state.RenderPass, cfg.Extent, m.shaders); err != nil {
		return errors.Wrap(err, "failed to create graphics pipeline")
	}
	state.resources.push(state.Pipeline)

	for _, image := range state.Images {
		if image.Framebuffer, err = m.device.CreateFramebuffer(state.RenderPass, image.View, cfg.Extent); err != nil {
			return errors.Wrap(err, "failed to create framebuffer")
		}
		state.resources.push(image.Framebuffer)
	}

	for _, image := range state.Images {
		if image.CommandPool, err = m.device.CreateCommandPool(); err != nil {
			return errors.Wrap(err, "failed to create command pool")
		}
		state.resources.push(image.CommandPool)
	}

	for _, image := range state.Images {
		if image.CommandBuffer, err = image.CommandPool.Allocate(); err != nil {
			return errors.Wrap(err, "failed to allocate command buffer")
		}
		state.resources.push(image.CommandBuffer)
		if err = image.CommandBuffer.Record(state.RenderPass, image.Framebuffer, state.Pipeline, cfg.Extent, m.opts.ClearColor); err != nil {
			return errors.Wrap(err, "failed to record command buffer")
		}
	}

	m.state = state
	m.logger.Info("Swapchain created", "generation", generation, "config", cfg.String())
	return nil
}
