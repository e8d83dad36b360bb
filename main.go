/*
Opens a window and draws a single triangle with Vulkan until the window is
closed or the process is interrupted.
*/
package main

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/xlab/closer"

	"github.com/spaghettifunk/vulkantesting/engine"
	"github.com/spaghettifunk/vulkantesting/engine/assets"
	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/platform"
	"github.com/spaghettifunk/vulkantesting/engine/renderer"
	"github.com/spaghettifunk/vulkantesting/engine/renderer/vulkan"
)

func main() {
	code := 0
	if err := run(); err != nil {
		code = 1
	}
	closer.Exit(code)
}

func run() error {
	env := core.ProcessEnvironment()

	config, err := engine.LoadApplicationConfig(engine.DefaultConfigPath, env)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		return err
	}

	logger, err := core.NewLogger(os.Stderr, config.LoggerOptions())
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		return err
	}
	// registered first so it runs after everything else
	closer.Bind(func() {
		logger.Info("Goodbye")
		logger.Close()
	})

	logger.Info("Starting", "config", config.Path, "backend", config.Window.Backend, "validation", config.Renderer.Validation)
	if env.LayerPath != "" {
		logger.Info("Using validation layers", "VK_LAYER_PATH", env.LayerPath)
	}
	logger.Debug("Surface", "kind", env.SurfaceKind(runtime.GOOS))

	events := core.NewEventBus()

	window, err := platform.New(config.Window.Backend, config.WindowOptions(), events, logger)
	if err != nil {
		logger.Error("Failed to create window", "err", err)
		return err
	}

	backend := vulkan.New(window, vulkan.RendererConfig{
		ApplicationName:   config.Window.Title,
		Validation:        config.Renderer.Validation,
		BreakOnValidation: config.Debug.BreakOnValidation,
		Options:           config.RendererOptions(),
		Requirements:      renderer.DefaultAdapterRequirements(),
	}, logger)

	shaders := assets.NewAssetManager(filepath.Clean(config.Shaders.Dir), logger)

	app := engine.New(config, window, backend, shaders, events, logger)
	closer.Bind(func() {
		app.Stop()
		<-app.Stopped()
	})

	if config.Debug.WatchConfig && config.Path != "" {
		watcher, err := engine.NewConfigWatcher(config.Path, logger, engine.LogLevelUpdater(logger))
		if err != nil {
			logger.Warn("Config watcher disabled", "err", err)
		} else {
			defer watcher.Close()
		}
	}

	// window and device are released on the main thread whatever happens
	defer app.Shutdown()

	if err := app.Initialize(); err != nil {
		logger.Error("Failed to initialize", "err", err)
		return err
	}
	if err := app.Run(); err != nil {
		logger.Error("Main loop failed", "err", err)
		return err
	}

	if config.KeepHanging {
		app.Shutdown()
		logger.Info("Shut down, waiting for a signal to exit")
		closer.Hold()
	}
	return nil
}
