package engine

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

// ConfigWatcher re-reads the configuration file whenever it changes on disk
// and hands the result to OnChange. Only settings that are safe to change at
// runtime should be applied by the callback.
type ConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *core.Logger
	onChange func(*ApplicationConfig)

	done chan struct{}
	wg   sync.WaitGroup
}

// NewConfigWatcher watches the directory holding path, since editors usually
// replace the file instead of writing it in place.
func NewConfigWatcher(path string, logger *core.Logger, onChange func(*ApplicationConfig)) (*ConfigWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatch.Close()
		return nil, err
	}
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}

	cw := &ConfigWatcher{
		path:     abs,
		watcher:  fsWatch,
		logger:   logger,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.start()
	logger.Info("Watching configuration", "path", abs)
	return cw, nil
}

func (cw *ConfigWatcher) start() {
	defer cw.wg.Done()
	for {
		select {
		case e, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != cw.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				cw.reload()
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("config watcher error", "err", err)

		case <-cw.done:
			return
		}
	}
}

func (cw *ConfigWatcher) reload() {
	data, err := os.ReadFile(cw.path)
	if err != nil {
		cw.logger.Warn("config changed but could not be read", "path", cw.path, "err", err)
		return
	}
	config := DefaultApplicationConfig()
	if err := decodeConfig(data, config); err != nil {
		cw.logger.Warn("config changed but could not be parsed", "path", cw.path, "err", err)
		return
	}
	config.Path = cw.path
	cw.onChange(config)
}

func (cw *ConfigWatcher) Close() error {
	close(cw.done)
	err := cw.watcher.Close()
	cw.wg.Wait()
	return err
}

// LogLevelUpdater returns a change handler that applies the log level.
func LogLevelUpdater(logger *core.Logger) func(*ApplicationConfig) {
	return func(config *ApplicationConfig) {
		level, err := log.ParseLevel(config.Log.Level)
		if err != nil {
			logger.Warn("ignoring invalid log level", "level", config.Log.Level)
			return
		}
		if logger.GetLevel() != level {
			logger.SetLevel(level)
			logger.Info("Log level changed", "level", level)
		}
	}
}
