package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watcherDebounce collapses bursts of events from a single save.
var watcherDebounce = 500 * time.Millisecond

// ReloadFunc produces a fresh configuration from the same sources.
type ReloadFunc func() (*Config, error)

// Watcher watches configuration files and reports changes.
//
// Components are activated once per startup, so a change to the neo4j
// properties is only logged as requiring a restart. Callbacks still receive
// every valid new configuration.
type Watcher struct {
	config    *Config
	reload    ReloadFunc
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	files     map[string]struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	debounce  time.Duration
}

// NewWatcher starts watching files. Directories are watched rather than the
// files themselves so editors that replace files on save are still seen.
func NewWatcher(initial *Config, files []string, reload ReloadFunc, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		config:   initial,
		reload:   reload,
		logger:   logger,
		watcher:  fsWatcher,
		files:    make(map[string]struct{}, len(files)),
		stopCh:   make(chan struct{}),
		debounce: watcherDebounce,
	}

	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logger.Debug("Watching config directory", zap.String("path", dir))
	}

	go w.watchLoop()
	return w, nil
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !w.watched(event.Name) {
				continue
			}
			w.logger.Info("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reloadConfig)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) watched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

func (w *Watcher) reloadConfig() {
	newConfig, err := w.reload()
	if err != nil {
		w.logger.Error("Invalid configuration after change; keeping current configuration", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.config
	w.config = newConfig
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	if !reflect.DeepEqual(old.Neo4j, newConfig.Neo4j) {
		w.logger.Warn("Neo4j properties changed; restart required to apply them",
			zap.Strings("keys", newConfig.Neo4j.Keys()),
		)
	}

	for i, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Callback panicked", zap.Int("callback_index", i), zap.Any("panic", r))
				}
			}()
			cb(newConfig)
		}()
	}
}

// OnChange registers a callback invoked with each valid new configuration.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
}
