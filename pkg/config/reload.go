package config

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration file on change and publishes the new
// Config to the process singleton via Set. Uses a debounced fsnotify
// pattern trimmed to a single file (no directory/extension filtering,
// since there is exactly one config file to watch).
type Watcher struct {
	path     string
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	debounce time.Duration
}

// NewWatcher creates a file watcher for path. Call Start to begin watching;
// call Stop to release the underlying inotify/kqueue handle.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     path,
		logger:   logger,
		watcher:  w,
		stopCh:   make(chan struct{}),
		debounce: 200 * time.Millisecond,
	}, nil
}

// Start begins watching the config file in a background goroutine. Reload
// failures are logged and the previous configuration is kept in place;
// in-flight searches never observe a partially-applied config.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.path); err != nil {
		return err
	}
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	var pending *time.Timer
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous config", "path", w.path, "error", err)
		return
	}
	Set(cfg)
	w.logger.Info("configuration reloaded", "path", w.path)
}

// Stop stops the watcher and releases its OS resources.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	return w.watcher.Close()
}
