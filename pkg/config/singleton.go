package config

import "sync"

var (
	global     *Config
	globalMu   sync.RWMutex
	initOnce   sync.Once
	initErr    error
)

// Initialize loads the configuration at path and stores it as the process
// singleton. Safe to call from multiple goroutines; only the first call
// does the work. Supports fsnotify-driven hot reload via Set.
func Initialize(path string) error {
	initOnce.Do(func() {
		cfg, err := Load(path)
		if err != nil {
			initErr = err
			return
		}
		globalMu.Lock()
		global = cfg
		globalMu.Unlock()
	})
	return initErr
}

// Get returns the current global configuration, or nil if Initialize/Set
// has not been called yet.
func Get() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Set atomically replaces the global configuration. Used by the fsnotify
// watcher to apply a hot-reloaded config without restarting the process;
// in-flight searches keep whatever SessionState/config snapshot they
// already captured.
func Set(cfg *Config) {
	globalMu.Lock()
	global = cfg
	globalMu.Unlock()
}
