// SPDX-License-Identifier: MIT
package config

import (
	"sync"

	applog "beatgrid/internal/log"

	"github.com/fsnotify/fsnotify"
)

// HotConfig wraps Config with hot-reload support so the serve mode can pick
// up parameter changes (sensitivity, kick band, etc.) without a restart.
type HotConfig struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
	subs []func(*Config)
}

// NewHotConfig loads the file at path and returns a reloadable handle.
func NewHotConfig(path string) (*HotConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &HotConfig{cfg: cfg, path: path}, nil
}

// Get returns the current configuration snapshot.
func (hc *HotConfig) Get() *Config {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.cfg
}

// OnReload registers a callback invoked after each successful reload.
// Callbacks must be registered before Watch is called.
func (hc *HotConfig) OnReload(fn func(*Config)) {
	hc.subs = append(hc.subs, fn)
}

func (hc *HotConfig) reload() {
	cfg, err := Load(hc.path)
	if err != nil {
		applog.Errorf("Config: reload failed: %v", err)
		return
	}
	hc.mu.Lock()
	hc.cfg = cfg
	hc.mu.Unlock()

	applog.Infof("Config: reloaded from %s", hc.path)
	for _, fn := range hc.subs {
		fn(cfg)
	}
}

// Watch starts watching the config file for writes. Invalid edits are
// logged and skipped; the previous configuration stays active.
func (hc *HotConfig) Watch() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		applog.Errorf("Config: watcher setup failed: %v", err)
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					hc.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				applog.Errorf("Config: watcher error: %v", err)
			}
		}
	}()

	if err := watcher.Add(hc.path); err != nil {
		applog.Errorf("Config: cannot watch %s: %v", hc.path, err)
	}
}
