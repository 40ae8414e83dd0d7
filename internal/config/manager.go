package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// Manager holds the live configuration and reloads it when the file changes.
// Loops read it through Get on every tick, so edits apply without a restart.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config
}

// NewManager loads path. The returned manager is always usable; a load
// error is returned alongside it and the defaults are in effect.
func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	return &Manager{path: path, cfg: cfg}, err
}

// Static wraps a fixed config, mostly for tests and one-shot commands.
func Static(cfg Config) *Manager {
	return &Manager{cfg: &cfg}
}

func (m *Manager) Path() string { return m.path }

// Get returns the current config. Callers must not modify it.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Set replaces the current config.
func (m *Manager) Set(cfg Config) {
	m.mu.Lock()
	m.cfg = &cfg
	m.mu.Unlock()
}

// Reload re-reads the file. On failure the current config is kept.
func (m *Manager) Reload() error {
	cfg, err := Parse(m.path)
	if err != nil {
		return err
	}
	m.Set(cfg)
	return nil
}

// Watch reloads the config whenever its file is written, until ctx is done.
func (m *Manager) Watch(ctx context.Context) error {
	if m.path == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	dir := filepath.Dir(m.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logger := slog.With("path", m.path)
	logger.Info("Watching config")

	file := filepath.Base(m.path)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	reload := func() {
		if err := m.Reload(); err != nil {
			logger.Warn("Config reload failed, keeping previous config", "error", err)
			return
		}
		logger.Info("Config reloaded")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, reload)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Config watcher error", "error", err)
		}
	}
}
