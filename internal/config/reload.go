// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/mocapsync/internal/log"
)

const reloadDebounce = 500 * time.Millisecond

// Holder holds configuration with atomic reloading capability.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	logger  zerolog.Logger

	listenersMu sync.RWMutex
	listeners   []chan<- AppConfig
}

// NewHolder creates a holder with the initial configuration.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current: initial,
		loader:  loader,
		logger:  xglog.WithComponent("config"),
	}
}

// Get returns the current configuration.
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads and validates the configuration. On failure the previous
// configuration stays in effect.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str(xglog.FieldEvent, "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// Watch reloads the configuration whenever the file changes until ctx is
// cancelled. The parent directory is watched so editors that replace the
// file by rename are seen. Without a config path Watch returns immediately.
func (h *Holder) Watch(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	target := filepath.Clean(path)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().
						Err(err).
						Str(xglog.FieldEvent, "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// RegisterListener registers a channel that receives every successfully
// reloaded configuration. Sends are non-blocking.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notifyListeners(newCfg AppConfig) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()

	for _, ch := range h.listeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

// logChanges logs runtime-relevant differences. Fields that need a restart
// (ports, addresses) are flagged.
func (h *Holder) logChanges(old, newCfg AppConfig) {
	if old.Broadcast.Send != newCfg.Broadcast.Send {
		h.logger.Info().
			Bool("old", old.Broadcast.Send).
			Bool("new", newCfg.Broadcast.Send).
			Msg("config changed: broadcast.send")
	}
	if old.Broadcast.Receive != newCfg.Broadcast.Receive {
		h.logger.Info().
			Bool("old", old.Broadcast.Receive).
			Bool("new", newCfg.Broadcast.Receive).
			Msg("config changed: broadcast.receive")
	}
	if old.Session.Verbose != newCfg.Session.Verbose {
		h.logger.Info().
			Bool("old", old.Session.Verbose).
			Bool("new", newCfg.Session.Verbose).
			Msg("config changed: session.verbose")
	}
	if old.Session.FrameRate != newCfg.Session.FrameRate {
		h.logger.Info().
			Float64("old", old.Session.FrameRate).
			Float64("new", newCfg.Session.FrameRate).
			Msg("config changed: session.frameRate")
	}
	if old.Broadcast.Port != newCfg.Broadcast.Port || old.Broadcast.Address != newCfg.Broadcast.Address ||
		old.API != newCfg.API || old.Control != newCfg.Control {
		h.logger.Warn().
			Str(xglog.FieldEvent, "config.restart_required").
			Msg("network settings changed; restart to apply")
	}
}
