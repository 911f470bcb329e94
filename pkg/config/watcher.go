// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ErrNoConfigFile is returned by NewWatcher when the manager was loaded
// without a file source.
var ErrNoConfigFile = errors.New("config: no file source to watch")

// ReloadFunc receives each configuration that reloaded successfully.
type ReloadFunc func(cfg Config)

// Watcher watches the config file of a Manager and reloads it when the
// file changes. Rapid successive writes are coalesced into one reload.
type Watcher struct {
	manager  *Manager
	path     string
	onReload ReloadFunc

	watcher *fsnotify.Watcher

	// debounceDelay is the time to wait before reloading after a change
	debounceDelay time.Duration

	logger zerolog.Logger

	// mu protects the debounce timer
	mu            sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher for the file source of manager. onReload
// may be nil.
func NewWatcher(manager *Manager, onReload ReloadFunc, logger zerolog.Logger) (*Watcher, error) {
	path := manager.FilePath()
	if path == "" {
		return nil, ErrNoConfigFile
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		manager:       manager,
		path:          path,
		onReload:      onReload,
		watcher:       watcher,
		debounceDelay: 100 * time.Millisecond,
		logger:        logger.With().Str("component", "config.watcher").Logger(),
	}, nil
}

// SetDebounce changes the delay between the last change and the reload.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounceDelay = d
}

// Start watches until ctx is canceled. It should be run in its own
// goroutine. A reload that fails validation is logged and the previous
// configuration stays current.
func (w *Watcher) Start(ctx context.Context) error {
	// fsnotify requires watching directories, not files directly; editors
	// replace files by rename.
	dir := filepath.Dir(w.path)
	name := filepath.Base(w.path)

	if err := w.watcher.Add(dir); err != nil {
		if cerr := w.watcher.Close(); cerr != nil {
			w.logger.Warn().Err(cerr).Msg("Error closing watcher")
		}
		w.logger.Error().
			Err(err).
			Str("dir", dir).
			Msg("Failed to watch config directory")
		return err
	}

	w.logger.Info().
		Str("file", w.path).
		Msg("Started watching config file")

	defer func() {
		w.stopTimer()
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Error closing watcher")
		}
		w.logger.Info().Msg("Stopped watching config file")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.logger.Debug().
					Str("op", ev.Op.String()).
					Str("file", ev.Name).
					Msg("Detected config file change")
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().
				Err(err).
				Msg("File watcher error")
		}
	}
}

// scheduleReload schedules a reload after the debounce delay. If a reload
// is already scheduled, the timer is reset.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := w.manager.Reload()
	if err != nil {
		w.logger.Error().
			Err(err).
			Msg("Failed to reload config, keeping previous")
		return
	}

	w.logger.Info().Str("file", w.path).Msg("Config reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
