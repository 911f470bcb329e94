// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package hook provides a lightweight lifecycle extension mechanism.
// Components register start and shutdown hooks; the owner of the process
// runs each stage once.
package hook

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Stage names a lifecycle point.
type Stage string

const (
	// Start hooks run in registration order.
	Start Stage = "start"
	// Shutdown hooks run in reverse registration order, so teardown mirrors
	// setup.
	Shutdown Stage = "shutdown"
)

// HookFunc represents a function that can be triggered by a hook stage.
type HookFunc func(ctx context.Context) error

type namedHook struct {
	name string
	fn   HookFunc
}

// Manager stores and runs hooks for lifecycle stages.
type Manager struct {
	mu        sync.Mutex
	hooks     map[Stage][]namedHook
	triggered map[Stage]bool
}

// NewManager creates and returns a new hook manager.
func NewManager() *Manager {
	return &Manager{
		hooks:     make(map[Stage][]namedHook),
		triggered: make(map[Stage]bool),
	}
}

// Register adds a named hook function to a stage.
func (m *Manager) Register(stage Stage, name string, fn HookFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[stage] = append(m.hooks[stage], namedHook{name: name, fn: fn})
}

// Trigger runs every hook of stage on the calling goroutine. A stage runs at
// most once; later calls return nil. A failing hook does not stop the
// others; their errors are joined.
func (m *Manager) Trigger(ctx context.Context, stage Stage) error {
	m.mu.Lock()
	if m.triggered[stage] {
		m.mu.Unlock()
		return nil
	}
	m.triggered[stage] = true
	hooks := append([]namedHook(nil), m.hooks[stage]...)
	m.mu.Unlock()

	if stage == Shutdown {
		for i, j := 0, len(hooks)-1; i < j; i, j = i+1, j-1 {
			hooks[i], hooks[j] = hooks[j], hooks[i]
		}
	}

	var errs []error
	for _, h := range hooks {
		if err := h.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s hook %q: %w", stage, h.name, err))
		}
	}
	return errors.Join(errs...)
}

// IsTriggered checks if a specific stage has been triggered.
func (m *Manager) IsTriggered(stage Stage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.triggered[stage]
}
