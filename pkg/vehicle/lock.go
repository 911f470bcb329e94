// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package vehicle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by AcquireLock when another process owns the
// vehicle.
var ErrLocked = errors.New("vehicle: lock held by another keel instance")

// InstanceLock is an exclusive advisory lock ensuring one keel process
// drives the vehicle's devices.
type InstanceLock struct {
	fl *flock.Flock
}

// AcquireLock takes the lock at path without blocking, creating parent
// directories as needed.
func AcquireLock(path string) (*InstanceLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &InstanceLock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string { return l.fl.Path() }

// Release unlocks. It has the hook.HookFunc signature so it can be
// registered as a shutdown hook.
func (l *InstanceLock) Release(context.Context) error {
	return l.fl.Unlock()
}
