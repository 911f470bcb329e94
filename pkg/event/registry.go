// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// subscription is the registry's record of one handler. active is shared
// with the Connection and flips to false exactly once.
type subscription struct {
	id      string
	handler Handler
	active  atomic.Bool
}

// typeEntry holds everything the bus knows about one event type. Entries
// are created on first use and never removed, so a pointer obtained under
// the structure lock stays valid for the life of the publisher.
type typeEntry struct {
	kind Type

	// dispatch serializes fan-out of this type across call chains.
	dispatch sync.Mutex

	// mu serializes writers of handlers. Readers load the slice lock-free.
	mu       sync.Mutex
	handlers atomic.Pointer[[]*subscription]
}

func (e *typeEntry) snapshot() []*subscription {
	if p := e.handlers.Load(); p != nil {
		return *p
	}
	return nil
}

// add appends s unless closed is set. Checking closed under mu orders the
// append against Publisher.Close, which clears entries under the same lock.
func (e *typeEntry) add(s *subscription, closed *atomic.Bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if closed.Load() {
		return false
	}
	old := e.snapshot()
	next := make([]*subscription, len(old), len(old)+1)
	copy(next, old)
	next = append(next, s)
	e.handlers.Store(&next)
	return true
}

func (e *typeEntry) remove(s *subscription) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.snapshot()
	i := slices.Index(old, s)
	if i < 0 {
		return false
	}
	next := slices.Delete(slices.Clone(old), i, i+1)
	e.handlers.Store(&next)
	return true
}

func (e *typeEntry) clear() []*subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.snapshot()
	e.handlers.Store(nil)
	return old
}

// ownerKey marks, inside a context, that the call chain holds the dispatch
// lock of one entry.
type ownerKey struct{ e *typeEntry }

// owner is the value stored under ownerKey. held is cleared on unlock so a
// context retained past its dispatch no longer bypasses the lock.
type owner struct{ held atomic.Bool }

// acquire takes the dispatch lock unless ctx already carries ownership of
// it, and returns the context handlers must receive plus the release func.
func (e *typeEntry) acquire(ctx context.Context) (context.Context, func()) {
	if o, ok := ctx.Value(ownerKey{e}).(*owner); ok && o.held.Load() {
		return ctx, func() {}
	}
	e.dispatch.Lock()
	o := &owner{}
	o.held.Store(true)
	return context.WithValue(ctx, ownerKey{e}, o), func() {
		o.held.Store(false)
		e.dispatch.Unlock()
	}
}

// detachedContext hides dispatch ownership from everything below it.
type detachedContext struct{ context.Context }

func (c detachedContext) Value(key any) any {
	if _, ok := key.(ownerKey); ok {
		return nil
	}
	return c.Context.Value(key)
}

// Detach returns a context that keeps ctx's values, deadline and
// cancellation but not its dispatch ownership. Use it when a handler hands
// its context to another goroutine that may publish.
func Detach(ctx context.Context) context.Context {
	return detachedContext{ctx}
}

// registry maps a publisher's type domain to entries. mu is the structure
// lock: read mode to find an entry, write mode only to insert a new one.
type registry[T Kind] struct {
	mu      sync.RWMutex
	entries map[T]*typeEntry
}

func newRegistry[T Kind]() *registry[T] {
	return &registry[T]{entries: make(map[T]*typeEntry)}
}

// lookup returns the entry for t, creating it on first use.
func (r *registry[T]) lookup(t T) *typeEntry {
	r.mu.RLock()
	e, ok := r.entries[t]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[t]; ok {
		return e
	}
	e = &typeEntry{kind: Type(t)}
	r.entries[t] = e
	return e
}

func (r *registry[T]) find(t T) (*typeEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[t]
	return e, ok
}

func (r *registry[T]) types() []T {
	r.mu.RLock()
	out := make([]T, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}

func (r *registry[T]) all() []*typeEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*typeEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}
