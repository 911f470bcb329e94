// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"context"
	"sync/atomic"
	"time"
	"weak"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher owns a per-type subscriber registry over the domain T and
// dispatches events synchronously on the publishing goroutine.
//
// Publishes of different types proceed in parallel. Publishes of the same
// type are serialized by that type's dispatch lock, which the publishing
// call chain may re-enter through the context passed to its handlers.
type Publisher[T Kind] struct {
	name     string
	source   Source
	hub      *Hub
	types    *TypeSet
	observer Observer
	logger   zerolog.Logger

	reg    *registry[T]
	closed atomic.Bool
}

// NewPublisher creates a publisher. The name is diagnostic only.
func NewPublisher[T Kind](name string, opts ...Option) *Publisher[T] {
	o := buildOptions(name, opts)
	return &Publisher[T]{
		name:     name,
		source:   NewSource(name),
		hub:      o.hub,
		types:    o.types,
		observer: o.observer,
		logger:   *o.logger,
		reg:      newRegistry[T](),
	}
}

// Name returns the publisher's display name.
func (p *Publisher[T]) Name() string { return p.name }

// Source returns the identifier stamped into every event this publisher
// dispatches.
func (p *Publisher[T]) Source() Source { return p.source }

// Hub returns the hub events are forwarded to, or nil.
func (p *Publisher[T]) Hub() *Hub { return p.hub }

// Subscribe registers h for t. The connection is live on return and h
// receives every later Publish of t until the connection is disconnected.
// Handlers of one type run in registration order.
func (p *Publisher[T]) Subscribe(t T, h Handler) (*Connection, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if err := p.check(Type(t)); err != nil {
		return nil, err
	}
	if p.closed.Load() {
		return nil, ErrClosed
	}

	entry := p.reg.lookup(t)
	sub := &subscription{id: uuid.NewString(), handler: h}
	sub.active.Store(true)
	if !entry.add(sub, &p.closed) {
		return nil, ErrClosed
	}
	p.observer.Subscribed(p.name, entry.kind)

	p.logger.Debug().
		Str("type", string(entry.kind)).
		Str("subscription", sub.id).
		Msg("subscribed")

	return &Connection{
		kind:      entry.kind,
		sub:       sub,
		entry:     weak.Make(entry),
		publisher: p.name,
		observer:  p.observer,
	}, nil
}

// Publish stamps e with t and this publisher as sender, invokes every
// active handler of t in registration order, and then forwards e to the
// hub. The hub forward runs after the local dispatch lock is released.
//
// Handlers receive ctx extended with dispatch ownership. A handler that
// publishes t again on this publisher with that context runs the nested
// dispatch to completion before returning, without blocking on itself.
func (p *Publisher[T]) Publish(ctx context.Context, t T, e *Event) error {
	if e == nil {
		return ErrNilEvent
	}
	if err := p.check(Type(t)); err != nil {
		return err
	}
	if p.closed.Load() {
		return ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	e.stamp(Type(t), p.source)
	p.fanOut(ctx, p.reg.lookup(t), e)

	if p.hub != nil {
		p.hub.forward(ctx, e)
	}
	return nil
}

// fanOut runs the handlers of one entry under its dispatch lock. The lock
// is released on every exit path, including a panicking handler.
func (p *Publisher[T]) fanOut(ctx context.Context, entry *typeEntry, e *Event) {
	ctx, release := entry.acquire(ctx)
	defer release()

	start := time.Now()
	invoked := 0
	for _, sub := range entry.snapshot() {
		// A handler disconnected earlier in this same fan-out is skipped.
		if !sub.active.Load() {
			continue
		}
		sub.handler(ctx, e)
		invoked++
	}
	elapsed := time.Since(start)

	p.observer.Dispatched(p.name, entry.kind, invoked, elapsed)
	p.logger.Trace().
		Str("type", string(entry.kind)).
		Str("sender", e.sender.Name).
		Int("handlers", invoked).
		Dur("elapsed", elapsed).
		Msg("dispatched")
}

// check enforces the closed domains of this publisher and of its hub, so
// a type the hub would reject fails before any local delivery.
func (p *Publisher[T]) check(t Type) error {
	if t == "" || (p.types != nil && !p.types.Contains(t)) {
		return &TypeError{Publisher: p.name, Type: t}
	}
	if p.hub != nil {
		return p.hub.check(t)
	}
	return nil
}

// SubscriberCount returns the number of live subscriptions for t.
func (p *Publisher[T]) SubscriberCount(t T) int {
	entry, ok := p.reg.find(t)
	if !ok {
		return 0
	}
	return len(entry.snapshot())
}

// Types returns, sorted, every type this publisher has seen. The list only
// grows: disconnecting the last handler of a type leaves the type known.
func (p *Publisher[T]) Types() []T {
	return p.reg.types()
}

// Closed reports whether Close has been called.
func (p *Publisher[T]) Closed() bool { return p.closed.Load() }

// Close disconnects every subscription and rejects further Subscribe and
// Publish calls with ErrClosed. Dispatches already running complete, but
// skip handlers they have not reached yet. Close is idempotent.
func (p *Publisher[T]) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	removed := 0
	for _, entry := range p.reg.all() {
		for _, sub := range entry.clear() {
			if sub.active.CompareAndSwap(true, false) {
				p.observer.Unsubscribed(p.name, entry.kind)
				removed++
			}
		}
	}

	p.logger.Debug().Int("disconnected", removed).Msg("publisher closed")
}
