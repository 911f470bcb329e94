// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Observer receives bus instrumentation callbacks. Implementations are
// called on the publishing goroutine and must be fast and thread-safe.
type Observer interface {
	// Subscribed is called after a subscription is registered.
	Subscribed(publisher string, t Type)

	// Unsubscribed is called once per subscription when it is removed,
	// whether by Disconnect or by Close.
	Unsubscribed(publisher string, t Type)

	// Dispatched is called after the local fan-out of one Publish.
	Dispatched(publisher string, t Type, handlers int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) Subscribed(string, Type)                     {}
func (nopObserver) Unsubscribed(string, Type)                   {}
func (nopObserver) Dispatched(string, Type, int, time.Duration) {}

// Options holds the construction-time settings of a Publisher.
type Options struct {
	hub      *Hub
	types    *TypeSet
	observer Observer
	logger   *zerolog.Logger
}

// Option configures a Publisher or Hub.
type Option func(*Options)

// WithHub forwards every locally dispatched event to hub.
func WithHub(hub *Hub) Option {
	return func(o *Options) {
		o.hub = hub
	}
}

// WithTypes closes the publisher's domain: Subscribe and Publish reject
// types outside the set.
func WithTypes(types TypeSet) Option {
	return func(o *Options) {
		o.types = &types
	}
}

// WithObserver installs an instrumentation observer.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		o.observer = obs
	}
}

// WithLogger sets the logger. Defaults to the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.logger = &logger
	}
}

func buildOptions(name string, opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	base := log.Logger
	if o.logger != nil {
		base = *o.logger
	}
	l := base.With().Str("component", "event").Str("publisher", name).Logger()
	o.logger = &l
	return o
}
