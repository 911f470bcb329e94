// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package vehicle

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/keelrobotics/keel/pkg/event"
)

// Env carries what every component needs to build its publisher.
type Env struct {
	Hub      *event.Hub
	Observer event.Observer
	Logger   zerolog.Logger
}

func (env Env) publisher(name string) *event.Publisher[event.Type] {
	opts := []event.Option{event.WithLogger(env.Logger)}
	if env.Hub != nil {
		opts = append(opts, event.WithHub(env.Hub))
	}
	if env.Observer != nil {
		opts = append(opts, event.WithObserver(env.Observer))
	}
	return event.NewPublisher[event.Type](name, opts...)
}

func (env Env) component(name string) zerolog.Logger {
	return env.Logger.With().Str("component", name).Logger()
}

// every calls step once per period until ctx is done. A step failing with
// event.ErrClosed ends the loop quietly: the component was shut down.
func every(ctx context.Context, period time.Duration, step func(context.Context) error) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := step(ctx); err != nil {
				if errors.Is(err, event.ErrClosed) {
					return nil
				}
				return err
			}
		}
	}
}
