// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package vehicle

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keelrobotics/keel/pkg/config"
	"github.com/keelrobotics/keel/pkg/event"
)

// ErrNoHub is returned by components that subscribe on the hub when Env
// has none.
var ErrNoHub = errors.New("vehicle: component requires a hub")

// DepthController holds a depth setpoint. It subscribes to
// estimation.depth_update on the hub, so any estimator feeds it without a
// reference to one.
//
// It publishes control.at_depth BoolPair{at depth, shallower than target}
// only when the vehicle enters or leaves the tolerance band, and
// control.desired_state_update Vector{target, heave command} once per
// period when either value changed.
type DepthController struct {
	pub    *event.Publisher[event.Type]
	conn   *event.Connection
	period time.Duration
	logger zerolog.Logger

	mu        sync.Mutex
	target    float64
	tolerance float64
	gain      float64
	depth     float64
	command   float64
	atDepth   bool
	published bool
	last      [2]float64
}

// NewDepthController creates a controller and subscribes it on env.Hub.
func NewDepthController(env Env, name string, cfg config.ControlConfig, period time.Duration) (*DepthController, error) {
	if env.Hub == nil {
		return nil, ErrNoHub
	}

	c := &DepthController{
		pub:       env.publisher(name),
		period:    period,
		logger:    env.component("depth-controller"),
		target:    cfg.TargetDepth,
		tolerance: cfg.DepthTolerance,
		gain:      cfg.Gain,
		command:   cfg.Gain * cfg.TargetDepth,
	}

	conn, err := env.Hub.Subscribe(event.TypeDepthUpdate, c.onDepth)
	if err != nil {
		c.pub.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

// onDepth relies on depth updates arriving one at a time and in order,
// which the hub guarantees for a single type.
func (c *DepthController) onDepth(ctx context.Context, e *event.Event) {
	depth, ok := e.Number()
	if !ok {
		return
	}

	c.mu.Lock()
	c.depth = depth
	c.command = c.gain * (c.target - depth)
	at := math.Abs(depth-c.target) <= c.tolerance
	crossed := at != c.atDepth
	c.atDepth = at
	shallow := depth < c.target
	c.mu.Unlock()

	if !crossed {
		return
	}

	c.logger.Debug().
		Float64("depth", depth).
		Bool("at_depth", at).
		Msg("depth threshold crossed")

	if err := c.pub.Publish(ctx, event.TypeAtDepth, event.New(event.BoolPair{at, shallow})); err != nil {
		c.logger.Debug().Err(err).Msg("at_depth dropped")
	}
}

// Step publishes the desired state if it changed since the last publish.
// It reports whether an event was published.
func (c *DepthController) Step(ctx context.Context) (bool, error) {
	if c.pub.Closed() {
		return false, event.ErrClosed
	}

	c.mu.Lock()
	state := [2]float64{c.target, c.command}
	if c.published && state == c.last {
		c.mu.Unlock()
		return false, nil
	}
	c.published, c.last = true, state
	c.mu.Unlock()

	if err := c.pub.Publish(ctx, event.TypeDesiredStateUpdate, event.NewVector(state[0], state[1])); err != nil {
		return false, err
	}
	return true, nil
}

// Run steps the controller every period until ctx is done.
func (c *DepthController) Run(ctx context.Context) error {
	return every(ctx, c.period, func(ctx context.Context) error {
		_, err := c.Step(ctx)
		return err
	})
}

// Apply takes a new setpoint, tolerance and gain. The next depth update
// re-evaluates the tolerance band; the next Step publishes the new state.
func (c *DepthController) Apply(cfg config.ControlConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = cfg.TargetDepth
	c.tolerance = cfg.DepthTolerance
	c.gain = cfg.Gain
	c.command = c.gain * (c.target - c.depth)
}

// AtDepth reports whether the last depth update was inside the band.
func (c *DepthController) AtDepth() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.atDepth
}

// Target returns the current setpoint.
func (c *DepthController) Target() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Publisher returns the controller's publisher.
func (c *DepthController) Publisher() *event.Publisher[event.Type] { return c.pub }

// Close unsubscribes from the hub and closes the publisher.
func (c *DepthController) Close() {
	c.conn.Disconnect()
	c.pub.Close()
}
