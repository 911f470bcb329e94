// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package vehicle

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/keelrobotics/keel/pkg/event"
)

// Detector is a simulated object detector. The object is in view for
// visibleEvery frames, out of view for the next visibleEvery, and so on.
// Entering view publishes vision.object_found and leaving publishes
// vision.object_lost, both with Vector{x, y} in normalized image
// coordinates (-1..1, origin at the center).
type Detector struct {
	pub          *event.Publisher[event.Type]
	period       time.Duration
	visibleEvery int

	mu      sync.Mutex
	frame   int
	visible bool
	last    [2]float64
}

// NewDetector creates a detector. visibleEvery 0 never sees anything.
func NewDetector(env Env, name string, visibleEvery int, period time.Duration) *Detector {
	return &Detector{
		pub:          env.publisher(name),
		period:       period,
		visibleEvery: visibleEvery,
	}
}

// position returns where the object appears in frame n.
func position(n int) [2]float64 {
	f := float64(n)
	return [2]float64{0.5 * math.Sin(f*0.3), 0.3 * math.Cos(f*0.2)}
}

// Step processes the next frame and publishes on a visibility change.
func (d *Detector) Step(ctx context.Context) error {
	if d.pub.Closed() {
		return event.ErrClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.frame
	d.frame++

	visible := d.visibleEvery > 0 && (n/d.visibleEvery)%2 == 0
	switch {
	case visible && !d.visible:
		d.visible = true
		d.last = position(n)
		return d.pub.Publish(ctx, event.TypeObjectFound, event.NewVector(d.last[0], d.last[1]))
	case !visible && d.visible:
		d.visible = false
		return d.pub.Publish(ctx, event.TypeObjectLost, event.NewVector(d.last[0], d.last[1]))
	case visible:
		d.last = position(n)
	}
	return nil
}

// Run steps the detector every period until ctx is done.
func (d *Detector) Run(ctx context.Context) error {
	return every(ctx, d.period, d.Step)
}

// Publisher returns the detector's publisher.
func (d *Detector) Publisher() *event.Publisher[event.Type] { return d.pub }

// Close closes the publisher.
func (d *Detector) Close() { d.pub.Close() }
