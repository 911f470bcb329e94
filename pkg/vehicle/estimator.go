// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package vehicle

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keelrobotics/keel/pkg/event"
)

// DepthEstimator turns raw depth samples into estimation.depth_update. It
// subscribes to one sensor's publisher, so samples from other devices never
// reach it.
type DepthEstimator struct {
	pub    *event.Publisher[event.Type]
	conn   *event.Connection
	logger zerolog.Logger
}

// NewDepthEstimator subscribes to sensor's device.data_update.
func NewDepthEstimator(env Env, name string, sensor *Device) (*DepthEstimator, error) {
	e := &DepthEstimator{
		pub:    env.publisher(name),
		logger: env.component("depth-estimator"),
	}

	conn, err := sensor.Publisher().Subscribe(event.TypeDataUpdate, e.onSample)
	if err != nil {
		e.pub.Close()
		return nil, err
	}
	e.conn = conn
	return e, nil
}

func (e *DepthEstimator) onSample(ctx context.Context, sample *event.Event) {
	raw, ok := sample.Number()
	if !ok {
		return
	}
	// The sensor reads slightly negative at the surface.
	depth := math.Max(raw, 0)
	if err := e.pub.Publish(ctx, event.TypeDepthUpdate, event.NewNumber(depth)); err != nil {
		e.logger.Debug().Err(err).Msg("depth estimate dropped")
	}
}

// Publisher returns the estimator's publisher.
func (e *DepthEstimator) Publisher() *event.Publisher[event.Type] { return e.pub }

// Close unsubscribes from the sensor and closes the publisher.
func (e *DepthEstimator) Close() {
	e.conn.Disconnect()
	e.pub.Close()
}

// OrientationEstimator keeps the latest IMU sample and publishes it as
// estimation.orientation_update once per period when a new sample arrived.
type OrientationEstimator struct {
	pub    *event.Publisher[event.Type]
	conn   *event.Connection
	period time.Duration

	mu     sync.Mutex
	latest []float64
	fresh  bool
}

// NewOrientationEstimator subscribes to imu's device.data_update.
func NewOrientationEstimator(env Env, name string, imu *Device, period time.Duration) (*OrientationEstimator, error) {
	o := &OrientationEstimator{
		pub:    env.publisher(name),
		period: period,
	}

	conn, err := imu.Publisher().Subscribe(event.TypeDataUpdate, o.onSample)
	if err != nil {
		o.pub.Close()
		return nil, err
	}
	o.conn = conn
	return o, nil
}

func (o *OrientationEstimator) onSample(_ context.Context, sample *event.Event) {
	v, ok := sample.Vector()
	if !ok || len(v) != 3 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.latest, o.fresh = v, true
}

// Step publishes the latest orientation if it has not been published yet.
// It reports whether an event was published.
func (o *OrientationEstimator) Step(ctx context.Context) (bool, error) {
	if o.pub.Closed() {
		return false, event.ErrClosed
	}

	o.mu.Lock()
	if !o.fresh {
		o.mu.Unlock()
		return false, nil
	}
	v := o.latest
	o.fresh = false
	o.mu.Unlock()

	if err := o.pub.Publish(ctx, event.TypeOrientationUpdate, event.NewVector(v...)); err != nil {
		return false, err
	}
	return true, nil
}

// Run steps the estimator every period until ctx is done.
func (o *OrientationEstimator) Run(ctx context.Context) error {
	return every(ctx, o.period, func(ctx context.Context) error {
		_, err := o.Step(ctx)
		return err
	})
}

// Publisher returns the estimator's publisher.
func (o *OrientationEstimator) Publisher() *event.Publisher[event.Type] { return o.pub }

// Close unsubscribes from the IMU and closes the publisher.
func (o *OrientationEstimator) Close() {
	o.conn.Disconnect()
	o.pub.Close()
}
