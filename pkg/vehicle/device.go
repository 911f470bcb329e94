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

// Device is a simulated driver. It owns a publisher that forwards to the
// hub and publishes one sample per period.
type Device struct {
	name   string
	pub    *event.Publisher[event.Type]
	period time.Duration
	sample func(ctx context.Context, tick int) error

	mu   sync.Mutex
	tick int
}

func newDevice(env Env, name string, period time.Duration) *Device {
	return &Device{
		name:   name,
		pub:    env.publisher(name),
		period: period,
	}
}

// NewDepthSensor replays profile as device.data_update Number samples,
// wrapping around at the end.
func NewDepthSensor(env Env, name string, profile []float64, period time.Duration) *Device {
	d := newDevice(env, name, period)
	readings := append([]float64(nil), profile...)
	d.sample = func(ctx context.Context, tick int) error {
		if len(readings) == 0 {
			return nil
		}
		return d.pub.Publish(ctx, event.TypeDataUpdate, event.NewNumber(readings[tick%len(readings)]))
	}
	return d
}

// NewIMU publishes device.data_update Vector{roll, pitch, yaw} samples in
// degrees from a slow deterministic sway.
func NewIMU(env Env, name string, period time.Duration) *Device {
	d := newDevice(env, name, period)
	d.sample = func(ctx context.Context, tick int) error {
		t := float64(tick)
		roll := 2 * math.Sin(t/10)
		pitch := math.Cos(t / 7)
		yaw := math.Mod(t*3, 360)
		return d.pub.Publish(ctx, event.TypeDataUpdate, event.NewVector(roll, pitch, yaw))
	}
	return d
}

const (
	batteryFull   = 16.8
	batteryEmpty  = 12.0
	batteryCutoff = 13.2
	batteryDrain  = 0.01 // volts per sample
)

// NewPowerSource publishes the battery voltage as device.data_update and,
// whenever it changes, the supply state as vehicle.power_source_update
// BoolPair{enabled, in use}.
func NewPowerSource(env Env, name string, period time.Duration) *Device {
	d := newDevice(env, name, period)
	var (
		published bool
		last      event.BoolPair
	)
	d.sample = func(ctx context.Context, tick int) error {
		volts := math.Max(batteryFull-batteryDrain*float64(tick), batteryEmpty)
		if err := d.pub.Publish(ctx, event.TypeDataUpdate, event.NewNumber(volts)); err != nil {
			return err
		}

		state := event.BoolPair{volts > batteryCutoff, true}
		if published && state == last {
			return nil
		}
		published, last = true, state
		return d.pub.Publish(ctx, event.TypePowerSourceUpdate, event.New(state))
	}
	return d
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// Publisher returns the device's own publisher, for fine-grained
// subscriptions that should not see other devices.
func (d *Device) Publisher() *event.Publisher[event.Type] { return d.pub }

// Step publishes the next sample. Steps are serialized.
func (d *Device) Step(ctx context.Context) error {
	if d.pub.Closed() {
		return event.ErrClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tick := d.tick
	d.tick++
	return d.sample(ctx, tick)
}

// Run steps the device every period until ctx is done.
func (d *Device) Run(ctx context.Context) error {
	return every(ctx, d.period, d.Step)
}

// Close closes the device's publisher; subscribers are disconnected.
func (d *Device) Close() { d.pub.Close() }
