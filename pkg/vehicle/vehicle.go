// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package vehicle assembles simulated devices, estimators, a depth
// controller and an object detector around the event bus.
//
// Wiring:
//
//	depth sensor --data_update--> depth estimator        (sensor's publisher)
//	depth estimator --depth_update--> hub --> controller (coarse, via hub)
//	imu --data_update--> orientation estimator           (imu's publisher)
//	power source, detector, controller --> hub           (forwarded)
package vehicle

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/keelrobotics/keel/pkg/config"
	"github.com/keelrobotics/keel/pkg/event"
	"github.com/keelrobotics/keel/pkg/hook"
)

// Lifecycle payloads published as vehicle.lifecycle Text.
const (
	LifecycleStarted = "started"
	LifecycleStopped = "stopped"
)

// Vehicle owns every simulated component.
type Vehicle struct {
	name   string
	cfg    config.VehicleConfig
	logger zerolog.Logger

	lifecycle   *event.Publisher[event.Type]
	Depth       *Device
	IMU         *Device
	Power       *Device
	Estimator   *DepthEstimator
	Orientation *OrientationEstimator
	Controller  *DepthController
	Detector    *Detector

	closeOnce sync.Once
}

// New builds the vehicle described by cfg. Every component publishes
// through its own publisher forwarding to env.Hub.
func New(cfg config.Config, env Env) (*Vehicle, error) {
	if env.Hub == nil {
		return nil, ErrNoHub
	}

	name := cfg.Vehicle.Name
	v := &Vehicle{
		name:      name,
		cfg:       cfg.Vehicle,
		logger:    env.component("vehicle"),
		lifecycle: env.publisher(name),
		Depth:     NewDepthSensor(env, name+"/depth", cfg.Sim.DepthProfile, cfg.Vehicle.DevicePeriod),
		IMU:       NewIMU(env, name+"/imu", cfg.Vehicle.DevicePeriod),
		Power:     NewPowerSource(env, name+"/power", cfg.Vehicle.DevicePeriod),
		Detector:  NewDetector(env, name+"/vision", cfg.Sim.ObjectVisibleEvery, cfg.Vehicle.VisionPeriod),
	}

	var err error
	if v.Estimator, err = NewDepthEstimator(env, name+"/depth-estimator", v.Depth); err != nil {
		v.close()
		return nil, err
	}
	if v.Orientation, err = NewOrientationEstimator(env, name+"/orientation-estimator", v.IMU, cfg.Vehicle.EstimationPeriod); err != nil {
		v.close()
		return nil, err
	}
	if v.Controller, err = NewDepthController(env, name+"/depth-controller", cfg.Control, cfg.Vehicle.ControlPeriod); err != nil {
		v.close()
		return nil, err
	}
	return v, nil
}

// Name returns the vehicle name.
func (v *Vehicle) Name() string { return v.name }

// Run publishes vehicle.lifecycle "started", runs every component loop
// until ctx is done or one fails, then publishes "stopped".
func (v *Vehicle) Run(ctx context.Context) error {
	if err := v.announce(ctx, LifecycleStarted); err != nil {
		return err
	}
	v.logger.Info().Str("vehicle", v.name).Msg("vehicle started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return v.Depth.Run(gctx) })
	g.Go(func() error { return v.IMU.Run(gctx) })
	g.Go(func() error { return v.Power.Run(gctx) })
	g.Go(func() error { return v.Orientation.Run(gctx) })
	g.Go(func() error { return v.Controller.Run(gctx) })
	g.Go(func() error { return v.Detector.Run(gctx) })
	err := g.Wait()

	_ = v.announce(context.WithoutCancel(ctx), LifecycleStopped)
	v.logger.Info().Err(err).Str("vehicle", v.name).Msg("vehicle stopped")
	return err
}

// announce publishes a vehicle.lifecycle state. ErrClosed means Shutdown
// ran first and is not logged.
func (v *Vehicle) announce(ctx context.Context, state string) error {
	err := v.lifecycle.Publish(ctx, event.TypeLifecycle, event.New(event.Text(state)))
	if err != nil && !errors.Is(err, event.ErrClosed) {
		v.logger.Debug().Err(err).Str("state", state).Msg("lifecycle event dropped")
	}
	return err
}

// Apply takes the runtime-adjustable parts of a reloaded configuration.
func (v *Vehicle) Apply(cfg config.Config) {
	v.Controller.Apply(cfg.Control)
	v.logger.Info().
		Float64("target_depth", cfg.Control.TargetDepth).
		Msg("control settings applied")
}

// Shutdown closes every component. Running loops stop at their next step.
// It is idempotent.
func (v *Vehicle) Shutdown(context.Context) error {
	v.close()
	return nil
}

// RegisterHooks registers Shutdown as a shutdown hook.
func (v *Vehicle) RegisterHooks(h *hook.Manager) {
	h.Register(hook.Shutdown, "vehicle", v.Shutdown)
}

func (v *Vehicle) close() {
	v.closeOnce.Do(func() {
		// Subscribers first, so no handler runs against a closed publisher.
		if v.Controller != nil {
			v.Controller.Close()
		}
		if v.Orientation != nil {
			v.Orientation.Close()
		}
		if v.Estimator != nil {
			v.Estimator.Close()
		}
		v.Detector.Close()
		v.Power.Close()
		v.IMU.Close()
		v.Depth.Close()
		v.lifecycle.Close()
	})
}
