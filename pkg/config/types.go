// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import "time"

// Config is the root configuration structure for keel.
type Config struct {
	Log      LogConfig     `description:"Logging configuration" koanf:"log" yaml:"log"`
	Bus      BusConfig     `description:"Event bus configuration" koanf:"bus" yaml:"bus"`
	Metrics  MetricsConfig `description:"Prometheus endpoint" koanf:"metrics" yaml:"metrics"`
	Vehicle  VehicleConfig `description:"Vehicle runtime" koanf:"vehicle" yaml:"vehicle"`
	Control  ControlConfig `description:"Depth controller" koanf:"control" yaml:"control"`
	Sim      SimConfig     `description:"Simulated devices" koanf:"sim" yaml:"sim"`
	Requires string        `description:"Semver constraint the keel binary must satisfy" koanf:"requires" yaml:"requires,omitempty"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level: trace|debug|info|warn|error" koanf:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `description:"Log format: json | text" koanf:"format" yaml:"format" validate:"oneof=json text"`
}

// BusConfig controls the process hub.
type BusConfig struct {
	// StrictTypes restricts the hub to the system event types.
	StrictTypes bool `description:"Reject event types outside the system set" koanf:"strict_types" yaml:"strict_types"`
	Metrics     bool `description:"Record bus metrics" koanf:"metrics" yaml:"metrics"`
}

// MetricsConfig holds the Prometheus listener settings.
type MetricsConfig struct {
	Enabled bool   `description:"Serve /metrics" koanf:"enabled" yaml:"enabled"`
	Addr    string `description:"Metrics listen address" koanf:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

// VehicleConfig holds loop periods and the instance lock.
type VehicleConfig struct {
	Name     string `description:"Vehicle name, used as publisher prefix" koanf:"name" yaml:"name" validate:"required,max=64"`
	LockFile string `description:"Exclusive lock file; empty uses the runtime directory" koanf:"lock_file" yaml:"lock_file"`

	DevicePeriod     time.Duration `description:"Device sampling period" koanf:"device_period" yaml:"device_period" validate:"gt=0"`
	EstimationPeriod time.Duration `description:"Orientation estimation period" koanf:"estimation_period" yaml:"estimation_period" validate:"gt=0"`
	ControlPeriod    time.Duration `description:"Controller status period" koanf:"control_period" yaml:"control_period" validate:"gt=0"`
	VisionPeriod     time.Duration `description:"Object detector period" koanf:"vision_period" yaml:"vision_period" validate:"gt=0"`
}

// ControlConfig holds the depth controller settings.
type ControlConfig struct {
	TargetDepth    float64 `description:"Depth setpoint in meters" koanf:"target_depth" yaml:"target_depth" validate:"gte=0"`
	DepthTolerance float64 `description:"Band around the setpoint counted as at depth" koanf:"depth_tolerance" yaml:"depth_tolerance" validate:"gt=0"`
	Gain           float64 `description:"Proportional gain" koanf:"gain" yaml:"gain" validate:"gt=0"`
}

// SimConfig drives the simulated devices.
type SimConfig struct {
	// DepthProfile is decoded separately because env and flag sources
	// deliver it as a comma separated string.
	DepthProfile       []float64 `description:"Depth readings replayed by the depth sensor" koanf:"-" yaml:"depth_profile" validate:"min=1"`
	ObjectVisibleEvery int       `description:"Detector sees an object every N frames; 0 disables" koanf:"object_visible_every" yaml:"object_visible_every" validate:"gte=0"`
}
