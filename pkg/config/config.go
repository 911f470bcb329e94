// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package config loads keel configuration from layered koanf sources and
// validates it.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"

	"github.com/keelrobotics/keel/pkg/version"
)

// ErrNotLoaded is returned by Reload before the first successful Load.
var ErrNotLoaded = errors.New("config: not loaded")

// Manager handles loading and accessing application configuration.
type Manager struct {
	koanfInstance *koanf.Koanf
	sources       []ConfigSource
	currentConfig Config
	loaded        bool
	mu            sync.RWMutex
}

// NewManager creates a new Manager.
func NewManager() *Manager {
	return &Manager{
		koanfInstance: koanf.New("."),
	}
}

// DefaultConfig returns a new Config struct populated with hardcoded default values.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Bus: BusConfig{
			StrictTypes: true,
			Metrics:     true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9464",
		},
		Vehicle: VehicleConfig{
			Name:             "keel",
			DevicePeriod:     100 * time.Millisecond,
			EstimationPeriod: 200 * time.Millisecond,
			ControlPeriod:    500 * time.Millisecond,
			VisionPeriod:     250 * time.Millisecond,
		},
		Control: ControlConfig{
			TargetDepth:    5.0,
			DepthTolerance: 0.25,
			Gain:           0.8,
		},
		Sim: SimConfig{
			DepthProfile:       []float64{0, 1, 2.5, 4, 4.9, 5.1, 5.0, 5.6, 4.2, 5.0},
			ObjectVisibleEvery: 4,
		},
	}
}

// DefaultConfigAsMap converts DefaultConfig to the flat key map used by
// koanf's confmap provider. Durations are rendered as strings so the merged
// tree reads the same as a config file.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,

		"bus.strict_types": def.Bus.StrictTypes,
		"bus.metrics":      def.Bus.Metrics,

		"metrics.enabled": def.Metrics.Enabled,
		"metrics.addr":    def.Metrics.Addr,

		"vehicle.name":              def.Vehicle.Name,
		"vehicle.lock_file":         def.Vehicle.LockFile,
		"vehicle.device_period":     def.Vehicle.DevicePeriod.String(),
		"vehicle.estimation_period": def.Vehicle.EstimationPeriod.String(),
		"vehicle.control_period":    def.Vehicle.ControlPeriod.String(),
		"vehicle.vision_period":     def.Vehicle.VisionPeriod.String(),

		"control.target_depth":    def.Control.TargetDepth,
		"control.depth_tolerance": def.Control.DepthTolerance,
		"control.gain":            def.Control.Gain,

		"sim.depth_profile":        def.Sim.DepthProfile,
		"sim.object_visible_every": def.Sim.ObjectVisibleEvery,

		"requires": def.Requires,
	}
}

// Load merges sources in priority order, validates the result and makes it
// current. The sources are kept for Reload. On error the previous
// configuration stays in effect.
func (m *Manager) Load(sources ...ConfigSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, cfg, err := build(sources)
	if err != nil {
		return err
	}

	m.koanfInstance = k
	m.sources = sources
	m.currentConfig = cfg
	m.loaded = true
	return nil
}

// LoadDefaults is a shorthand for Load(DefaultSources(...)...).
func (m *Manager) LoadDefaults(configPath string, flags *pflag.FlagSet, debug bool) error {
	return m.Load(DefaultSources(configPath, flags, debug)...)
}

// Reload re-reads the sources of the last successful Load and returns the
// new configuration.
func (m *Manager) Reload() (Config, error) {
	m.mu.RLock()
	sources, loaded := m.sources, m.loaded
	m.mu.RUnlock()

	if !loaded {
		return Config{}, ErrNotLoaded
	}
	if err := m.Load(sources...); err != nil {
		return Config{}, err
	}
	return m.Get(), nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := m.currentConfig
	cfg.Sim.DepthProfile = append([]float64(nil), m.currentConfig.Sim.DepthProfile...)
	return cfg
}

// Raw returns the merged key tree of the last successful Load.
func (m *Manager) Raw() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanfInstance.Raw()
}

// FilePath returns the path of the file source, or "".
func (m *Manager) FilePath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sources {
		if fs, ok := s.(*FileSource); ok {
			return fs.Path
		}
	}
	return ""
}

func build(sources []ConfigSource) (*koanf.Koanf, Config, error) {
	k := koanf.New(".")
	for _, s := range sortSources(sources) {
		if err := s.Load(k); err != nil {
			return nil, Config{}, fmt.Errorf("source %s: %w", s.Name(), err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, Config{}, fmt.Errorf("error unmarshaling final config: %w", err)
	}

	profile, err := DepthProfile(k.Get("sim.depth_profile"))
	if err != nil {
		return nil, Config{}, &ValidationError{Field: "sim.depth_profile", Reason: err.Error()}
	}
	cfg.Sim.DepthProfile = profile

	if err := Validate(cfg); err != nil {
		return nil, Config{}, err
	}
	return k, cfg, nil
}

// DepthProfile coerces a raw depth profile value into readings. It accepts
// a list of numbers or numeric strings, or a comma separated string as
// delivered by environment variables and flags.
func DepthProfile(raw interface{}) ([]float64, error) {
	if raw == nil {
		return nil, nil
	}

	var items []interface{}
	switch v := raw.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	case []float64:
		return append([]float64(nil), v...), nil
	default:
		var err error
		if items, err = cast.ToSliceE(raw); err != nil {
			return nil, err
		}
	}

	out := make([]float64, 0, len(items))
	for i, item := range items {
		f, err := cast.ToFloat64E(item)
		if err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// CheckRequires reports an error when the running binary does not satisfy
// cfg.Requires. An empty constraint always passes.
func CheckRequires(cfg Config) error {
	if cfg.Requires == "" {
		return nil
	}
	ok, err := version.Satisfies(cfg.Requires)
	if err != nil {
		return &ValidationError{Field: "requires", Reason: err.Error()}
	}
	if !ok {
		return &ValidationError{
			Field:  "requires",
			Reason: fmt.Sprintf("keel %s does not satisfy %q", version.Get().Version, cfg.Requires),
		}
	}
	return nil
}

// BindFlags defines command-line flags named after configuration keys.
// FlagSource applies the ones set on the command line.
func BindFlags(flags *pflag.FlagSet) {
	def := DefaultConfig()

	flags.String("log.level", def.Log.Level, "Log level (trace, debug, info, warn, error)")
	flags.String("log.format", def.Log.Format, "Log format (text, json)")
	flags.Bool("metrics.enabled", def.Metrics.Enabled, "Serve Prometheus metrics")
	flags.String("metrics.addr", def.Metrics.Addr, "Metrics listen address")
	flags.String("vehicle.lock_file", def.Vehicle.LockFile, "Exclusive lock file")
	flags.Float64("control.target_depth", def.Control.TargetDepth, "Depth setpoint in meters")
	flags.String("sim.depth_profile", "", "Comma separated depth readings")
}
