// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok, "Validate joins its errors")

	var out []string
	for _, e := range joined.Unwrap() {
		var verr *ValidationError
		require.True(t, errors.As(e, &verr), "unexpected error %v", e)
		out = append(out, verr.Field)
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{
			name:   "bad log format",
			mutate: func(c *Config) { c.Log.Format = "xml" },
			want:   []string{"log.format"},
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Log.Level = "loud" },
			want:   []string{"log.level"},
		},
		{
			name:   "missing vehicle name",
			mutate: func(c *Config) { c.Vehicle.Name = "" },
			want:   []string{"vehicle.name"},
		},
		{
			name: "zero periods",
			mutate: func(c *Config) {
				c.Vehicle.DevicePeriod = 0
				c.Vehicle.VisionPeriod = 0
			},
			want: []string{"vehicle.device_period", "vehicle.vision_period"},
		},
		{
			name:   "bad metrics addr",
			mutate: func(c *Config) { c.Metrics.Addr = "nope" },
			want:   []string{"metrics.addr"},
		},
		{
			name: "metrics enabled without addr",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Addr = ""
			},
			want: []string{"metrics.addr"},
		},
		{
			name:   "empty depth profile",
			mutate: func(c *Config) { c.Sim.DepthProfile = nil },
			want:   []string{"sim.depth_profile"},
		},
		{
			name:   "tolerance wider than setpoint",
			mutate: func(c *Config) { c.Control.DepthTolerance = 6 },
			want:   []string{"control.depth_tolerance"},
		},
		{
			name:   "negative object cadence",
			mutate: func(c *Config) { c.Sim.ObjectVisibleEvery = -1 },
			want:   []string{"sim.object_visible_every"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ElementsMatch(t, tt.want, fields(t, Validate(cfg)))
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "validation failed", (&ValidationError{}).Error())
	assert.Equal(t, "log.format: invalid", (&ValidationError{Field: "log.format"}).Error())
	assert.Equal(t, "log.format: must be one of: json,text",
		(&ValidationError{Field: "log.format", Reason: "must be one of: json,text"}).Error())

	var nilErr *ValidationError
	assert.Equal(t, "", nilErr.Error())
}

func TestValidate_ReasonMentionsRule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Format = "xml"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format: must be one of: json,text")
}
