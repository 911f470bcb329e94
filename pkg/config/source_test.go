// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSource_Priority(t *testing.T) {
	src := &DefaultSource{}
	assert.Equal(t, 10, src.Priority())
	assert.Equal(t, "defaults", src.Name())
}

func TestDefaultSource_Load(t *testing.T) {
	k := koanf.New(".")
	require.NoError(t, (&DefaultSource{}).Load(k))

	assert.Equal(t, "info", k.String("log.level"))
	assert.Equal(t, "text", k.String("log.format"))
	assert.Equal(t, "100ms", k.String("vehicle.device_period"))
	assert.True(t, k.Bool("bus.strict_types"))
}

func TestFileSource_Priority(t *testing.T) {
	src := &FileSource{Path: "/tmp/test.yaml"}
	assert.Equal(t, 20, src.Priority())
	assert.Equal(t, "file:/tmp/test.yaml", src.Name())
}

func TestFileSource_Load_EmptyPath(t *testing.T) {
	require.NoError(t, (&FileSource{}).Load(koanf.New(".")), "Empty path should skip silently")
}

func TestFileSource_Load_NonExistentFile(t *testing.T) {
	src := &FileSource{Path: "/nonexistent/path/config.yaml"}
	require.NoError(t, src.Load(koanf.New(".")), "Non-existent file should skip silently")
}

func TestFileSource_Load_ValidFile(t *testing.T) {
	configPath := writeConfig(t, `
log:
  level: warn
  format: json
control:
  target_depth: 12.5
sim:
  depth_profile: [1, 2.5, "3"]
`)

	k := koanf.New(".")
	require.NoError(t, (&FileSource{Path: configPath}).Load(k))

	assert.Equal(t, "warn", k.String("log.level"))
	assert.Equal(t, "json", k.String("log.format"))
	assert.Equal(t, 12.5, k.Float64("control.target_depth"))
	assert.Len(t, k.Get("sim.depth_profile"), 3)
}

func TestFileSource_Load_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "log: [unterminated\n")
	err := (&FileSource{Path: configPath}).Load(koanf.New("."))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), configPath)
}

func TestEnvSource_Priority(t *testing.T) {
	src := &EnvSource{}
	assert.Equal(t, 30, src.Priority())
	assert.Equal(t, "env", src.Name())
}

func TestEnvSource_Load(t *testing.T) {
	t.Setenv("KEEL_LOG_LEVEL", "error")
	t.Setenv("KEEL_CONTROL_TARGET_DEPTH", "7.5")
	t.Setenv("KEEL_VEHICLE_LOCK_FILE", "/run/keel.lock")

	k := koanf.New(".")
	require.NoError(t, (&EnvSource{Prefix: "KEEL_"}).Load(k))

	assert.Equal(t, "error", k.String("log.level"))
	assert.Equal(t, 7.5, k.Float64("control.target_depth"))
	assert.Equal(t, "/run/keel.lock", k.String("vehicle.lock_file"))
}

func TestEnvSource_Load_DefaultPrefix(t *testing.T) {
	t.Setenv("KEEL_LOG_FORMAT", "json")

	k := koanf.New(".")
	require.NoError(t, (&EnvSource{}).Load(k))

	assert.Equal(t, "json", k.String("log.format"))
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"LOG_LEVEL":             "log.level",
		"BUS_STRICT_TYPES":      "bus.strict_types",
		"SIM_DEPTH_PROFILE":     "sim.depth_profile",
		"REQUIRES":              "requires",
		"VEHICLE_VISION_PERIOD": "vehicle.vision_period",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestFlagSource_Priority(t *testing.T) {
	src := &FlagSource{}
	assert.Equal(t, 40, src.Priority())
	assert.Equal(t, "flags", src.Name())
}

func TestFlagSource_Load_NilFlags(t *testing.T) {
	require.NoError(t, (&FlagSource{}).Load(koanf.New(".")), "Nil flags should skip silently")
}

func TestFlagSource_Load(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	flags.Bool("trace", false, "")
	require.NoError(t, flags.Set("log.level", "debug"))
	require.NoError(t, flags.Set("trace", "true"))

	k := koanf.New(".")
	require.NoError(t, (&DefaultSource{}).Load(k))
	require.NoError(t, (&FlagSource{Flags: flags}).Load(k))

	assert.Equal(t, "debug", k.String("log.level"))
	assert.Equal(t, "text", k.String("log.format"), "unchanged flags keep lower sources")
	assert.False(t, k.Exists("trace"), "flags that are not config keys are ignored")
}

func TestFlagSource_Load_DebugFlag(t *testing.T) {
	k := koanf.New(".")
	require.NoError(t, (&FlagSource{Debug: true}).Load(k))
	assert.Equal(t, "debug", k.String("log.level"))
}

func TestDefaultSources_Order(t *testing.T) {
	sources := DefaultSources("/tmp/config.yaml", nil, false)

	require.Len(t, sources, 4)
	assert.Equal(t, "defaults", sources[0].Name())
	assert.Equal(t, "file:/tmp/config.yaml", sources[1].Name())
	assert.Equal(t, "env", sources[2].Name())
	assert.Equal(t, "flags", sources[3].Name())

	for i := 1; i < len(sources); i++ {
		assert.Greater(t, sources[i].Priority(), sources[i-1].Priority())
	}
}

func TestLoad_CustomSourceBetweenFileAndEnv(t *testing.T) {
	custom := &mockConfigSource{
		name:     "custom",
		priority: 25,
		loadFunc: func(k *koanf.Koanf) error {
			return k.Set("vehicle.name", "from-custom")
		},
	}

	manager := NewManager()
	require.NoError(t, manager.Load(&DefaultSource{}, custom, &EnvSource{}))
	assert.Equal(t, "from-custom", manager.Get().Vehicle.Name)
}

func TestLoad_SortsByPriority(t *testing.T) {
	t.Setenv("KEEL_VEHICLE_NAME", "from-env")

	manager := NewManager()
	require.NoError(t, manager.Load(&EnvSource{}, &DefaultSource{}))
	assert.Equal(t, "from-env", manager.Get().Vehicle.Name)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// mockConfigSource is a test helper for custom config sources
type mockConfigSource struct {
	name     string
	priority int
	loadFunc func(k *koanf.Koanf) error
}

func (m *mockConfigSource) Name() string  { return m.name }
func (m *mockConfigSource) Priority() int { return m.priority }
func (m *mockConfigSource) Load(k *koanf.Koanf) error {
	if m.loadFunc != nil {
		return m.loadFunc(k)
	}
	return nil
}
