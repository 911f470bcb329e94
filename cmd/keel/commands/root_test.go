// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/keelrobotics/keel/pkg/event"
	"github.com/keelrobotics/keel/pkg/vehicle"
)

// syncBuffer is written by logger and handler goroutines during run.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

const fastConfig = `
log:
  level: warn
vehicle:
  name: sub
  device_period: 10ms
  estimation_period: 10ms
  control_period: 10ms
  vision_period: 10ms
sim:
  depth_profile: [0, 2, 4.9, 5.0, 5.1]
  object_visible_every: 2
`

func execute(t *testing.T, configBody string, args ...string) (string, string, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if configBody != "" {
		require.NoError(t, os.WriteFile(path, []byte(configBody), 0o600))
	}

	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	cmd := NewCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", path, "--no-color", "--vehicle.lock_file", filepath.Join(dir, "keel.lock")}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionShort(t *testing.T) {
	out, _, err := execute(t, "", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "keel version: dev\n", out)
}

func TestVersionJSON(t *testing.T) {
	out, _, err := execute(t, "", "version", "-o", "json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
}

func TestTypesListsSystemTypes(t *testing.T) {
	out, _, err := execute(t, "", "types")
	require.NoError(t, err)

	assert.Contains(t, out, "TYPE")
	for _, typ := range event.SystemTypes().List() {
		assert.Contains(t, out, typ.String())
	}
	assert.Contains(t, out, "11 event types")
}

func TestTypesJSON(t *testing.T) {
	out, _, err := execute(t, "", "types", "--output", "json")
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, event.SystemTypes().Len())
	for _, row := range rows {
		if row["type"] == event.TypeDataUpdate.String() {
			assert.Equal(t, "device", row["group"])
			assert.Equal(t, "debug", row["trace"])
		}
	}
}

func TestConfigShowMergesFileAndFlags(t *testing.T) {
	out, _, err := execute(t, fastConfig, "--control.target_depth", "7.5", "config", "show")
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &raw))

	vehicleCfg := raw["vehicle"].(map[string]any)
	assert.Equal(t, "sub", vehicleCfg["name"])
	assert.Equal(t, "10ms", vehicleCfg["device_period"])

	control := raw["control"].(map[string]any)
	assert.EqualValues(t, 7.5, control["target_depth"])
}

func TestConfigShowRejectsInvalidConfig(t *testing.T) {
	_, _, err := execute(t, "control:\n  gain: -1\n", "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control.gain")
}

func TestRequiresConstraintIsChecked(t *testing.T) {
	_, _, err := execute(t, "requires: \"not a constraint!\"\n", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires")
}

func TestConfigPath(t *testing.T) {
	out, _, err := execute(t, "", "config", "path")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "config.yaml"))
}

func TestRunTracesHubEvents(t *testing.T) {
	out, _, err := execute(t, fastConfig, "-vv", "run", "--duration", "200ms", "--trace", "--no-watch")
	require.NoError(t, err)

	assert.Contains(t, out, event.TypeLifecycle.String())
	assert.Contains(t, out, vehicle.LifecycleStarted)
	assert.Contains(t, out, event.TypeDataUpdate.String())
	assert.Contains(t, out, event.TypeAtDepth.String())
	assert.Contains(t, out, "(sub/depth-controller")
	assert.Contains(t, out, "vehicle sub stopped")
}

func TestRunTraceRespectsVerbosity(t *testing.T) {
	out, _, err := execute(t, fastConfig, "run", "--duration", "100ms", "--trace", "--no-watch")
	require.NoError(t, err)

	assert.Contains(t, out, event.TypeLifecycle.String())
	assert.NotContains(t, out, event.TypeDataUpdate.String())
	assert.NotContains(t, out, event.TypeDepthUpdate.String())
}

func TestRunFailsWhenLocked(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "keel.lock")
	lock, err := vehicle.AcquireLock(lockPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lock.Release(t.Context()) })

	cmd := NewCommand()
	cmd.SetOut(&syncBuffer{})
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--vehicle.lock_file", lockPath,
		"run", "--duration", "50ms",
	})

	err = cmd.Execute()
	require.ErrorIs(t, err, vehicle.ErrLocked)
}

func TestRunPublishesConfigReloaded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fastConfig), 0o600))

	stdout := &syncBuffer{}
	cmd := NewCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs([]string{
		"--config", path,
		"--no-color",
		"--vehicle.lock_file", filepath.Join(dir, "keel.lock"),
		"run", "--duration", "1s", "--trace",
	})

	go func() {
		time.Sleep(300 * time.Millisecond)
		_ = os.WriteFile(path, []byte(fastConfig+"control:\n  target_depth: 6\n"), 0o600)
	}()

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), event.TypeConfigReloaded.String())
}
