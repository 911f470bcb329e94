// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package trace

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelrobotics/keel/pkg/event"
)

type recordingSubscriber struct {
	mu    sync.Mutex
	only  event.Type
	kinds []event.Type
}

func (r *recordingSubscriber) Name() string { return "recording" }

func (r *recordingSubscriber) ShouldHandle(e *event.Event) bool {
	return r.only == "" || e.Kind() == r.only
}

func (r *recordingSubscriber) Handle(e *event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, e.Kind())
}

func TestLevelOf(t *testing.T) {
	tests := map[event.Type]Level{
		event.TypeDataUpdate:         LevelDebug,
		event.TypeDepthUpdate:        LevelVerbose,
		event.TypeOrientationUpdate:  LevelVerbose,
		event.TypeDesiredStateUpdate: LevelVerbose,
		event.TypeAtDepth:            LevelNormal,
		event.TypeObjectFound:        LevelNormal,
		event.TypeConfigReloaded:     LevelNormal,
	}
	for typ, want := range tests {
		assert.Equal(t, want, LevelOf(typ), typ)
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	assert.Equal(t, LevelNormal, LevelFromVerbosity(0))
	assert.Equal(t, LevelVerbose, LevelFromVerbosity(1))
	assert.Equal(t, LevelDebug, LevelFromVerbosity(2))
	assert.Equal(t, LevelDebug, LevelFromVerbosity(5))
	assert.Equal(t, "verbose", LevelVerbose.String())
	assert.Equal(t, "unknown", Level(9).String())
}

func TestAttachSubscribesAllSystemTypes(t *testing.T) {
	t.Parallel()

	hub := event.NewHub(event.WithTypes(event.SystemTypes()))
	rec := &recordingSubscriber{}

	conns, err := Attach(hub, rec)
	require.NoError(t, err)
	assert.Len(t, conns, event.SystemTypes().Len())

	p := event.NewPublisher[event.Type]("depth", event.WithHub(hub))
	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, event.TypeDepthUpdate, event.NewNumber(3)))
	require.NoError(t, hub.Publish(ctx, event.TypeLifecycle, event.New(event.Text("started"))))

	assert.Equal(t, []event.Type{event.TypeDepthUpdate, event.TypeLifecycle}, rec.kinds)

	Detach(conns)
	for _, c := range conns {
		assert.False(t, c.Connected())
	}
	require.NoError(t, hub.Publish(ctx, event.TypeLifecycle, event.New(nil)))
	assert.Len(t, rec.kinds, 2)
}

func TestAttachFiltersWithShouldHandle(t *testing.T) {
	t.Parallel()

	hub := event.NewHub()
	rec := &recordingSubscriber{only: event.TypeAtDepth}
	_, err := Attach(hub, rec, event.TypeAtDepth, event.TypeDepthUpdate)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, event.TypeDepthUpdate, event.NewNumber(1)))
	require.NoError(t, hub.Publish(ctx, event.TypeAtDepth, event.New(event.BoolPair{true, false})))

	assert.Equal(t, []event.Type{event.TypeAtDepth}, rec.kinds)
}

func TestAttachRollsBackOnError(t *testing.T) {
	t.Parallel()

	hub := event.NewHub(event.WithTypes(event.NewTypeSet(event.TypeAtDepth)))
	_, err := Attach(hub, &recordingSubscriber{}, event.TypeAtDepth, "sonar.ping")
	require.Error(t, err)
	assert.ErrorIs(t, err, event.ErrUnknownType)
	assert.Equal(t, 0, hub.SubscriberCount(event.TypeAtDepth))
}

func TestConsoleSubscriberPlain(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	console := NewConsoleSubscriber(LevelNormal, &buf, false)
	hub := event.NewHub()
	_, err := Attach(hub, console)
	require.NoError(t, err)

	p := event.NewPublisher[event.Type]("controller", event.WithHub(hub))
	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, event.TypeAtDepth, event.New(event.BoolPair{true, false})))
	require.NoError(t, p.Publish(ctx, event.TypeDataUpdate, event.NewNumber(4.2)))

	out := buf.String()
	assert.Contains(t, out, "control.at_depth")
	assert.Contains(t, out, "(true, false)")
	assert.Contains(t, out, "(controller/")
	assert.NotContains(t, out, "device.data_update", "device samples need -vv")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestConsoleSubscriberDebugShowsSamples(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	console := NewConsoleSubscriber(LevelDebug, &buf, true)
	hub := event.NewHub()
	_, err := Attach(hub, console, event.TypeDataUpdate)
	require.NoError(t, err)

	require.NoError(t, hub.Publish(context.Background(), event.TypeDataUpdate, event.NewNumber(4.2)))
	assert.Contains(t, buf.String(), "4.2")
}

func TestConsoleSubscriberTruncatesPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	console := NewConsoleSubscriber(LevelNormal, &buf, false)
	hub := event.NewHub()
	_, err := Attach(hub, console, event.TypeConfigReloaded)
	require.NoError(t, err)

	long := "/" + strings.Repeat("deep/", 20) + "config.yaml"
	require.NoError(t, hub.Publish(context.Background(), event.TypeConfigReloaded, event.New(event.Text(long))))

	out := buf.String()
	assert.NotContains(t, out, "config.yaml")
	assert.Contains(t, out, "...")
}

func TestLogSubscriber(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	hub := event.NewHub()
	_, err := Attach(hub, NewLogSubscriber(logger))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, event.TypeObjectFound, event.NewVector(0.25, -0.5)))
	require.NoError(t, hub.Publish(ctx, event.TypeDataUpdate, event.NewNumber(1)))

	out := buf.String()
	assert.Contains(t, out, `"component":"trace"`)
	assert.Contains(t, out, `"type":"vision.object_found"`)
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, `"sender":"hub"`)
	assert.NotContains(t, out, "device.data_update", "debug events filtered by logger level")
}
