// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package trace renders bus events for operators. Subscribers attach to the
// hub and filter by verbosity, so the same trace can be quiet in production
// and show every sensor sample with -vv.
package trace

import (
	"context"
	"fmt"

	"github.com/keelrobotics/keel/pkg/event"
)

// Level is the trace verbosity, counted from -v flags.
type Level int

const (
	// LevelNormal shows state changes: thresholds, detections, lifecycle.
	LevelNormal Level = iota
	// LevelVerbose adds estimates and setpoints.
	LevelVerbose
	// LevelDebug adds raw device samples.
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelVerbose:
		return "verbose"
	case LevelDebug:
		return "debug"
	}
	return "unknown"
}

// LevelFromVerbosity maps a -v count onto a Level.
func LevelFromVerbosity(count int) Level {
	switch {
	case count <= 0:
		return LevelNormal
	case count == 1:
		return LevelVerbose
	default:
		return LevelDebug
	}
}

// LevelOf returns the lowest verbosity at which t is shown.
func LevelOf(t event.Type) Level {
	switch t.Group() {
	case "device":
		return LevelDebug
	case "estimation":
		return LevelVerbose
	}
	if t == event.TypeDesiredStateUpdate {
		return LevelVerbose
	}
	return LevelNormal
}

// Subscriber renders bus events.
type Subscriber interface {
	// Name returns a unique identifier for this subscriber.
	Name() string

	// ShouldHandle decides if this subscriber cares about the event.
	ShouldHandle(e *event.Event) bool

	// Handle renders one event. It runs on the publishing goroutine and
	// may run concurrently for events of different types.
	Handle(e *event.Event)
}

// Attach subscribes s on hub for each of types, or for every system type
// when none are given. If any subscription fails, the ones already made are
// disconnected and the error is returned.
func Attach(hub *event.Hub, s Subscriber, types ...event.Type) ([]*event.Connection, error) {
	if len(types) == 0 {
		types = event.SystemTypes().List()
	}

	handler := func(_ context.Context, e *event.Event) {
		if s.ShouldHandle(e) {
			s.Handle(e)
		}
	}

	conns := make([]*event.Connection, 0, len(types))
	for _, t := range types {
		c, err := hub.Subscribe(t, handler)
		if err != nil {
			Detach(conns)
			return nil, fmt.Errorf("attach %s: %w", s.Name(), err)
		}
		conns = append(conns, c)
	}
	return conns, nil
}

// Detach disconnects every connection.
func Detach(conns []*event.Connection) {
	for _, c := range conns {
		c.Disconnect()
	}
}
