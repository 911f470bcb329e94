// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package trace

import (
	"github.com/rs/zerolog"

	"github.com/keelrobotics/keel/pkg/event"
)

// LogSubscriber writes events to a zerolog logger. State changes are logged
// at info, everything else at debug, so the logger's own level filters.
type LogSubscriber struct {
	logger zerolog.Logger
}

// NewLogSubscriber creates a LogSubscriber tagged with component=trace.
func NewLogSubscriber(logger zerolog.Logger) *LogSubscriber {
	return &LogSubscriber{
		logger: logger.With().Str("component", "trace").Logger(),
	}
}

// Name returns the subscriber identifier.
func (s *LogSubscriber) Name() string {
	return "log-trace"
}

// ShouldHandle accepts every event.
func (s *LogSubscriber) ShouldHandle(*event.Event) bool {
	return true
}

// Handle logs e.
func (s *LogSubscriber) Handle(e *event.Event) {
	level := zerolog.DebugLevel
	if LevelOf(e.Kind()) == LevelNormal {
		level = zerolog.InfoLevel
	}

	s.logger.WithLevel(level).
		Str("type", e.Kind().String()).
		Str("sender", e.Sender().Name).
		Str("payload", e.Payload().String()).
		Time("at", e.Timestamp()).
		Msg("event")
}
