// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package trace

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/keelrobotics/keel/pkg/event"
	"github.com/keelrobotics/keel/pkg/stringutil"
)

// payloadWidth is the payload column width in runes.
const payloadWidth = 48

var (
	// Device samples - gray
	deviceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	// Estimates - cyan
	estimationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	// Setpoints and thresholds - yellow
	controlStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	// Detections - green
	visionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	// Vehicle and config - blue
	vehicleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))

	senderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ConsoleSubscriber writes one line per event, styled by type group.
type ConsoleSubscriber struct {
	level        Level
	colorEnabled bool

	// Handlers of different types run in parallel.
	mu     sync.Mutex
	writer io.Writer
}

// NewConsoleSubscriber creates a ConsoleSubscriber writing to w.
func NewConsoleSubscriber(level Level, w io.Writer, color bool) *ConsoleSubscriber {
	return &ConsoleSubscriber{
		level:        level,
		writer:       w,
		colorEnabled: color,
	}
}

// Name returns the subscriber identifier.
func (s *ConsoleSubscriber) Name() string {
	return "console-trace"
}

// ShouldHandle reports whether e is visible at the subscriber's level.
func (s *ConsoleSubscriber) ShouldHandle(e *event.Event) bool {
	return LevelOf(e.Kind()) <= s.level
}

// Handle renders e as "15:04:05.000 type payload (sender)".
func (s *ConsoleSubscriber) Handle(e *event.Event) {
	ts := e.Timestamp().Format("15:04:05.000")
	body := fmt.Sprintf("%-30s %s", e.Kind(), stringutil.Ellipsis(e.Payload().String(), payloadWidth))
	sender := "(" + e.Sender().String() + ")"

	var line string
	if s.colorEnabled {
		line = fmt.Sprintf("%s %s %s", ts, styleFor(e.Kind()).Render(body), senderStyle.Render(sender))
	} else {
		line = fmt.Sprintf("%s %s %s", ts, body, sender)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, line)
}

func styleFor(t event.Type) lipgloss.Style {
	switch t.Group() {
	case "device":
		return deviceStyle
	case "estimation":
		return estimationStyle
	case "control":
		return controlStyle
	case "vision":
		return visionStyle
	default:
		return vehicleStyle
	}
}
