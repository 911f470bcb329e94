// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Payload is the event-specific data carried by an Event. The set of
// variants is closed: Number, Text, Vector, BoolPair and None.
type Payload interface {
	isPayload()
	fmt.Stringer
}

// Number is a scalar numeric payload (depth in meters, a sensor sample).
type Number float64

// Text is a string payload.
type Text string

// Vector is an ordered list of components, e.g. normalized image-plane
// coordinates or a 3-axis sample.
type Vector []float64

// BoolPair carries two flags, e.g. (enabled, in-use) for a power source.
type BoolPair [2]bool

// None marks an event without data.
type None struct{}

func (Number) isPayload()   {}
func (Text) isPayload()     {}
func (Vector) isPayload()   {}
func (BoolPair) isPayload() {}
func (None) isPayload()     {}

func (n Number) String() string   { return fmt.Sprintf("%g", float64(n)) }
func (t Text) String() string     { return string(t) }
func (v Vector) String() string   { return fmt.Sprintf("%v", []float64(v)) }
func (b BoolPair) String() string { return fmt.Sprintf("(%t, %t)", b[0], b[1]) }
func (None) String() string       { return "none" }

// Source identifies the publisher that dispatched an event. It is a plain
// value so holding an event never keeps its publisher alive.
type Source struct {
	ID   uuid.UUID
	Name string
}

// NewSource returns a Source with a fresh random ID.
func NewSource(name string) Source {
	return Source{ID: uuid.New(), Name: name}
}

// IsZero reports whether the source was never stamped.
func (s Source) IsZero() bool { return s.ID == uuid.Nil }

func (s Source) String() string {
	if s.IsZero() {
		return "<unsent>"
	}
	return s.Name + "/" + s.ID.String()[:8]
}

// Handler receives events. The context carries dispatch ownership for the
// publishing call chain; pass it unchanged to any Publish made from inside
// the handler, and wrap it with Detach before handing it to a goroutine.
type Handler func(ctx context.Context, e *Event)

// Event is the record routed through the bus. One instance is shared by
// every handler of a single Publish call, so handlers must not mutate it.
type Event struct {
	kind    Type
	sender  Source
	at      time.Time
	payload Payload
}

// New creates an unsent event. Kind, sender and timestamp are stamped by
// the publisher. A nil payload becomes None.
func New(p Payload) *Event {
	if p == nil {
		p = None{}
	}
	return &Event{payload: p}
}

// NewNumber is shorthand for New(Number(v)).
func NewNumber(v float64) *Event { return New(Number(v)) }

// NewVector copies components into a Vector payload.
func NewVector(components ...float64) *Event {
	return New(Vector(slices.Clone(components)))
}

// Kind returns the type the event was published under.
func (e *Event) Kind() Type { return e.kind }

// Sender returns the publisher that dispatched the event.
func (e *Event) Sender() Source { return e.sender }

// Timestamp returns the time the event was published.
func (e *Event) Timestamp() time.Time { return e.at }

// Payload returns the event data.
func (e *Event) Payload() Payload { return e.payload }

// Number returns the numeric payload, if that is what the event carries.
func (e *Event) Number() (float64, bool) {
	n, ok := e.payload.(Number)
	return float64(n), ok
}

// Text returns the string payload.
func (e *Event) Text() (string, bool) {
	t, ok := e.payload.(Text)
	return string(t), ok
}

// Vector returns a copy of the vector payload.
func (e *Event) Vector() ([]float64, bool) {
	v, ok := e.payload.(Vector)
	if !ok {
		return nil, false
	}
	return slices.Clone([]float64(v)), true
}

// BoolPair returns the two-flag payload.
func (e *Event) BoolPair() (bool, bool, bool) {
	b, ok := e.payload.(BoolPair)
	return b[0], b[1], ok
}

func (e *Event) String() string {
	return fmt.Sprintf("%s from %s: %s", e.kind, e.sender, e.payload)
}

// stamp is called by the publisher before dispatch. A forwarded event
// keeps the sender and time of the original publish.
func (e *Event) stamp(kind Type, sender Source) {
	e.kind = kind
	e.sender = sender
	e.at = time.Now()
}
