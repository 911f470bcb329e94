// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import "errors"

// Sentinel errors for contract violations. None of them is returned for
// lifecycle misuse such as repeated Disconnect, which is a no-op instead.
var (
	// ErrUnknownType is returned when a type is outside a publisher's closed domain.
	ErrUnknownType = errors.New("unknown event type")

	// ErrNilHandler is returned by Subscribe when the handler is nil.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrNilEvent is returned by Publish when the event is nil.
	ErrNilEvent = errors.New("event cannot be nil")

	// ErrClosed is returned by Subscribe and Publish after Close.
	ErrClosed = errors.New("publisher is closed")
)

// TypeError reports an event type rejected by a publisher.
type TypeError struct {
	// Publisher is the name of the rejecting publisher, empty when the
	// check ran outside one.
	Publisher string

	// Type is the offending value.
	Type Type
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Publisher == "" {
		return "unknown event type " + quote(string(e.Type))
	}
	return "publisher " + e.Publisher + ": unknown event type " + quote(string(e.Type))
}

// Is allows errors.Is to match TypeError with ErrUnknownType.
func (e *TypeError) Is(target error) bool {
	return target == ErrUnknownType
}

func quote(s string) string { return `"` + s + `"` }
