// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"slices"
	"strings"
)

// Kind constrains the event-type domain a Publisher is parameterized over.
// Domains are string based so a component-local domain converts directly
// into the system Type when its events are forwarded to the Hub.
type Kind interface {
	~string
}

// Type is the system-wide event-type domain routed through the Hub.
type Type string

const (
	TypeDataUpdate         Type = "device.data_update"
	TypeDepthUpdate        Type = "estimation.depth_update"
	TypeOrientationUpdate  Type = "estimation.orientation_update"
	TypeDesiredStateUpdate Type = "control.desired_state_update"
	TypeAtDepth            Type = "control.at_depth"
	TypeAtOrientation      Type = "control.at_orientation"
	TypeObjectFound        Type = "vision.object_found"
	TypeObjectLost         Type = "vision.object_lost"
	TypePowerSourceUpdate  Type = "vehicle.power_source_update"
	TypeConfigReloaded     Type = "config.reloaded"
	TypeLifecycle          Type = "vehicle.lifecycle"
)

// String returns the wire name of the type.
func (t Type) String() string { return string(t) }

// Group returns the dotted prefix of the type ("device" for
// "device.data_update").
func (t Type) Group() string {
	if i := strings.IndexByte(string(t), '.'); i > 0 {
		return string(t[:i])
	}
	return string(t)
}

// TypeSet is an immutable closed enumeration of event types.
// The zero value is empty and rejects everything.
type TypeSet struct {
	members map[Type]struct{}
}

// NewTypeSet builds a closed set from the given types.
func NewTypeSet(types ...Type) TypeSet {
	m := make(map[Type]struct{}, len(types))
	for _, t := range types {
		m[t] = struct{}{}
	}
	return TypeSet{members: m}
}

// SystemTypes returns the set of built-in system event types.
func SystemTypes() TypeSet {
	return NewTypeSet(
		TypeDataUpdate,
		TypeDepthUpdate,
		TypeOrientationUpdate,
		TypeDesiredStateUpdate,
		TypeAtDepth,
		TypeAtOrientation,
		TypeObjectFound,
		TypeObjectLost,
		TypePowerSourceUpdate,
		TypeConfigReloaded,
		TypeLifecycle,
	)
}

// With returns a new set holding the receiver's members plus types.
func (s TypeSet) With(types ...Type) TypeSet {
	all := append(s.List(), types...)
	return NewTypeSet(all...)
}

// Contains reports whether t is a member of the set.
func (s TypeSet) Contains(t Type) bool {
	_, ok := s.members[t]
	return ok
}

// Len returns the number of members.
func (s TypeSet) Len() int { return len(s.members) }

// List returns the members in sorted order.
func (s TypeSet) List() []Type {
	out := make([]Type, 0, len(s.members))
	for t := range s.members {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Validate returns a *TypeError wrapping ErrUnknownType when t is not a member.
func (s TypeSet) Validate(t Type) error {
	if s.Contains(t) {
		return nil
	}
	return &TypeError{Type: t}
}
