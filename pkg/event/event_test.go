// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToNone(t *testing.T) {
	e := New(nil)
	assert.Equal(t, None{}, e.Payload())
	assert.Equal(t, "none", e.Payload().String())
	assert.Empty(t, e.Kind())
	assert.True(t, e.Sender().IsZero())
	assert.Equal(t, "<unsent>", e.Sender().String())
}

func TestPayloadAccessors(t *testing.T) {
	tests := []struct {
		name    string
		event   *Event
		number  bool
		text    bool
		vector  bool
		boolean bool
		str     string
	}{
		{name: "number", event: NewNumber(2.5), number: true, str: "2.5"},
		{name: "text", event: New(Text("duct")), text: true, str: "duct"},
		{name: "vector", event: NewVector(0.25, -0.5), vector: true, str: "[0.25 -0.5]"},
		{name: "bool pair", event: New(BoolPair{true, false}), boolean: true, str: "(true, false)"},
		{name: "none", event: New(None{}), str: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.event.Number()
			assert.Equal(t, tt.number, ok)
			_, ok = tt.event.Text()
			assert.Equal(t, tt.text, ok)
			_, ok = tt.event.Vector()
			assert.Equal(t, tt.vector, ok)
			_, _, ok = tt.event.BoolPair()
			assert.Equal(t, tt.boolean, ok)
			assert.Equal(t, tt.str, tt.event.Payload().String())
		})
	}
}

func TestVectorIsCopied(t *testing.T) {
	src := []float64{0.1, 0.2}
	e := NewVector(src...)
	src[0] = 9

	got, ok := e.Vector()
	require.True(t, ok)
	assert.Equal(t, []float64{0.1, 0.2}, got)

	got[1] = 7
	again, _ := e.Vector()
	assert.Equal(t, 0.2, again[1], "accessor returns a copy")
}

func TestTypeGroup(t *testing.T) {
	assert.Equal(t, "device", TypeDataUpdate.Group())
	assert.Equal(t, "vision", TypeObjectLost.Group())
	assert.Equal(t, "custom", Type("custom").Group())
}

func TestTypeSet(t *testing.T) {
	set := NewTypeSet(TypeAtDepth, TypeDepthUpdate)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(TypeAtDepth))
	assert.False(t, set.Contains(TypeObjectFound))
	assert.Equal(t, []Type{TypeAtDepth, TypeDepthUpdate}, set.List())

	wider := set.With(TypeObjectFound)
	assert.True(t, wider.Contains(TypeObjectFound))
	assert.False(t, set.Contains(TypeObjectFound), "With does not mutate the receiver")

	assert.NoError(t, set.Validate(TypeAtDepth))
	err := set.Validate("bogus")
	assert.True(t, errors.Is(err, ErrUnknownType))
	assert.EqualError(t, err, `unknown event type "bogus"`)

	var empty TypeSet
	assert.False(t, empty.Contains(TypeAtDepth))
}

func TestSystemTypesCoverConstants(t *testing.T) {
	sys := SystemTypes()
	for _, typ := range []Type{
		TypeDataUpdate, TypeDepthUpdate, TypeOrientationUpdate,
		TypeDesiredStateUpdate, TypeAtDepth, TypeAtOrientation,
		TypeObjectFound, TypeObjectLost, TypePowerSourceUpdate,
		TypeConfigReloaded, TypeLifecycle,
	} {
		assert.True(t, sys.Contains(typ), typ)
	}
	assert.Equal(t, 11, sys.Len())
}

func TestTypeErrorMessage(t *testing.T) {
	err := &TypeError{Publisher: "hub", Type: "x.y"}
	assert.Equal(t, `publisher hub: unknown event type "x.y"`, err.Error())
	assert.ErrorIs(t, err, ErrUnknownType)
}
