// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package appctx

import (
	"context"

	"github.com/keelrobotics/keel/pkg/event"
)

const hubKey key = "keel.event.hub"

// WithHub stores the process hub on context.
func WithHub(ctx context.Context, hub *event.Hub) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, hubKey, hub)
}

// Hub retrieves the process hub from context.
func Hub(ctx context.Context) (*event.Hub, bool) {
	if ctx == nil {
		return nil, false
	}
	hub, ok := ctx.Value(hubKey).(*event.Hub)
	return hub, ok && hub != nil
}
