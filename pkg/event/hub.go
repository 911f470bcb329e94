// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import "context"

// HubName is the display name and sender name of a hub.
const HubName = "hub"

// Hub is the process-wide publisher of the system Type domain. Publishers
// built WithHub forward every event they dispatch to it, so a component can
// subscribe to a type on the hub and receive it from every publisher in the
// process without a reference to any of them.
//
// A hub is created once and handed to components through configuration;
// there is no package-level instance.
type Hub struct {
	*Publisher[Type]
}

// NewHub creates a hub. WithHub is ignored: hubs do not chain.
func NewHub(opts ...Option) *Hub {
	p := NewPublisher[Type](HubName, opts...)
	p.hub = nil
	return &Hub{Publisher: p}
}

// forward fans out an event that a publisher has already stamped and
// dispatched locally. The original kind, sender and timestamp are kept.
func (h *Hub) forward(ctx context.Context, e *Event) {
	if h.closed.Load() {
		h.logger.Debug().
			Str("type", string(e.kind)).
			Str("sender", e.sender.Name).
			Msg("hub closed, forward skipped")
		return
	}
	h.fanOut(ctx, h.reg.lookup(e.kind), e)
}
