// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import "weak"

// Connection is the subscriber's handle on one subscription. It is either
// connected or disconnected, and only ever moves from the first state to
// the second, through Disconnect or the publisher's Close.
//
// The connection refers to its registry entry weakly: it never keeps a
// publisher alive, and disconnecting after the publisher is gone is a
// no-op.
type Connection struct {
	kind      Type
	sub       *subscription
	entry     weak.Pointer[typeEntry]
	publisher string
	observer  Observer
}

// Disconnect removes the subscription. Only the first call on a connected
// connection has an effect. It never blocks on a dispatch in progress, so
// it is safe from inside any handler; a dispatch already running on
// another goroutine may or may not still deliver its current event, but
// no Publish that starts after Disconnect returns invokes the handler.
func (c *Connection) Disconnect() {
	if !c.sub.active.CompareAndSwap(true, false) {
		return
	}
	if entry := c.entry.Value(); entry != nil {
		entry.remove(c.sub)
	}
	c.observer.Unsubscribed(c.publisher, c.kind)
}

// Connected reports whether the subscription is still registered.
func (c *Connection) Connected() bool { return c.sub.active.Load() }

// Type returns the event type the connection was registered for.
func (c *Connection) Type() Type { return c.kind }

// ID returns the unique subscription identifier.
func (c *Connection) ID() string { return c.sub.id }

// Publisher returns the display name of the owning publisher.
func (c *Connection) Publisher() string { return c.publisher }

func (c *Connection) String() string {
	state := "disconnected"
	if c.Connected() {
		state = "connected"
	}
	return c.publisher + ":" + string(c.kind) + " (" + state + ")"
}
