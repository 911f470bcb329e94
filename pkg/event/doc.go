// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

/*
Package event is keel's typed publish/subscribe bus. Controllers,
estimators, vision detectors and device drivers talk to each other only
through it.

# Model

A component owns a Publisher over its event-type domain. Other components
call Subscribe to obtain a Connection and the owner calls Publish to fan an
Event out to every current subscriber of that type. Delivery is synchronous
on the publishing goroutine, in registration order, with one shared *Event
per Publish. There is no queue: a slow handler slows the publisher.

Every publisher may forward to a Hub, the process-wide publisher of the
system Type domain. Forwarding happens once per Publish, after local
delivery has finished and the local dispatch lock is released:

	depth := event.NewPublisher[event.Type]("depth-sensor", event.WithHub(hub))

	// Fine-grained: only this sensor.
	conn, _ := depth.Subscribe(event.TypeDataUpdate, onSample)

	// Coarse-grained: every publisher that forwards to the hub.
	all, _ := hub.Subscribe(event.TypeDataUpdate, onAnySample)

	_ = depth.Publish(ctx, event.TypeDataUpdate, event.NewNumber(2.5))

# Locking

Two lock domains keep unrelated types independent:

  - the structure lock, a sync.RWMutex over the type map, is held in read
    mode only long enough to find a type's entry and in write mode only to
    insert a type seen for the first time;
  - each type has a dispatch lock that serializes Publish of that type.

The dispatch lock belongs to a call chain rather than a goroutine. Handlers
receive a context carrying ownership, so a handler that publishes the same
type on the same publisher with that context re-enters instead of
deadlocking, and the nested dispatch completes before the outer Publish
returns. A context handed to another goroutine must go through Detach
first. Subscribe and Disconnect never wait for a dispatch: handler lists are
copy-on-write, so both are safe from inside handlers.

# Errors

Usage errors (nil handler, nil event, a type outside a closed TypeSet, use
after Close) are returned. Lifecycle misuse is not an error: Disconnect is
idempotent and is a no-op once the publisher is closed or gone. Panics in
handlers are not recovered; the dispatch lock is released on the way out.
*/
package event
