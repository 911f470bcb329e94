// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package metrics exposes event bus instrumentation to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keelrobotics/keel/pkg/event"
)

// BusObserver implements event.Observer with Prometheus collectors.
type BusObserver struct {
	EventsPublished  *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	HandlersInvoked  *prometheus.CounterVec
	Subscriptions    *prometheus.GaugeVec
}

// NewBusObserver creates the bus collectors and registers them on reg.
func NewBusObserver(reg prometheus.Registerer) (*BusObserver, error) {
	o := &BusObserver{
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keel_events_dispatched_total",
				Help: "Total number of event dispatches by publisher and type",
			},
			[]string{"publisher", "type"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keel_event_dispatch_duration_seconds",
				Help:    "Time spent running all handlers of one dispatch",
				Buckets: []float64{1e-6, 5e-6, 25e-6, 1e-4, 5e-4, 2.5e-3, 1e-2, 5e-2},
			},
			[]string{"type"},
		),
		HandlersInvoked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keel_event_handlers_invoked_total",
				Help: "Total number of handler invocations by type",
			},
			[]string{"type"},
		),
		Subscriptions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keel_event_subscriptions",
				Help: "Live subscriptions by publisher and type",
			},
			[]string{"publisher", "type"},
		),
	}

	for _, c := range []prometheus.Collector{
		o.EventsPublished,
		o.DispatchDuration,
		o.HandlersInvoked,
		o.Subscriptions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Subscribed implements event.Observer.
func (o *BusObserver) Subscribed(publisher string, t event.Type) {
	o.Subscriptions.WithLabelValues(publisher, string(t)).Inc()
}

// Unsubscribed implements event.Observer.
func (o *BusObserver) Unsubscribed(publisher string, t event.Type) {
	o.Subscriptions.WithLabelValues(publisher, string(t)).Dec()
}

// Dispatched implements event.Observer.
func (o *BusObserver) Dispatched(publisher string, t event.Type, handlers int, elapsed time.Duration) {
	o.EventsPublished.WithLabelValues(publisher, string(t)).Inc()
	o.DispatchDuration.WithLabelValues(string(t)).Observe(elapsed.Seconds())
	o.HandlersInvoked.WithLabelValues(string(t)).Add(float64(handlers))
}

// Handler returns the Prometheus HTTP handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
