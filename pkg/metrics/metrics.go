// Copyright (c) 2024 Jerzy Dąbrowski
//
// Package metrics defines the prometheus collectors surfaced by a running
// server and a thin wrapper implementing the irc.Metrics interface the
// connection driver calls into.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive tracks the number of accepted connections with a
	// driver goroutine still running.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rsrserver_connections_active",
		Help: "Number of currently active client connections.",
	})

	// ConnectionsTotal counts every accepted connection, active or closed.
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rsrserver_connections_total",
		Help: "Total number of client connections accepted.",
	})

	// MessagesTotal counts dispatched client messages by verb.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsrserver_messages_total",
		Help: "Total number of client messages dispatched, by verb.",
	}, []string{"verb"})

	// CapNegotiationsTotal counts CAP negotiation outcomes: CAP REQ acks and
	// naks, and CAP LS version rejections.
	CapNegotiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsrserver_cap_negotiations_total",
		Help: "Total CAP negotiation outcomes, by result.",
	}, []string{"result"})

	// PingTimeoutsTotal counts sessions terminated by a missed PONG.
	PingTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rsrserver_ping_timeouts_total",
		Help: "Total number of sessions terminated for missing a keepalive PONG.",
	})

	// SessionDurationSeconds is the distribution of connection lifetimes.
	SessionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rsrserver_session_duration_seconds",
		Help:    "Distribution of client session durations in seconds.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	})
)

// Collectors wraps the package-level collectors behind the irc.Metrics
// interface, so the connection driver never imports prometheus directly.
type Collectors struct{}

// ConnectionOpened records a newly accepted connection.
func (Collectors) ConnectionOpened() {
	ConnectionsActive.Inc()
	ConnectionsTotal.Inc()
}

// ConnectionClosed records a connection's end and total lifetime.
func (Collectors) ConnectionClosed(d time.Duration) {
	ConnectionsActive.Dec()
	SessionDurationSeconds.Observe(d.Seconds())
}

// MessageDispatched records one successfully routed client message.
func (Collectors) MessageDispatched(verb string) {
	MessagesTotal.WithLabelValues(verb).Inc()
}

// CapNegotiation records a CAP negotiation outcome: "ack" or "nak" (from
// CAP REQ), or "unsupported_version" (from CAP LS).
func (Collectors) CapNegotiation(result string) {
	CapNegotiationsTotal.WithLabelValues(result).Inc()
}

// PingTimeout records a session ended by a missed keepalive PONG.
func (Collectors) PingTimeout() {
	PingTimeoutsTotal.Inc()
}
