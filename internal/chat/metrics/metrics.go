// Package metrics holds the prometheus collectors for the chat backend.
// Collectors are package-level promauto vars so services can increment them
// without carrying a handle around.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CodesIssued counts generated verification codes.
	CodesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anongram_verification_codes_issued_total",
		Help: "Total verification codes generated and stored",
	})

	// CodesVerified counts verification attempts by result:
	// ok, not_found, expired, mismatch.
	CodesVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anongram_verification_attempts_total",
		Help: "Total verification attempts by result",
	}, []string{"result"})

	// MessagesSent counts persisted chat messages.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anongram_messages_sent_total",
		Help: "Total chat messages persisted",
	})

	// EventsBroadcast counts events pushed through the fan-out layer by type.
	EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anongram_events_broadcast_total",
		Help: "Total realtime events fanned out by event type",
	}, []string{"type"})

	// ConnectionsLive tracks currently open websocket connections.
	ConnectionsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anongram_ws_connections",
		Help: "Currently open websocket connections",
	})
)
