// Package observability exposes the Prometheus metric set for the bank:
// command outcomes, session registry activity and store health.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Command Metrics ────────────────────────────────────────────────────────

// CommandsTotal counts processed commands by operation and terminal outcome.
var CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "riverbank",
	Subsystem: "commands",
	Name:      "total",
	Help:      "Total commands processed by operation and outcome.",
}, []string{"op", "outcome"})

// StoreFaults counts ledger store faults that aborted an operation.
var StoreFaults = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riverbank",
	Subsystem: "store",
	Name:      "faults_total",
	Help:      "Total ledger store faults (operation aborted, no retry).",
})

// ─── Session Metrics ────────────────────────────────────────────────────────

// SessionsActive tracks the number of live interactive view sessions.
var SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "riverbank",
	Subsystem: "sessions",
	Name:      "active",
	Help:      "Currently registered interactive view sessions.",
})

// SessionsExpired counts sessions removed by the auto-expiry timer.
var SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riverbank",
	Subsystem: "sessions",
	Name:      "expired_total",
	Help:      "Sessions removed because the expiry window elapsed untouched.",
})

// SessionsClosed counts sessions removed by an explicit close action.
var SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riverbank",
	Subsystem: "sessions",
	Name:      "closed_total",
	Help:      "Sessions removed by an explicit close action.",
})

// UnauthorizedActions counts interaction clicks whose acting identity did not
// match the session owner (acknowledged, no state change).
var UnauthorizedActions = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riverbank",
	Subsystem: "sessions",
	Name:      "unauthorized_actions_total",
	Help:      "Interaction actions ignored because the actor does not own the session.",
})

// MalformedRoutingKeys counts interaction actions dropped at parse time.
var MalformedRoutingKeys = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riverbank",
	Subsystem: "sessions",
	Name:      "malformed_routing_total",
	Help:      "Interaction actions ignored because the routing key was malformed.",
})

// ─── Audit Metrics ──────────────────────────────────────────────────────────

// AuditEvents counts audit events emitted by kind.
var AuditEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "riverbank",
	Subsystem: "audit",
	Name:      "events_total",
	Help:      "Audit events emitted by kind.",
}, []string{"kind"})
