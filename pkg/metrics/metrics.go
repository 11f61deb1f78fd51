// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ConversationsTotal tracks conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
	)

	// MessagesTotal tracks messages appended by provenance.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages appended",
		},
		[]string{"type"},
	)

	// BotHandledTotal tracks turns fully owned by the automated agent.
	BotHandledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_handled_total",
			Help: "Messages handled by the automated agent",
		},
	)

	// HandoffsTotal tracks handoffs to humans by outcome.
	HandoffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handoffs_total",
			Help: "Handoffs to human operators",
		},
		[]string{"outcome"}, // assigned | waiting
	)

	// ConversationsWaiting tracks the current waiting queue depth.
	ConversationsWaiting = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversations_waiting",
			Help: "Conversations currently waiting for an operator",
		},
	)

	// OperatorsRegistered tracks registered operators.
	OperatorsRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "operators_registered",
			Help: "Operators currently registered",
		},
	)

	// CollaboratorCalls tracks outbound collaborator calls by target and
	// outcome.
	CollaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_calls_total",
			Help: "Calls to external collaborators",
		},
		[]string{"target", "outcome"},
	)

	// OutboundSendsTotal tracks attempts to send messages to customers.
	OutboundSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_sends_total",
			Help: "Outbound messages sent to customers",
		},
		[]string{"status"}, // success | failure
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}
