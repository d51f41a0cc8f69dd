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

	// SessionsActive tracks active chat sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Number of active chat sessions",
		},
	)

	// SessionsTotal tracks sessions created, by how they ended up starting.
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sessions_total",
			Help: "Total chat sessions created",
		},
		[]string{"outcome"},
	)

	// TurnsTotal tracks processed turns by classification and outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total conversation turns processed",
		},
		[]string{"kind", "outcome"},
	)

	// TurnDuration tracks end-to-end turn processing time.
	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_turn_duration_seconds",
			Help:    "Turn processing duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"kind"},
	)

	// GatewayQueriesTotal tracks queries executed through the gateway.
	GatewayQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_queries_total",
			Help: "Total data queries executed through the isolation gateway",
		},
		[]string{"domain", "status"},
	)

	// GatewayDenialsTotal tracks access denials at the gateway boundary.
	GatewayDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_denials_total",
			Help: "Total requests denied by the isolation gateway",
		},
		[]string{"reason"},
	)

	// GatewayQueryDuration tracks query execution time against the store.
	GatewayQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_query_duration_seconds",
			Help:    "Data store query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"domain"},
	)

	// AdviceDuration tracks advice backend response duration.
	AdviceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advice_duration_seconds",
			Help:    "Advice backend response duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "status"},
	)

	// AdviceTokensTotal tracks tokens processed by the advice backend.
	AdviceTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advice_tokens_total",
			Help: "Total advice backend tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// WSConnectionsActive tracks active websocket connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of active websocket connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTurn records metrics for a completed turn.
func RecordTurn(kind, outcome string, duration float64) {
	TurnsTotal.WithLabelValues(kind, outcome).Inc()
	TurnDuration.WithLabelValues(kind).Observe(duration)
}

// RecordQuery records metrics for a gateway query.
func RecordQuery(domain, status string, duration float64) {
	GatewayQueriesTotal.WithLabelValues(domain, status).Inc()
	GatewayQueryDuration.WithLabelValues(domain).Observe(duration)
}

// RecordDenial records an access denial at the gateway.
func RecordDenial(reason string) {
	GatewayDenialsTotal.WithLabelValues(reason).Inc()
}

// RecordAdvice records metrics for an advice backend call.
func RecordAdvice(provider, status string, duration float64, tokensIn, tokensOut int) {
	AdviceDuration.WithLabelValues(provider, status).Observe(duration)
	AdviceTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	AdviceTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}
