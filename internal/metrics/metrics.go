package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal counts Stripe webhook requests by event type and outcome.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentpilot",
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Total Stripe webhook requests by event type and outcome.",
	}, []string{"event_type", "outcome"})

	// WebhookDuration tracks Stripe webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agentpilot",
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// CreditsGranted sums credits added to balances by ledger kind.
	CreditsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentpilot",
		Subsystem: "credits",
		Name:      "granted_total",
		Help:      "Credits added to balances by ledger kind.",
	}, []string{"kind"})

	// CreditsConsumed sums credits spent by the bot per operation.
	CreditsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentpilot",
		Subsystem: "credits",
		Name:      "consumed_total",
		Help:      "Credits consumed by operation.",
	}, []string{"operation"})

	// InsufficientCredits counts rejected consumptions.
	InsufficientCredits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "agentpilot",
		Subsystem: "credits",
		Name:      "insufficient_total",
		Help:      "Consumptions rejected for insufficient balance.",
	})

	// LinkCodes counts linking code issuance and confirmation outcomes.
	LinkCodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentpilot",
		Subsystem: "link",
		Name:      "codes_total",
		Help:      "Linking codes by action and outcome.",
	}, []string{"action", "outcome"})

	// CheckoutSessions counts checkout sessions created by mode.
	CheckoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentpilot",
		Subsystem: "billing",
		Name:      "checkout_sessions_total",
		Help:      "Checkout sessions created by mode and outcome.",
	}, []string{"mode", "outcome"})

	// MaintenanceRemoved counts rows cleared by scheduled maintenance.
	MaintenanceRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentpilot",
		Subsystem: "maintenance",
		Name:      "removed_total",
		Help:      "Rows cleared by scheduled maintenance jobs.",
	}, []string{"job"})

	// HTTPRequests counts requests by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentpilot",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "route", "status"})

	// HTTPDuration request latency by route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agentpilot",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})
)

// ObserveHTTP records one finished request; unmatched routes share a label
func ObserveHTTP(method, route string, status int, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}

// WatchConnections exposes the number of open websocket connections
func WatchConnections(count func() int) prometheus.GaugeFunc {
	return promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "agentpilot",
		Subsystem: "ws",
		Name:      "connections",
		Help:      "Open websocket connections on this instance.",
	}, func() float64 { return float64(count()) })
}
