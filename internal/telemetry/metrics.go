package telemetry

import "github.com/prometheus/client_golang/prometheus"

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "kernel",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"method", "route", "status"},
)

var AutomationRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "kernel",
		Subsystem: "automation",
		Name:      "runs_total",
		Help:      "Total number of automation action executions, by trigger type and outcome.",
	},
	[]string{"trigger", "outcome"},
)

var AutomationDepthExceededTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "kernel",
		Subsystem: "automation",
		Name:      "depth_exceeded_total",
		Help:      "Total number of event envelopes dropped for exceeding the recursion depth ceiling.",
	},
)

var WebhookDeliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "kernel",
		Subsystem: "webhook",
		Name:      "deliveries_total",
		Help:      "Total number of webhook delivery attempts, by outcome.",
	},
	[]string{"outcome"},
)

var WebhookSSRFBlockedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "kernel",
		Subsystem: "webhook",
		Name:      "ssrf_blocked_total",
		Help:      "Total number of webhook deliveries blocked by the SSRF guard.",
	},
)

var RateLimitExceededTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "kernel",
		Subsystem: "ratelimit",
		Name:      "exceeded_total",
		Help:      "Total number of requests rejected for exceeding their action's rate limit.",
	},
	[]string{"action"},
)

var AuditLogDroppedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "kernel",
		Subsystem: "audit",
		Name:      "dropped_total",
		Help:      "Total number of audit log entries dropped because the buffer was full.",
	},
)

// All returns every kernel-specific metric for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		AutomationRunsTotal,
		AutomationDepthExceededTotal,
		WebhookDeliveriesTotal,
		WebhookSSRFBlockedTotal,
		RateLimitExceededTotal,
		AuditLogDroppedTotal,
	}
}
