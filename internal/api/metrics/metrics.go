// Package metrics defines and registers all custom Prometheus metrics for the
// customer portal API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Access control metrics ────────────────────────────────────────────────────

// AuthDecisionsTotal counts gate outcomes.
// Labels:
//   - outcome: "authorized", "unauthenticated", "forbidden", "rate_limited", "not_found"
//   - reason: the structured reason code, empty when authorized
var AuthDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_decisions_total",
		Help:      "Total number of access control decisions, by outcome and reason.",
	},
	[]string{"outcome", "reason"},
)

// RateLimitBackendErrorsTotal counts failures of the shared rate limit store
// that forced a fallback to the in-process limiter.
var RateLimitBackendErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_backend_errors_total",
		Help:      "Total number of rate limit store errors answered by the in-memory fallback.",
	},
)

// ── Activity metrics ──────────────────────────────────────────────────────────

// ActivityQueueDepth tracks the number of pending last-active writes per worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ActivityQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "activity_queue_depth",
		Help:      "Current number of last-active updates pending in each worker channel.",
	},
	[]string{"worker_id"},
)

// ActivityDroppedTotal counts last-active updates dropped because a worker
// channel was full.
var ActivityDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activity_dropped_total",
		Help:      "Total number of last-active updates dropped on a full queue.",
	},
)

// ── Record metrics ────────────────────────────────────────────────────────────

// NumbersAllocatedTotal counts display numbers handed out.
// Label:
//   - record_type: "policy", "claim" or "complaint"
var NumbersAllocatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "numbers_allocated_total",
		Help:      "Total number of display numbers allocated, by record type.",
	},
	[]string{"record_type"},
)

// AllocationFailuresTotal counts record creations aborted because no safe
// display number could be produced.
// Labels:
//   - record_type: "policy", "claim" or "complaint"
//   - reason: structured reason code
var AllocationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "allocation_failures_total",
		Help:      "Total number of display number allocation failures.",
	},
	[]string{"record_type", "reason"},
)

// RecordsCreatedTotal counts persisted records.
var RecordsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_created_total",
		Help:      "Total number of records created, by record type.",
	},
	[]string{"record_type"},
)

// AllocationDuration measures time spent obtaining a display number.
var AllocationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "allocation_duration_seconds",
		Help:      "Duration of display number allocation, including counter seeding.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"record_type"},
)
