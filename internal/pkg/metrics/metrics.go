// Package metrics defines and registers all custom Prometheus metrics for the
// identity service. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics register with the default Prometheus registry on package init via
// promauto; HTTP request metrics come from echoprometheus in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Sync event metrics ────────────────────────────────────────────────────────

// SyncEventsTotal counts sync events reaching a terminal state.
// Labels:
//   - state: "delivered" or "abandoned"
//   - reason: empty when delivered; "non_retryable", "retries_exhausted",
//     "shutdown" or "queue_full" when abandoned
var SyncEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_events_total",
		Help:      "Total number of sync events that reached a terminal delivery state.",
	},
	[]string{"state", "reason"},
)

// SyncPublishAttempts observes how many bus attempts an event needed.
var SyncPublishAttempts = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_publish_attempts",
		Help:      "Number of bus publish attempts per sync event.",
		Buckets:   []float64{1, 2, 3, 4, 5, 8},
	},
)

// SyncQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var SyncQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_queue_depth",
		Help:      "Current number of sync events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// SyncDeliveryDuration measures the time from dequeue to terminal state,
// retries included.
var SyncDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_delivery_duration_seconds",
		Help:      "Duration of sync event delivery including retries.",
		Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 10, 20, 30, 60},
	},
	[]string{"state"},
)

// ── User metrics ──────────────────────────────────────────────────────────────

// UserMutationsTotal counts committed user mutations.
// Labels:
//   - op: "create", "update" or "delete"
//   - sync: "queued" or "degraded"
var UserMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_mutations_total",
		Help:      "Total number of committed user mutations, by synchronization hand-off result.",
	},
	[]string{"op", "sync"},
)

// BootstrapRunsTotal counts startup bootstrap runs.
// Label:
//   - result: "ok", "sync_degraded" or "failed"
var BootstrapRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bootstrap_runs_total",
		Help:      "Total number of identity bootstrap runs, by result.",
	},
	[]string{"result"},
)
