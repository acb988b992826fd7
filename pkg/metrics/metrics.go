// Package metrics defines and registers all custom Prometheus metrics for the
// Electrix tracker. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation and exposed by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "electrix"

// ── Session metrics ───────────────────────────────────────────────────────────

// SignInsTotal counts sign-in attempts.
// Label:
//   - result: "ok", "invalid_credentials", "disabled", "no_profile" or "error"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ins_total",
		Help:      "Total number of sign-in attempts, by result.",
	},
	[]string{"result"},
)

// SessionEventsTotal counts browser session lifecycle events.
// Label:
//   - event: "refreshed", "refresh_failed", "refresh_unavailable", "signed_out",
//     "profile_unavailable"
var SessionEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Total number of session lifecycle events.",
	},
	[]string{"event"},
)

// ── Backend metrics ───────────────────────────────────────────────────────────

// BackendCallsTotal counts calls issued to the backend service.
// Labels:
//   - operation: e.g. "clients.insert", "auth.sign_in", "storage.upload"
//   - outcome: "ok" or the error class ("unavailable", "forbidden", ...)
var BackendCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_calls_total",
		Help:      "Total number of backend service calls, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// BackendCallDuration measures backend call latency.
var BackendCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_call_duration_seconds",
		Help:      "Duration of backend service calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ── Screen metrics ────────────────────────────────────────────────────────────

// MutationsTotal counts screen mutations.
// Labels:
//   - screen: "workflow", "cashflow", "team", "register"
//   - action: e.g. "create_client", "delete_project"
//   - result: "ok", "error" or "stale" (dropped because the screen re-mounted)
var MutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Total number of screen mutations, by screen, action and result.",
	},
	[]string{"screen", "action", "result"},
)

// ChecklistTogglesTotal counts checklist toggles.
// Label:
//   - result: "committed" or "rolled_back"
var ChecklistTogglesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checklist_toggles_total",
		Help:      "Total number of housing unit checklist toggles, by result.",
	},
	[]string{"result"},
)

// UploadsTotal counts image upload sagas.
// Label:
//   - result: "linked", "upload_failed", "link_failed"
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of housing unit image uploads, by result.",
	},
	[]string{"result"},
)

// CompensationsTotal counts compensating deletes of orphaned objects.
// Label:
//   - result: "ok" or "error"
var CompensationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_compensations_total",
		Help:      "Total number of compensating object deletes after a failed link.",
	},
	[]string{"result"},
)

// ── Cleanup worker metrics ────────────────────────────────────────────────────

// CleanupTasksTotal counts background cleanup tasks.
// Label:
//   - result: "ok", "error" or "dropped"
var CleanupTasksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cleanup_tasks_total",
		Help:      "Total number of background cleanup tasks, by result.",
	},
	[]string{"result"},
)

// CleanupQueueDepth tracks the number of tasks waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var CleanupQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cleanup_queue_depth",
		Help:      "Current number of tasks pending in each cleanup worker channel.",
	},
	[]string{"worker_id"},
)
