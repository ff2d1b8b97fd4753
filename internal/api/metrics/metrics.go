// Package metrics defines and registers all custom Prometheus metrics for the
// identity API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// init via promauto and exposed by the router on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vetcare/identity-api/internal/core/domain"
)

const namespace = "identity"

// ── Auth operation metrics ────────────────────────────────────────────────────

// AuthOperationsTotal counts completed auth operations.
// Labels:
//   - operation: "register", "login", "refresh", "logout", "forget_password", "reset_password"
//   - outcome: "success" or the error kind ("unauthorized", "conflict", …)
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of auth operations, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// AuthOperationDuration measures how long each auth operation takes,
// including password hashing and mail delivery.
// Label:
//   - operation: see AuthOperationsTotal
var AuthOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "auth_operation_duration_seconds",
		Help:      "Duration of auth operations from request decode to response.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"operation"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionsIssuedTotal counts refresh and reset sessions created.
// Label:
//   - kind: "refresh" or "reset_password"
var SessionsIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_issued_total",
		Help:      "Total number of sessions opened, by token kind.",
	},
	[]string{"kind"},
)

// Observe records one operation. err nil counts as success.
func Observe(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = domain.KindOf(err).String()
	}
	AuthOperationsTotal.WithLabelValues(operation, outcome).Inc()
	AuthOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
