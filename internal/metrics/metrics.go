// Package metrics defines all custom Prometheus metrics for the timetrack
// API. It is the single source of truth for metric names, labels, and help
// strings. Metrics register themselves with the default registry via
// promauto at package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "timetrack"

// TasksStartedTotal counts task creations.
var TasksStartedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_started_total",
		Help:      "Total number of tasks created.",
	},
)

// TasksStoppedTotal counts completed stop operations, labelled by result.
// Labels:
//   - result: "ok", "already_completed", or "not_found"
var TasksStoppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_stopped_total",
		Help:      "Total number of task stop attempts, by result.",
	},
	[]string{"result"},
)

// ReportRequestsTotal counts report summary computations.
var ReportRequestsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_requests_total",
		Help:      "Total number of report summaries computed.",
	},
)

// LoginsTotal counts login attempts, labelled by result ("ok" / "failed").
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)
