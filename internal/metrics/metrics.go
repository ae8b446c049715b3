package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	TaskMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_mutations_total",
			Help: "Task lifecycle operations by outcome",
		},
		[]string{"operation", "result"}, // result: ok, error, conflict
	)

	VersionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_version_conflicts_total",
			Help: "Optimistic lock losses observed by the task lifecycle engine",
		},
		[]string{"operation"},
	)

	NotificationsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_written_total",
			Help: "Notifications appended by fan-out",
		},
		[]string{"type"},
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Events dropped by fan-out",
		},
		[]string{"reason"}, // reason: queue_full, closed, handler_error, publish_error, duplicate
	)

	LedgerDrift = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_drift_records",
			Help: "Counter records found out of sync by the last reconciliation",
		},
		[]string{"counter"},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncTaskMutation(operation, result string) {
	TaskMutations.WithLabelValues(operation, result).Inc()
}

func IncVersionConflict(operation string) {
	VersionConflicts.WithLabelValues(operation).Inc()
}

func IncNotificationWritten(kind string) {
	NotificationsWritten.WithLabelValues(kind).Inc()
}

func IncNotificationDropped(reason string) {
	NotificationsDropped.WithLabelValues(reason).Inc()
}

func SetLedgerDrift(counter string, n int) {
	LedgerDrift.WithLabelValues(counter).Set(float64(n))
}
