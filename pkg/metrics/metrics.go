package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsCreated counts persisted notifications by addressing mode (direct|role|all|specific).
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estatecrm_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"mode"},
	)

	// RecipientsMaterialized counts recipient rows inserted during fan-out.
	RecipientsMaterialized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "estatecrm_notification_recipients_materialized_total",
			Help: "Total number of recipient rows inserted during fan-out",
		},
	)

	// ReadMarks counts read marks actually inserted (duplicates are not counted).
	ReadMarks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "estatecrm_notification_read_marks_total",
			Help: "Total number of read marks inserted",
		},
	)

	// ActionsExecuted counts executed notification actions by dispatch outcome
	// (dispatched|unhandled|failed).
	ActionsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estatecrm_notification_actions_total",
			Help: "Total number of notification actions executed",
		},
		[]string{"action", "dispatch"},
	)

	// TriggerFailures counts fire-and-forget notification triggers that failed.
	TriggerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estatecrm_notification_trigger_failures_total",
			Help: "Total number of event-driven notification triggers that failed",
		},
		[]string{"trigger"},
	)

	// SchedulerItems counts scheduled job items by outcome (succeeded|failed|skipped).
	SchedulerItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estatecrm_scheduler_items_total",
			Help: "Total number of scheduled job items processed",
		},
		[]string{"job", "result"},
	)

	// SchedulerRunDuration measures scheduled job run time.
	SchedulerRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estatecrm_scheduler_run_duration_seconds",
			Help:    "Scheduled job run duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estatecrm_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estatecrm_rate_limited_requests_total",
			Help: "Write requests rejected by the per-caller throttle",
		},
		[]string{"path"},
	)
)
