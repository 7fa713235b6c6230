package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики цикла обработки. Регистрируются в default registry.
var (
	TasksClaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tranche_tasks_claimed_total",
		Help: "Tasks moved to IN_PROGRESS by this instance",
	}, []string{"instance"})

	TasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tranche_tasks_completed_total",
		Help: "Tasks moved to a terminal status by this instance",
	}, []string{"instance", "status"})

	TasksReclaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tranche_tasks_reclaimed_total",
		Help: "Stale IN_PROGRESS tasks force-failed by this instance",
	}, []string{"instance"})

	ClaimConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tranche_claim_conflicts_total",
		Help: "Claims lost to another instance",
	}, []string{"instance"})

	LoopErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tranche_loop_errors_total",
		Help: "Loop iterations aborted by an error",
	}, []string{"instance", "stage"})

	TaskProcessing = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tranche_task_processing_seconds",
		Help:    "Simulated processing time per task",
		Buckets: prometheus.LinearBuckets(1, 1, 12),
	}, []string{"instance"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tranche_http_requests_total",
		Help: "Status API requests served by this instance",
	}, []string{"instance", "route", "code"})
)
