// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_runs_total",
			Help: "Reconciliation runs by final status",
		},
		[]string{"status"},
	)

	// ReconcileRows counts legacy asset rows by outcome: resolved,
	// unresolved, invalid or ambiguous. A row has exactly one outcome.
	ReconcileRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_rows_total",
			Help: "Legacy asset rows processed by outcome",
		},
		[]string{"outcome"},
	)

	ReconcileStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reconcile_stage_duration_seconds",
			Help:    "Duration of each stage query",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"stage"},
	)

	ReconcileCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_cache_lookups_total",
			Help: "Catalog resolution cache lookups by result",
		},
		[]string{"result"},
	)
)
