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

	// PersonalizationOutcomes counts engine results by source: computed, cached, fixture or skipped.
	PersonalizationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalization_outcomes_total",
			Help: "Personalization results by outcome",
		},
		[]string{"outcome"},
	)

	ResultCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalization_cache_lookups_total",
			Help: "Result cache lookups by backend and result (hit/miss/error)",
		},
		[]string{"backend", "result"},
	)

	RelevanceScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "personalization_relevance_score",
			Help:    "Distribution of computed relevance scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	AlertsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impact_alerts_dispatched_total",
			Help: "Impact alert notifications by channel and status",
		},
		[]string{"channel", "status"},
	)
)

// Outcome labels for PersonalizationOutcomes.
const (
	OutcomeComputed = "computed"
	OutcomeCached   = "cached"
	OutcomeFixture  = "fixture"
	OutcomeSkipped  = "skipped"
)
