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

	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_turns_processed_total",
			Help: "Total number of conversation turns processed",
		},
		[]string{"outcome"},
	)

	EvidenceProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_evidence_processed_total",
			Help: "Total number of evidence units processed",
		},
		[]string{"kind", "result"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_events_published_total",
			Help: "Total number of events published by topic",
		},
		[]string{"topic"},
	)

	CardsAssembled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_bid_cards_assembled_total",
			Help: "Total number of bid cards assembled by status",
		},
		[]string{"status"},
	)
)
