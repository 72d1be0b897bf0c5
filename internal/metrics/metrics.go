// Package metrics holds the Prometheus collectors of the ingestion pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financeshub_runs_total",
			Help: "Total number of ingestion runs by final status",
		},
		[]string{"trigger", "status"},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "financeshub_last_run_timestamp_seconds",
			Help: "Unix time the last ingestion run finished",
		},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financeshub_jobs_total",
			Help: "Total number of jobs executed by category and status",
		},
		[]string{"category", "status"},
	)

	EnvelopesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financeshub_envelopes_total",
			Help: "Total number of envelopes fetched and injected",
		},
		[]string{"category"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "financeshub_job_duration_seconds",
			Help:    "Duration of one job (fetch plus inject) in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"category"},
	)
)

func ObserveJob(category, status string, envelopes int, took time.Duration) {
	JobsTotal.WithLabelValues(category, status).Inc()
	JobDuration.WithLabelValues(category).Observe(took.Seconds())
	if envelopes > 0 {
		EnvelopesTotal.WithLabelValues(category).Add(float64(envelopes))
	}
}

func ObserveRun(trigger, status string, at time.Time) {
	RunsTotal.WithLabelValues(trigger, status).Inc()
	LastRunTimestamp.Set(float64(at.Unix()))
}
