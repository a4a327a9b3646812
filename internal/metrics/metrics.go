// Package metrics exposes Prometheus counters for the fetch pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"platform"},
	)

	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_jobs_completed_total",
			Help: "Total number of jobs completed successfully",
		},
		[]string{"platform"},
	)

	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_jobs_failed_total",
			Help: "Total number of jobs that reached the failed state",
		},
		[]string{"platform", "code"},
	)

	JobsRetried = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_jobs_retried_total",
			Help: "Total number of failed attempts that were re-queued",
		},
		[]string{"platform", "code"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gleaner_fetch_duration_seconds",
			Help:    "Wall time of fetcher invocations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	RateLimitDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_rate_limit_denials_total",
			Help: "Total number of claims deferred by the rate limiter",
		},
		[]string{"platform"},
	)

	JobsReclaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gleaner_jobs_reclaimed_total",
			Help: "Total number of jobs reclaimed from crashed workers",
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gleaner_queue_depth",
			Help: "Current number of jobs per status",
		},
		[]string{"status"},
	)
)

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
