// Package metrics provides Prometheus metrics for the claim pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "realitycheck"

var (
	// RunsTotal counts pipeline runs by outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	// RunDuration measures full run duration.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// ArticlesFetched counts articles returned by the fetcher.
	ArticlesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_fetched_total",
			Help:      "Total number of articles fetched from feeds",
		},
	)

	// FeedFetches counts feed retrievals by source and outcome.
	FeedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_total",
			Help:      "Total number of feed retrievals",
		},
		[]string{"source", "status"},
	)

	// LLMCalls counts generation calls by stage and outcome.
	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Total number of text generation calls",
		},
		[]string{"stage", "status"},
	)

	// LLMDuration measures generation call latency.
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "Duration of text generation calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// ParseFailures counts model replies that could not be decoded.
	ParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Total number of unusable model replies",
		},
		[]string{"stage"},
	)

	// CandidatesRejected counts validator rejections by rule.
	CandidatesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_rejected_total",
			Help:      "Total number of candidate pairs rejected",
		},
		[]string{"rule"},
	)

	// ClaimsPublished counts persisted pairs by destination.
	ClaimsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_published_total",
			Help:      "Total number of claim pairs persisted",
		},
		[]string{"destination"},
	)
)

// RecordRun records a finished run.
func RecordRun(status string, seconds float64) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(seconds)
}

// RecordFeed records one feed retrieval and the articles it produced.
func RecordFeed(source, status string, articles int) {
	FeedFetches.WithLabelValues(source, status).Inc()
	ArticlesFetched.Add(float64(articles))
}

// RecordLLMCall records one generation call.
func RecordLLMCall(stage, status string, seconds float64) {
	LLMCalls.WithLabelValues(stage, status).Inc()
	LLMDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordParseFailure records an unusable reply.
func RecordParseFailure(stage string) {
	ParseFailures.WithLabelValues(stage).Inc()
}

// RecordRejection records a validator rejection.
func RecordRejection(rule string) {
	CandidatesRejected.WithLabelValues(rule).Inc()
}

// RecordPublished records persisted pairs.
func RecordPublished(destination string, n int) {
	ClaimsPublished.WithLabelValues(destination).Add(float64(n))
}
