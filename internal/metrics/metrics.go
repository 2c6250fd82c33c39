// Package metrics holds the process-wide Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookmark_server"

var (
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns by terminal outcome.",
		},
		[]string{"outcome"},
	)

	ChatDeltasTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "deltas_total",
			Help:      "Non-empty answer fragments forwarded to clients.",
		},
	)

	RetrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Embedding plus vector search latency for chat context.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Bookmark ingestions by source kind and result.",
		},
		[]string{"kind", "result"},
	)

	IngestChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Chunks written to the vector index.",
		},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-owner limiter.",
		},
		[]string{"route"},
	)
)

// ObserveRetrieval records one retrieval latency sample.
func ObserveRetrieval(d time.Duration) { RetrievalDuration.Observe(d.Seconds()) }
