// Package metrics holds the Prometheus collectors for ingestion and retrieval.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "edurag"

var (
	// DocumentsProcessed counts finished pipeline runs.
	// Labels: outcome (completed, error)
	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_processed_total",
			Help:      "Documents that reached a terminal processing state",
		},
		[]string{"outcome"},
	)

	ChunksWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_written_total",
			Help:      "Chunks persisted to the vector index",
		},
	)

	// EmbeddingCalls counts provider calls made by the embedding generator.
	// Labels: result (success, retry, error)
	EmbeddingCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "calls_total",
			Help:      "Embedding provider calls by result",
		},
		[]string{"result"},
	)

	// Retrievals counts RetrieveContext outcomes.
	// Labels: outcome (context, empty_index, no_match, failed)
	Retrievals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Retrieval requests by outcome",
		},
		[]string{"outcome"},
	)

	RetrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Duration of RetrieveContext calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

const (
	OutcomeCompleted = "completed"
	OutcomeError     = "error"

	ResultSuccess = "success"
	ResultRetry   = "retry"
	ResultError   = "error"

	RetrievalWithContext = "context"
	RetrievalEmptyIndex  = "empty_index"
	RetrievalNoMatch     = "no_match"
	RetrievalFailed      = "failed"
)
