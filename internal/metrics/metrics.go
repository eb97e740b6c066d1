// Package metrics defines Prometheus collectors for ingestion and query paths.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ChunksIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "paperbase",
			Name:      "chunks_ingested_total",
			Help:      "Total number of chunks stored during ingestion",
		},
	)

	IngestFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperbase",
			Name:      "ingest_files_total",
			Help:      "Total number of PDF files processed, by outcome",
		},
		[]string{"status"}, // "ok" / "failed"
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperbase",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"status"}, // "success" / "error"
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperbase",
			Name:      "queries_total",
			Help:      "Total number of retrieval queries",
		},
		[]string{"status"}, // "success" / "error"
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "paperbase",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query handling duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

var registered bool

// Register registers all Paperbase metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(ChunksIngestedTotal)
	prometheus.MustRegister(IngestFilesTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDuration)
	registered = true
}
