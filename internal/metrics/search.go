// Package metrics exposes Prometheus instrumentation for search and HTTP traffic.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeFailure  = "failure"
	OutcomeSkipped  = "skipped"
)

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "furrow",
			Name:      "search_requests_total",
			Help:      "Total number of search requests by answering path and outcome",
		},
		[]string{"source", "outcome"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "furrow",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds by answering path",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
		[]string{"source"},
	)

	EngineErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "furrow",
			Name:      "engine_errors_total",
			Help:      "Primary search engine failures by kind",
		},
		[]string{"kind"},
	)

	IndexedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "furrow",
			Name:      "indexed_documents_total",
			Help:      "Documents written to the search index by content type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(EngineErrorsTotal)
	prometheus.MustRegister(IndexedDocumentsTotal)
}
