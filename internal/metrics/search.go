package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search, indexing and query log Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests by requested and executed strategy",
		},
		[]string{"requested", "executed"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"executed"},
	)

	// SearchDegradedTotal counts failures absorbed by the search path.
	SearchDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_degraded_total",
			Help:      "Failures absorbed by the search path, by stage and reason",
		},
		[]string{"stage", "reason"},
	)

	IndexedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_documents_total",
			Help:      "Indexed content units by content type and final state",
		},
		[]string{"content_type", "state"},
	)

	IndexJobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_job_duration_seconds",
			Help:      "Indexing job duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"job"},
	)

	QueryLogTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_log_records_total",
			Help:      "Query log records by outcome",
		},
		[]string{"outcome"}, // "written" / "dropped" / "failed" / "trimmed"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search, indexing and query log metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		SearchRequestsTotal,
		SearchDuration,
		SearchDegradedTotal,
		IndexedDocumentsTotal,
		IndexJobDuration,
		QueryLogTotal,
	)
	searchMetricsRegistered = true
}
