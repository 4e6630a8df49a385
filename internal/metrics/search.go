package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "search_requests_total",
			Help:      "Search requests by outcome",
		},
		[]string{"outcome"}, // ok / rate_limited / error
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"cached"},
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "search_cache_total",
			Help:      "Result cache lookups",
		},
		[]string{"result"}, // hit / miss / error
	)

	SearchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Name:      "search_candidates",
			Help:      "Candidates scanned per ranked computation",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Name:      "search_results",
			Help:      "Ranked results per computation",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	DocumentsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "documents_ingested_total",
			Help:      "Documents inserted by source",
		},
		[]string{"source"}, // api / crawler
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search and ingest metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		SearchRequestsTotal,
		SearchDuration,
		SearchCacheTotal,
		SearchCandidates,
		SearchResults,
		DocumentsIngestedTotal,
	)
	searchMetricsRegistered = true
}
