package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding provider metrics. Provider-level series are recorded by the transports,
// throttle/breaker series by the instrumented decorator.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Provider calls by status",
		},
		[]string{"provider", "model", "status"}, // success / error
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Provider call latency for successful calls",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingInputsPerRequest = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Subsystem: "embedding",
			Name:      "inputs_per_request",
			Help:      "Texts sent in one provider call",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 256},
		},
		[]string{"provider"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Subsystem: "embedding",
			Name:      "tokens_total",
			Help:      "Tokens billed by the provider",
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Subsystem: "embedding",
			Name:      "errors_total",
			Help:      "Embedding failures by kind",
		},
		[]string{"provider", "model", "kind"}, // api_error / count_mismatch / bad_index / throttled / circuit_open
	)

	EmbeddingBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "docsearch",
			Subsystem: "embedding",
			Name:      "breaker_state",
			Help:      "0 closed, 1 half-open, 2 open",
		},
		[]string{"provider"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Subsystem: "embedding",
			Name:      "cache_lookups_total",
			Help:      "Embedding cache lookups",
		},
		[]string{"result"}, // hit / miss
	)
)

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers the embedding series. Must be called once from main.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingInputsPerRequest,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingBreakerState,
		EmbeddingCacheTotal,
	)
	embMetricsRegistered = true
}
