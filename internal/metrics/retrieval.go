package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics, recorded at the transport.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbretrieve",
			Name:      "retrieval_requests_total",
			Help:      "Total number of knowledge base retrieval requests",
		},
		[]string{"knowledge_base", "status"},
	)

	RetrievalRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbretrieve",
			Name:      "retrieval_request_duration_seconds",
			Help:      "Knowledge base retrieval request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"knowledge_base"},
	)

	RetrievalResultsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbretrieve",
			Name:      "retrieval_results_returned",
			Help:      "Number of raw results per retrieval response",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"knowledge_base"},
	)

	RetrievalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbretrieve",
			Name:      "retrieval_errors_total",
			Help:      "Total retrieval errors by type",
		},
		[]string{"knowledge_base", "error_type"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once
// from main; the SDK works without registration.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalRequestDuration)
	prometheus.MustRegister(RetrievalResultsReturned)
	prometheus.MustRegister(RetrievalErrorsTotal)
	retrievalMetricsRegistered = true
}
