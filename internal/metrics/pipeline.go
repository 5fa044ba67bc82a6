package metrics

import "github.com/prometheus/client_golang/prometheus"

// Queue, worker, search and rerank metrics.
var (
	BrokerPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_publish_total",
			Help:      "Lifecycle events published by event and status",
		},
		[]string{"event", "status"},
	)

	WorkerMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_messages_total",
			Help:      "Messages handled by workers by queue and outcome",
		},
		[]string{"queue", "outcome"}, // indexed / skipped / failed
	)

	WorkerProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_processing_duration_seconds",
			Help:      "Time from dequeue to terminal state",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"queue"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Similarity queries by status",
		},
		[]string{"status"}, // ok / degraded
	)

	SearchHydrationMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_hydration_misses_total",
			Help:      "Index hits dropped because the canonical record could not be loaded",
		},
	)

	RerankOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_outcomes_total",
			Help:      "Re-ranking outcomes by fallback cause (ok when the model answered)",
		},
		[]string{"cause"},
	)

	RerankGenerateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rerank_generate_duration_seconds",
			Help:      "Generative model call duration",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers queue, worker, search and rerank metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(BrokerPublishTotal)
	prometheus.MustRegister(WorkerMessagesTotal)
	prometheus.MustRegister(WorkerProcessingDuration)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchHydrationMissesTotal)
	prometheus.MustRegister(RerankOutcomesTotal)
	prometheus.MustRegister(RerankGenerateDuration)
	pipelineMetricsRegistered = true
}
