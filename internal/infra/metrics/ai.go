package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiCallsTotal,
		aiCallsLatencyMs,
		aiRetriesTotal,
		aiPromptTokens,
	)
}

var (
	aiCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_calls_total",
			Help: "Generative backend calls by model family and outcome.",
		},
		[]string{"family", "outcome"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 30000, 60000},
		},
		[]string{"family", "success"},
	)

	aiRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_retries_total",
			Help: "Retried backend attempts by HTTP status.",
		},
		[]string{"status"},
	)

	aiPromptTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_prompt_tokens",
			Help:    "Estimated prompt tokens sent per call after trimming.",
			Buckets: []float64{64, 128, 256, 512, 1024, 2048, 4096, 8192},
		},
	)
)

// ObserveAICall records the final outcome of one Complete call.
func ObserveAICall(family, outcome string, latencyMs int64, success bool) {
	aiCallsTotal.WithLabelValues(norm(family), norm(outcome)).Inc()
	aiCallsLatencyMs.WithLabelValues(norm(family), strconv.FormatBool(success)).Observe(float64(latencyMs))
}

func IncAIRetry(status int) {
	aiRetriesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

func ObservePromptTokens(n int) {
	aiPromptTokens.Observe(float64(n))
}
