package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		updatesTotal,
		updateHandleSeconds,
		pollErrorsTotal,
		dedupStoreErrorsTotal,
		floodBlockedTotal,
	)
}

var (
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updates_total",
			Help: "Inbound updates by kind and dispatch result (handled/duplicate/ignored/failed).",
		},
		[]string{"kind", "result"},
	)

	updateHandleSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "update_handle_seconds",
			Help:    "Time spent dispatching one update.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	pollErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_errors_total",
			Help: "Update fetch failures by class (conflict/transient).",
		},
		[]string{"class"},
	)

	dedupStoreErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_store_errors_total",
			Help: "Dedup ledger writes that failed and were treated as new updates.",
		},
	)

	floodBlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flood_blocked_total",
			Help: "Messages dropped by the per-user flood guard.",
		},
	)
)

func IncUpdate(kind, result string) {
	updatesTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}

func ObserveUpdateHandle(kind string, seconds float64) {
	updateHandleSeconds.WithLabelValues(norm(kind)).Observe(seconds)
}

func IncPollError(class string) {
	pollErrorsTotal.WithLabelValues(norm(class)).Inc()
}

func IncDedupStoreError() { dedupStoreErrorsTotal.Inc() }

func IncFloodBlocked() { floodBlockedTotal.Inc() }
