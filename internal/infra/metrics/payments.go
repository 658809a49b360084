package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		precheckRejectsTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Purchase intents by status transition (invoice/precheck/paid/failed).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_minor_total",
			Help: "Total value of successful payments in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)

	precheckRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "precheck_rejects_total",
			Help: "Rejected pre-checkout queries by reason code.",
		},
		[]string{"reason"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

// IncPrecheckReject takes the reason prefix only, so values such as
// "currency_USD" collapse to "currency".
func IncPrecheckReject(reason string) {
	precheckRejectsTotal.WithLabelValues(norm(reason)).Inc()
}
