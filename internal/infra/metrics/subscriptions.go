package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsGrantedTotal,
		remindersSentTotal,
		usageDeniedTotal,
	)
}

var (
	subscriptionsGrantedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_granted_total",
			Help: "Subscription grants and extensions.",
		},
	)

	remindersSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_reminders_sent_total",
			Help: "Expiry reminders sent by kind (1d/2d).",
		},
		[]string{"kind"},
	)

	usageDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "usage_denied_total",
			Help: "Turns refused by the free-tier usage gate.",
		},
	)
)

func IncSubscriptionGranted() { subscriptionsGrantedTotal.Inc() }

func IncReminderSent(kind string) {
	remindersSentTotal.WithLabelValues(norm(kind)).Inc()
}

func IncUsageDenied() { usageDeniedTotal.Inc() }
