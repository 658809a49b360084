package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(httpRequestSeconds)
}

var httpRequestSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_seconds",
		Help:    "Admin and health HTTP requests by method, route pattern and status.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
	[]string{"method", "route", "status"},
)

// ObserveHTTPRequest takes the route pattern, never the raw path, to keep
// user ids out of label values.
func ObserveHTTPRequest(method, route string, status int, seconds float64) {
	httpRequestSeconds.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
