package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// maxLabelLen bounds label values derived from external input.
const maxLabelLen = 32

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register queues collectors from each file's init.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister exposes every queued collector on the default registry, which
// promhttp.Handler serves. Later calls are no-ops.
func MustRegister() {
	once.Do(func() { mustRegisterWith(prometheus.DefaultRegisterer) })
}

func mustRegisterWith(reg prometheus.Registerer) {
	if len(collectors) > 0 {
		reg.MustRegister(collectors...)
	}
}

func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}
