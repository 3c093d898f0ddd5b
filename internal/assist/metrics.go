// Prometheus instrumentation for the assist orchestrator.
package assist

import "github.com/prometheus/client_golang/prometheus"

// assistRequests counts assist outcomes by kind and the backend that served
// them (cache, primary, fallback, or failed). Both label sets are small and
// fixed, keeping cardinality bounded.
var assistRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "assist_requests_total",
		Help: "Total assist requests by operation kind and serving source.",
	},
	[]string{"kind", "source"},
)

func init() {
	prometheus.MustRegister(assistRequests)
}

// observeOutcome records one completed (or failed) assist request.
func observeOutcome(kind Kind, source string) {
	assistRequests.WithLabelValues(string(kind), source).Inc()
}
