// Prometheus instrumentation for the cache layer.
//
// Lookup outcomes are labeled by key family (note, list, count, ai) and
// result (hit, miss) so dashboards can track per-family hit ratios.
// Cardinality is fixed: neither owners nor keys appear in labels.
package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total cache lookups by key family and outcome.",
		},
		[]string{"family", "result"},
	)

	cacheInvalidations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_owner_invalidations_total",
			Help: "Total owner-scoped cache invalidations.",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups, cacheInvalidations)
}

// observeLookup records one lookup outcome for a key family.
func observeLookup(family string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(family, result).Inc()
}
