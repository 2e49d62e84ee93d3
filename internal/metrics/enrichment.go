package metrics

import "github.com/prometheus/client_golang/prometheus"

// Enrichment Prometheus metrics.
var (
	EnrichmentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripnote",
			Name:      "enrichment_requests_total",
			Help:      "Total number of enrichment calls by outcome",
		},
		[]string{"model", "outcome"}, // outcome: success / error / timeout / rate_limited / malformed
	)

	EnrichmentRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tripnote",
			Name:      "enrichment_request_duration_seconds",
			Help:      "Enrichment call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EnrichmentTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripnote",
			Name:      "enrichment_tokens_total",
			Help:      "Tokens consumed by enrichment calls",
		},
		[]string{"model"},
	)

	EnrichmentCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripnote",
			Name:      "enrichment_cache_total",
			Help:      "Enrichment cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	// EnrichmentFallbackTotal counts searches where enrichment failed and local results were kept.
	EnrichmentFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tripnote",
			Name:      "enrichment_fallback_total",
			Help:      "Searches that fell back to local results after an enrichment failure",
		},
	)
)

var enrichMetricsRegistered bool

// RegisterEnrichmentMetrics registers enrichment metrics. Must be called once from main.
func RegisterEnrichmentMetrics() {
	if enrichMetricsRegistered {
		return
	}
	prometheus.MustRegister(EnrichmentRequestsTotal)
	prometheus.MustRegister(EnrichmentRequestDuration)
	prometheus.MustRegister(EnrichmentTokensTotal)
	prometheus.MustRegister(EnrichmentCacheTotal)
	prometheus.MustRegister(EnrichmentFallbackTotal)
	enrichMetricsRegistered = true
}
