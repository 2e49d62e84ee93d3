package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and index Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripnote",
			Name:      "search_requests_total",
			Help:      "Total number of search calls",
		},
		[]string{"entry", "status"}, // entry: search / semantic / suggest
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tripnote",
			Name:      "search_duration_seconds",
			Help:      "Search call duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1, 5},
		},
		[]string{"entry"},
	)

	SearchCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripnote",
			Name:      "search_candidates_total",
			Help:      "Candidates produced per retrieval tier",
		},
		[]string{"tier"},
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripnote",
			Name:      "search_cache_total",
			Help:      "Local result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	IndexRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tripnote",
			Name:      "index_rebuild_duration_seconds",
			Help:      "Index rebuild duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	IndexEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tripnote",
			Name:      "index_entries",
			Help:      "Indexed records per collection",
		},
		[]string{"collection"},
	)

	CollectionLoadFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripnote",
			Name:      "collection_load_failures_total",
			Help:      "Collections that failed to load during an index rebuild",
		},
		[]string{"collection"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search and index metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchCandidatesTotal)
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(IndexRebuildDuration)
	prometheus.MustRegister(IndexEntries)
	prometheus.MustRegister(CollectionLoadFailuresTotal)
	searchMetricsRegistered = true
}
