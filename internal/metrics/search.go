package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmsearch",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"index", "status"},
	)

	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cmsearch",
			Name:      "search_stage_duration_seconds",
			Help:      "Search stage duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"index", "stage"}, // "engine" / "filter" / "highlight"
	)

	SearchCandidatesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmsearch",
			Name:      "search_candidates_dropped_total",
			Help:      "Candidates dropped while assembling a page",
		},
		[]string{"index", "reason"}, // "denied" / "error"
	)

	SearchFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmsearch",
			Name:      "search_fallbacks_total",
			Help:      "Pages clamped to the last available page",
		},
		[]string{"index"},
	)

	SearchHighlightFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmsearch",
			Name:      "search_highlight_failures_total",
			Help:      "Highlight requests that failed and were skipped",
		},
		[]string{"index"},
	)

	SearchLimitViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmsearch",
			Name:      "search_limit_violations_total",
			Help:      "Requests rejected by an index limit",
		},
		[]string{"index", "constraint"},
	)

	SearchBackgroundLaneWaiting = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cmsearch",
			Name:      "search_background_lane_waiting",
			Help:      "Searches waiting for a background lane slot",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchStageDuration)
	prometheus.MustRegister(SearchCandidatesDropped)
	prometheus.MustRegister(SearchFallbacksTotal)
	prometheus.MustRegister(SearchHighlightFailures)
	prometheus.MustRegister(SearchLimitViolations)
	prometheus.MustRegister(SearchBackgroundLaneWaiting)
	searchMetricsRegistered = true
}
