// Package observability holds the Prometheus metrics for the grid API.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's instruments. Register them once per process
// with NewMetrics; tests pass their own registry.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	pageFetchDuration prometheus.Histogram
	pageRows          prometheus.Histogram
	searchDuration    prometheus.Histogram
	searchMatches     prometheus.Histogram

	sortCacheHits   prometheus.Counter
	sortCacheMisses prometheus.Counter
}

// NewMetrics creates and registers the instruments against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gridapi_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gridapi_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		pageFetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridapi_page_fetch_duration_seconds",
			Help:    "Time spent assembling one page of view rows",
			Buckets: prometheus.DefBuckets,
		}),
		pageRows: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridapi_page_rows",
			Help:    "Rows returned per page fetch",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		}),
		searchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridapi_search_duration_seconds",
			Help:    "Time spent on a table-wide cell search",
			Buckets: prometheus.DefBuckets,
		}),
		searchMatches: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridapi_search_matches",
			Help:    "Cells matched per search",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000},
		}),
		sortCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridapi_sort_cache_hits_total",
			Help: "Sort ordering cache hits",
		}),
		sortCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridapi_sort_cache_misses_total",
			Help: "Sort ordering cache misses",
		}),
	}
}

// ObservePageFetch records one page assembly. Implements grid.Metrics.
func (m *Metrics) ObservePageFetch(duration time.Duration, rows int) {
	m.pageFetchDuration.Observe(duration.Seconds())
	m.pageRows.Observe(float64(rows))
}

// ObserveSearch records one search. Implements grid.Metrics.
func (m *Metrics) ObserveSearch(duration time.Duration, matches int) {
	m.searchDuration.Observe(duration.Seconds())
	m.searchMatches.Observe(float64(matches))
}

// SortCacheHit and SortCacheMiss feed the sorting resolver's cache
// instrumentation hooks.
func (m *Metrics) SortCacheHit()  { m.sortCacheHits.Inc() }
func (m *Metrics) SortCacheMiss() { m.sortCacheMisses.Inc() }

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, status).Inc()
}
