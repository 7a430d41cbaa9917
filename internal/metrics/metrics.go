package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query paths.
const (
	PathMap  = "map"
	PathList = "list"
	PathTags = "tags"
)

var (
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explorer_cache_hits_total",
		Help: "Coordinate cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explorer_cache_misses_total",
		Help: "Coordinate cache misses",
	})
	EmptyPlansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_empty_plans_total",
		Help: "Searches short-circuited to an empty result without querying storage",
	}, []string{"reason"})
	QueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "explorer_query_duration_ms",
		Help:    "Storage query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	}, []string{"path"})
	StorageErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_storage_errors_total",
		Help: "Failed storage queries",
	}, []string{"path"})
)

func init() {
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(EmptyPlansTotal)
	prometheus.MustRegister(QueryDurationMs)
	prometheus.MustRegister(StorageErrorsTotal)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
