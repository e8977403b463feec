package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks typed reads that decoded a value
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dinkelberg_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMisses tracks typed reads that did not resolve to a value
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dinkelberg_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheErrors tracks degraded operations by kind
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinkelberg_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"kind"}, // "connection_failed", "backend", "encode", "decode", "canceled"
	)

	// CacheWrittenBytes tracks payload bytes sent to the backend
	CacheWrittenBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dinkelberg_cache_written_bytes_total",
			Help: "Total number of payload bytes written to the cache",
		},
	)

	// CacheEnabled reflects the last computed status
	CacheEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dinkelberg_cache_enabled",
			Help: "1 when a cache backend is configured",
		},
	)

	// CacheHealthy reflects the last computed status
	CacheHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dinkelberg_cache_healthy",
			Help: "1 when the cache backend answered the last health probe",
		},
	)
)

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
