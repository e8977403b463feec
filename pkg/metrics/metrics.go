// Package metrics exposes the Prometheus registry shared by the bot.
// All metrics are defined in their respective packages (cache, ddg, bot)
// to maintain modularity and avoid circular dependencies.
//
// This package provides the scrape handler and a reference for all
// available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the bot.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - dinkelberg_cache_hits_total (Counter): Typed reads that decoded a value
//   - dinkelberg_cache_misses_total (Counter): Typed reads that did not resolve to a value
//   - dinkelberg_cache_errors_total{kind} (Counter): Degraded operations (connection_failed, backend, encode, decode, canceled)
//   - dinkelberg_cache_written_bytes_total (Counter): Payload bytes written
//   - dinkelberg_cache_enabled (Gauge): 1 when a backend is configured
//   - dinkelberg_cache_healthy (Gauge): 1 when the last probe succeeded
//
// Search Metrics (pkg/ddg):
//   - dinkelberg_ddg_requests_total{endpoint, status} (Counter): Upstream requests by endpoint and HTTP status
//   - dinkelberg_ddg_request_duration_seconds{endpoint} (Histogram): Upstream request duration
//   - dinkelberg_ddg_errors_total{class} (Counter): Errors by class (client, server, network, decode, token, empty)
//   - dinkelberg_ddg_retries_total{error_class} (Counter): Retry attempts
//   - dinkelberg_ddg_cache_results_total{endpoint, result} (Counter): Cache lookups (hit, miss)
//
// Bot Metrics (pkg/bot):
//   - dinkelberg_commands_total{command, outcome} (Counter): Handled commands
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(dinkelberg_cache_hits_total[5m])) /
//   (sum(rate(dinkelberg_cache_hits_total[5m])) + sum(rate(dinkelberg_cache_misses_total[5m])))
//
//   # Cache Outage
//   dinkelberg_cache_enabled == 1 and dinkelberg_cache_healthy == 0
//
//   # P95 Search Latency
//   histogram_quantile(0.95, rate(dinkelberg_ddg_request_duration_seconds_bucket[5m]))
