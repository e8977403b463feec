// Package cache provides a fail-soft caching layer with a Redis backend.
//
// The store memoizes expensive external calls and keeps short-lived
// per-conversation state. It is advisory: no operation ever returns an
// error to the caller. Every fault (missing configuration, unreachable
// backend, encoding problems) degrades to a miss or a no-op.
//
// - Lazy connection pool built from a single optional URL
// - Runtime enable/disable/reinitialize without blocking readers
// - Typed get/setex for memoized values (fixed TTL, default 12h)
// - Scoped get/set for per-conversation state (no expiry)
// - Hit/miss statistics and active health probing
// - Prometheus metrics and OpenTelemetry spans
//
// # Basic Usage
//
//	store := cache.New(cache.DefaultConfig(os.Getenv("REDIS_URL")), logger)
//	defer store.Close()
//
//	if res, ok := cache.Get[ImageResponse](ctx, store, query); ok {
//		return res, nil
//	}
//	res := fetch(query)
//	cache.Setex(ctx, store, query, res)
//
// # Scoped State
//
//	cache.SetScoped(ctx, store, chatID, images)
//	images, ok := cache.GetScoped[ImageResponse](ctx, store, chatID)
//
// # Keys
//
// Plain entries are stored under "{type}.{id}" and scoped entries under
// "scope.{scope}.{type}". The type part comes from TypeID and is stable
// across process runs.
//
// # Diagnostics
//
// Lookup, LookupScoped, Save and SaveScoped run the same operations but
// return a *Error whose Kind tells why the operation degraded.
//
// # Metrics
//
//   - dinkelberg_cache_hits_total - Typed reads that decoded a value
//   - dinkelberg_cache_misses_total - Typed reads that did not
//   - dinkelberg_cache_errors_total{kind} - Failures by kind
//   - dinkelberg_cache_written_bytes_total - Payload bytes written
//   - dinkelberg_cache_enabled / dinkelberg_cache_healthy - Last status
package cache
