package cache

import "context"

// Status is a point-in-time view of the cache backend.
type Status struct {
	// Enabled is true when a backend URL is configured and parsed.
	Enabled bool `json:"enabled"`

	// Healthy is true when the cache is enabled and a connection could be
	// checked out and pinged at the time of the call.
	Healthy bool `json:"healthy"`
}

// IsHealthy returns the Healthy flag.
func (s Status) IsHealthy() bool {
	return s.Healthy
}

// String returns "healthy" or "unhealthy".
func (s Status) String() string {
	if s.Healthy {
		return "healthy"
	}
	return "unhealthy"
}

// Status probes the backend. Healthy is only ever true when Enabled is;
// a transient outage flips Healthy without touching Enabled.
func (s *Store) Status(ctx context.Context) Status {
	if s == nil {
		return Status{}
	}

	snap := s.pool.current.Load()
	status := Status{Enabled: snap != nil}
	if status.Enabled {
		status.Healthy = s.pool.probe(ctx, snap) == nil
	}

	CacheEnabled.Set(boolGauge(status.Enabled))
	CacheHealthy.Set(boolGauge(status.Healthy))

	s.logger.Debug().
		Bool("enabled", status.Enabled).
		Bool("healthy", status.Healthy).
		Msg("Cache status")
	return status
}
