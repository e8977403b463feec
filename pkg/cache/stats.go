package cache

import "sync/atomic"

// Stats counts typed reads. Counters only grow.
type Stats struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Hits returns the number of cache hits.
func (s *Stats) Hits() uint64 {
	return s.hits.Load()
}

// Misses returns the number of cache misses.
func (s *Stats) Misses() uint64 {
	return s.misses.Load()
}

// Snapshot returns both counters.
// The two loads are independent; a concurrent read may land between them.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
}

// HitRatio returns hits / (hits + misses), or 0 before the first read.
func (s StatsSnapshot) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s *Stats) hit() {
	s.hits.Add(1)
	CacheHits.Inc()
}

func (s *Stats) miss() {
	s.misses.Add(1)
	CacheMisses.Inc()
}
