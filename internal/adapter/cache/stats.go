// Package cache stores serialized analysis reports keyed by query.
package cache

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats counts cache outcomes for one backend. It is owned by whoever builds
// the cache and handed to it, so callers can report on it directly.
type Stats struct {
	backend string
	counter *prometheus.CounterVec

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
	errors    atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Backend   string  `json:"backend"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Sets      int64   `json:"sets"`
	Evictions int64   `json:"evictions"`
	Errors    int64   `json:"errors"`
	HitRate   float64 `json:"hit_rate"`
}

// NewStats creates a collector for backend. When counter is non-nil each
// event is mirrored into it with labels (backend, result).
func NewStats(backend string, counter *prometheus.CounterVec) *Stats {
	return &Stats{backend: backend, counter: counter}
}

func (s *Stats) Hit() { s.record(&s.hits, "hit") }
func (s *Stats) Miss() { s.record(&s.misses, "miss") }
func (s *Stats) Set() { s.record(&s.sets, "set") }
func (s *Stats) Eviction() { s.record(&s.evictions, "eviction") }
func (s *Stats) Failure() { s.record(&s.errors, "error") }

func (s *Stats) record(n *atomic.Int64, result string) {
	if s == nil {
		return
	}
	n.Add(1)
	if s.counter != nil {
		s.counter.WithLabelValues(s.backend, result).Inc()
	}
}

// Snapshot returns the current counts. A nil Stats yields a zero Snapshot.
func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	snap := Snapshot{
		Backend:   s.backend,
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Sets:      s.sets.Load(),
		Evictions: s.evictions.Load(),
		Errors:    s.errors.Load(),
	}
	if lookups := snap.Hits + snap.Misses; lookups > 0 {
		snap.HitRate = float64(snap.Hits) / float64(lookups)
	}
	return snap
}
