package firewall

import "sync/atomic"

// Stats counts gate activity.
type Stats struct {
	Lookups         atomic.Uint64
	LookupsBlocked  atomic.Uint64
	Connects        atomic.Uint64
	ConnectsBlocked atomic.Uint64
	CacheHits       atomic.Uint64
	Backfills       atomic.Uint64
	Reloads         atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Lookups         uint64 `json:"lookups"`
	LookupsBlocked  uint64 `json:"lookups_blocked"`
	Connects        uint64 `json:"connects"`
	ConnectsBlocked uint64 `json:"connects_blocked"`
	CacheHits       uint64 `json:"cache_hits"`
	Backfills       uint64 `json:"backfills"`
	Reloads         uint64 `json:"reloads"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Lookups:         s.Lookups.Load(),
		LookupsBlocked:  s.LookupsBlocked.Load(),
		Connects:        s.Connects.Load(),
		ConnectsBlocked: s.ConnectsBlocked.Load(),
		CacheHits:       s.CacheHits.Load(),
		Backfills:       s.Backfills.Load(),
		Reloads:         s.Reloads.Load(),
	}
}
