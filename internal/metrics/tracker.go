// Package metrics provides cache metrics collection and publishing.
package metrics

import (
	"sync/atomic"

	"github.com/southerncoder/tradecache/internal/types"
)

// tierCounters holds one tier's accounting. Counters are atomics so tier
// adapters and the orchestrator can bump them without a shared lock.
type tierCounters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	errors    atomic.Int64
	evictions atomic.Int64
}

func (c *tierCounters) snapshot() types.TierMetrics {
	return types.TierMetrics{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Deletes:   c.deletes.Load(),
		Errors:    c.errors.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (c *tierCounters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
	c.deletes.Store(0)
	c.errors.Store(0)
	c.evictions.Store(0)
}

// Tracker accumulates per-tier counters and produces CacheMetrics snapshots.
// It is mutated only by the owning cache; external callers read snapshots.
type Tracker struct {
	l1 tierCounters
	l2 tierCounters
	l3 tierCounters

	prefetchHits       atomic.Int64
	prefetchCandidates atomic.Int64
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) tier(tier types.Tier) *tierCounters {
	switch tier {
	case types.TierL1:
		return &t.l1
	case types.TierL2:
		return &t.l2
	default:
		return &t.l3
	}
}

func (t *Tracker) RecordHit(tier types.Tier)      { t.tier(tier).hits.Add(1) }
func (t *Tracker) RecordMiss(tier types.Tier)     { t.tier(tier).misses.Add(1) }
func (t *Tracker) RecordSet(tier types.Tier)      { t.tier(tier).sets.Add(1) }
func (t *Tracker) RecordDelete(tier types.Tier)   { t.tier(tier).deletes.Add(1) }
func (t *Tracker) RecordError(tier types.Tier)    { t.tier(tier).errors.Add(1) }
func (t *Tracker) RecordEviction(tier types.Tier) { t.tier(tier).evictions.Add(1) }

func (t *Tracker) RecordPrefetchHit()       { t.prefetchHits.Add(1) }
func (t *Tracker) RecordPrefetchCandidate() { t.prefetchCandidates.Add(1) }

// PrefetchCandidates reports how many times a key crossed the prefetch
// eligibility threshold. Exposed as a hint; nothing is scheduled from it.
func (t *Tracker) PrefetchCandidates() int64 {
	return t.prefetchCandidates.Load()
}

// Snapshot assembles the externally visible metrics record. The L2
// connection status is stamped by the caller, which owns the adapter.
func (t *Tracker) Snapshot(l2Status types.ConnectionStatus) types.CacheMetrics {
	m := types.CacheMetrics{
		L1: t.l1.snapshot(),
		L2: t.l2.snapshot(),
		L3: t.l3.snapshot(),
	}
	m.L2.ConnectionStatus = l2Status.String()
	m.L2.Evictions = 0
	m.L3.Evictions = 0

	m.Overall.TotalHits = m.L1.Hits + m.L2.Hits + m.L3.Hits
	m.Overall.TotalMisses = m.L1.Misses + m.L2.Misses + m.L3.Misses
	m.Overall.PrefetchHits = t.prefetchHits.Load()

	total := m.Overall.TotalHits + m.Overall.TotalMisses
	if total > 0 {
		m.Overall.OverallHitRate = float64(m.Overall.TotalHits) / float64(total)
	}

	return m
}

// Reset zeroes every counter. Used by Clear.
func (t *Tracker) Reset() {
	t.l1.reset()
	t.l2.reset()
	t.l3.reset()
	t.prefetchHits.Store(0)
	t.prefetchCandidates.Store(0)
}
