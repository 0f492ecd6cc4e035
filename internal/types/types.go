// Package types provides shared types for the tradecache library.
// This package breaks import cycles between pkg/tradecache and internal/cache.
package types

import (
	"context"
	"time"
)

// Tier identifies one level of the cache hierarchy.
type Tier int

const (
	TierL1 Tier = iota + 1
	TierL2
	TierL3
)

func (t Tier) String() string {
	switch t {
	case TierL1:
		return "l1"
	case TierL2:
		return "l2"
	case TierL3:
		return "l3"
	default:
		return "unknown"
	}
}

// ConnectionStatus describes the L2 client connection state machine.
type ConnectionStatus int

const (
	ConnDisconnected ConnectionStatus = iota
	ConnConnecting
	ConnConnected
	ConnError
)

func (s ConnectionStatus) String() string {
	switch s {
	case ConnDisconnected:
		return "disconnected"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry wraps a serialized cache value with the bookkeeping each tier needs.
// Value holds the payload in its uniform wire format (JSON by default).
type Entry struct {
	Key            string        `json:"key"`
	Value          []byte        `json:"value"`
	CreatedAt      time.Time     `json:"createdAt"`
	TTL            time.Duration `json:"ttl"`
	AccessCount    int64         `json:"accessCount"`
	LastAccessedAt time.Time     `json:"lastAccessedAt"`
	SizeBytes      int64         `json:"sizeBytes"`
	Compressed     bool          `json:"compressed"`
}

// ExpiredAt reports whether the entry is past its TTL at the given instant.
// A zero TTL means the entry never expires.
func (e *Entry) ExpiredAt(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) > e.TTL
}

// Touch records a read hit against the entry.
func (e *Entry) Touch(now time.Time) {
	e.AccessCount++
	e.LastAccessedAt = now
}

// AccessPattern tracks per-key read frequency independently of tier storage.
// It drives prefetch eligibility and is pruned after a staleness window.
type AccessPattern struct {
	Count      int64
	LastAccess time.Time
}

// Generator computes the value for a key during prefetch warming.
type Generator func(ctx context.Context, key string) (any, error)

// PrefetchRequest is a batch warming job. Keys already cached count as
// prefetch hits; the generator is invoked only for missing keys.
type PrefetchRequest struct {
	Keys      []string
	Priority  int
	Generator Generator
	TTL       time.Duration
}

// TierMetrics is the per-tier accounting record.
type TierMetrics struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
	Errors  int64 `json:"errors"`

	// Evictions is populated for L1 only (capacity-driven removals,
	// distinct from TTL expiry).
	Evictions int64 `json:"evictions,omitempty"`

	// ConnectionStatus is populated for L2 only.
	ConnectionStatus string `json:"connectionStatus,omitempty"`
}

// HitRate returns hits/(hits+misses), or 0 when the tier saw no lookups.
func (m TierMetrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}

// OverallMetrics aggregates lookups across all enabled tiers.
type OverallMetrics struct {
	TotalHits      int64   `json:"totalHits"`
	TotalMisses    int64   `json:"totalMisses"`
	OverallHitRate float64 `json:"overallHitRate"`
	PrefetchHits   int64   `json:"prefetchHits"`
}

// CacheMetrics is the synchronous snapshot returned by Metrics().
type CacheMetrics struct {
	L1      TierMetrics    `json:"l1"`
	L2      TierMetrics    `json:"l2"`
	L3      TierMetrics    `json:"l3"`
	Overall OverallMetrics `json:"overall"`
}

// SizeInfo reports the cache's current occupancy and tracking state.
type SizeInfo struct {
	L1Size                  int     `json:"l1Size"`
	L1MaxSize               int     `json:"l1MaxSize"`
	UtilizationPercent      float64 `json:"utilizationPercent"`
	AccessPatternCount      int     `json:"accessPatternCount"`
	PrefetchQueueLength     int     `json:"prefetchQueueLength"`
	PrefetchInProgressCount int     `json:"prefetchInProgressCount"`
}
