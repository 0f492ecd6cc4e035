package tradecache

import (
	"github.com/southerncoder/tradecache/internal/cache"
	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/types"
)

type (
	// Option configures a cache during construction.
	Option = cache.Option
	// OptimizeResult summarizes one maintenance pass.
	OptimizeResult = cache.OptimizeResult
	// Entry represents a cached value with tier bookkeeping.
	Entry = types.Entry
	// PrefetchRequest is a batch warming job.
	PrefetchRequest = types.PrefetchRequest
	// Generator computes the value for a key during prefetch warming.
	Generator = types.Generator
	// CacheMetrics is the synchronous snapshot returned by Metrics.
	CacheMetrics = types.CacheMetrics
	// TierMetrics is the per-tier accounting record.
	TierMetrics = types.TierMetrics
	// SizeInfo reports occupancy and tracking state.
	SizeInfo = types.SizeInfo
	// Event is the payload delivered to subscribers.
	Event = types.Event
	// EventType enumerates the lifecycle events a cache emits.
	EventType = types.EventType
	// EventHandler is invoked synchronously on the publishing goroutine.
	EventHandler = types.EventHandler
	// EventSink receives lifecycle events for external observers.
	EventSink = types.EventSink
	// PersistentStore is the pluggable L3 contract.
	PersistentStore = types.PersistentStore
	// Serializer converts cache values to and from their wire format.
	Serializer = types.Serializer
	// SetOption adjusts one Set operation.
	SetOption = types.SetOption
)

const (
	// EventSet fires after a successful write.
	EventSet = types.EventSet
	// EventEvicted fires when L1 removes an entry to make room.
	EventEvicted = types.EventEvicted
	// EventDeleted fires after an explicit delete removed something.
	EventDeleted = types.EventDeleted
	// EventCleared fires after Clear.
	EventCleared = types.EventCleared
	// EventMetricsUpdated carries a periodic metrics snapshot.
	EventMetricsUpdated = types.EventMetricsUpdated
	// EventOptimized fires after a maintenance pass.
	EventOptimized = types.EventOptimized
	// EventPrefetchCandidate fires when a key crosses the access threshold.
	EventPrefetchCandidate = types.EventPrefetchCandidate
)

// Profile names accepted by ForProfile.
const (
	ProfileNews         = config.ProfileNews
	ProfileSocial       = config.ProfileSocial
	ProfileFundamentals = config.ProfileFundamentals
	ProfileMarketData   = config.ProfileMarketData
)

// WithTTL sets the entry TTL for one Set operation.
var WithTTL = types.WithTTL

// Construction options re-exported from the cache package.
var (
	WithLogger           = cache.WithLogger
	WithSerializer       = cache.WithSerializer
	WithPersistentStore  = cache.WithPersistentStore
	WithEventSinks       = cache.WithEventSinks
	WithMetricsPublisher = cache.WithMetricsPublisher
)
