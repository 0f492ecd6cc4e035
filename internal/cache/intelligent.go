// Package cache implements the tiered cache: an in-process LRU (L1) over a
// shared Redis (L2) over a pluggable persistent store (L3), with access
// pattern tracking and prefetch warming on top.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/metrics"
	"github.com/southerncoder/tradecache/internal/types"
)

// Option configures an IntelligentCache during construction.
type Option func(*IntelligentCache)

// WithLogger sets the base logger. Components derive their own from it.
func WithLogger(logger *slog.Logger) Option {
	return func(c *IntelligentCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSerializer replaces the default JSON serializer.
func WithSerializer(s types.Serializer) Option {
	return func(c *IntelligentCache) {
		if s != nil {
			c.serializer = s
		}
	}
}

// WithPersistentStore injects an L3 backend, overriding whatever the
// configuration would have built.
func WithPersistentStore(store types.PersistentStore) Option {
	return func(c *IntelligentCache) {
		c.store = store
	}
}

// WithEventSinks attaches external event consumers.
func WithEventSinks(sinks ...types.EventSink) Option {
	return func(c *IntelligentCache) {
		c.sinks = append(c.sinks, sinks...)
	}
}

// WithMetricsPublisher attaches an external metrics backend, published on
// the configured metrics interval.
func WithMetricsPublisher(pub metrics.Publisher) Option {
	return func(c *IntelligentCache) {
		c.publisher = pub
	}
}

// withClock pins time for tests.
func withClock(now func() time.Time) Option {
	return func(c *IntelligentCache) {
		c.now = now
	}
}

// OptimizeResult summarizes one maintenance pass.
type OptimizeResult struct {
	ExpiredRemoved  int `json:"expiredRemoved"`
	PatternsPruned  int `json:"patternsPruned"`
	PrefetchWarmed  int `json:"prefetchWarmed"`
	PrefetchSkipped int `json:"prefetchSkipped"`
}

// IntelligentCache coordinates the three tiers. Reads walk L1, L2, L3 in
// order, promoting hits back up so the next read is served closer. Writes
// land on every enabled tier independently; a tier failure degrades that
// tier without failing the operation that could still be served elsewhere.
type IntelligentCache struct {
	name       string
	config     *config.Config
	logger     *slog.Logger
	serializer types.Serializer

	l1    types.MemoryTier
	l2    types.DistributedTier
	store types.PersistentStore

	tracker    *metrics.Tracker
	hub        *types.EventHub
	sinks      []types.EventSink
	publisher  metrics.Publisher
	background *metrics.BackgroundPublisher
	prefetcher *Prefetcher

	patternMu sync.Mutex
	patterns  map[string]*types.AccessPattern

	now       func() time.Time
	destroyed atomic.Bool
}

// New builds a cache from configuration. Tier construction failures are not
// fatal: a tier that cannot start is disabled with a warning and the rest
// of the cache keeps working.
func New(cfg *config.Config, opts ...Option) (*IntelligentCache, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &IntelligentCache{
		name:       cfg.Name,
		config:     cfg,
		logger:     slog.Default(),
		serializer: NewJSONSerializer(),
		tracker:    metrics.NewTracker(),
		patterns:   make(map[string]*types.AccessPattern),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("cache", cfg.Name)
	c.hub = types.NewEventHub(c.sinks...)

	c.buildTiers()

	c.prefetcher = NewPrefetcher(cfg.Prefetch, c.contains, c.storePrefetched, c.logger)

	if cfg.Performance.EnableMetrics && cfg.Performance.MetricsInterval > 0 {
		c.background = metrics.NewBackgroundPublisher(
			cfg.Name, c.publisher, c.hub, cfg.Performance.MetricsInterval, c.Metrics, c.logger,
		)
		c.background.Start(context.Background())
	}

	c.logger.Info("Cache initialized",
		"l1_enabled", cfg.L1.Enabled,
		"l2_enabled", cfg.L2.Enabled,
		"l3_enabled", cfg.L3.Enabled,
		"prefetch_enabled", cfg.Prefetch.Enabled,
	)

	return c, nil
}

func (c *IntelligentCache) buildTiers() {
	cfg := c.config

	if cfg.L1.Enabled {
		mc := NewMemoryCache(cfg.L1, c.onEvict, c.logger)
		mc.now = c.now
		c.l1 = mc
	} else {
		c.l1 = DisabledMemory{}
	}

	c.l2 = types.DistributedTier(DisabledDistributed{})
	if cfg.L2.Enabled {
		if cfg.L2.Address == "" {
			c.logger.Warn("L2 enabled without an address, tier disabled")
		} else if l2, err := NewRedisCache(cfg.L2, c.logger); err != nil {
			c.logger.Warn("L2 initialization failed, tier disabled", "error", err)
		} else {
			c.l2 = l2
		}
	}

	if c.store == nil && cfg.L3.Enabled {
		switch {
		case cfg.L3.Directory != "":
			store, err := NewFileStore(cfg.L3, c.logger)
			if err != nil {
				c.logger.Warn("L3 file store initialization failed, tier disabled", "error", err)
			} else {
				c.store = store
			}
		case cfg.L3.Bucket != "":
			store, err := NewS3Store(context.Background(), cfg.L3, c.logger)
			if err != nil {
				c.logger.Warn("L3 s3 store initialization failed, tier disabled", "error", err)
			} else {
				c.store = store
			}
		default:
			c.logger.Warn("L3 enabled without a directory or bucket, tier disabled")
		}
	}
}

// Name returns the instance name used in events and the registry.
func (c *IntelligentCache) Name() string {
	return c.name
}

// Get looks the key up tier by tier and decodes the first live hit into
// dest. Hits below L1 are promoted before returning. A miss on every tier
// returns ErrCacheMiss.
func (c *IntelligentCache) Get(ctx context.Context, key string, dest any) error {
	if c.destroyed.Load() {
		return types.ErrDestroyed
	}

	c.trackAccess(key)

	if c.l1.IsAvailable() {
		if entry, ok := c.l1.Get(key); ok {
			c.tracker.RecordHit(types.TierL1)
			return c.decode(entry, key, dest)
		}
		c.tracker.RecordMiss(types.TierL1)
	}

	if entry := c.getFromL2(ctx, key); entry != nil {
		c.promoteToL1(entry)
		return c.decode(entry, key, dest)
	}

	if entry := c.getFromL3(ctx, key); entry != nil {
		c.promoteToL2(ctx, entry)
		c.promoteToL1(entry)
		return c.decode(entry, key, dest)
	}

	return types.ErrCacheMiss
}

// Set serializes the value and writes it to every enabled tier. Each tier
// fails independently; the write succeeds if any tier accepted it.
func (c *IntelligentCache) Set(ctx context.Context, key string, value any, opts ...types.SetOption) error {
	if c.destroyed.Load() {
		return types.ErrDestroyed
	}

	options := types.ApplySetOptions(opts...)

	data, err := c.serializer.Marshal(value)
	if err != nil {
		return types.NewCacheError("Set", key, c.name, err)
	}

	now := c.now()
	entry := &types.Entry{
		Key:            key,
		Value:          data,
		CreatedAt:      now,
		TTL:            options.TTL,
		LastAccessedAt: now,
		SizeBytes:      int64(len(data)),
		Compressed:     c.shouldCompress(len(data)),
	}

	c.l1.Set(cloneEntry(entry))
	if c.l1.IsAvailable() {
		c.tracker.RecordSet(types.TierL1)
	}

	if c.l2.IsAvailable() {
		if err := c.l2.Set(ctx, entry); err != nil {
			c.tracker.RecordError(types.TierL2)
			c.logger.Warn("L2 set failed", "key", key, "error", err)
		} else {
			c.tracker.RecordSet(types.TierL2)
		}
	}

	if c.store != nil {
		if err := c.store.SetToStore(ctx, entry); err != nil {
			c.tracker.RecordError(types.TierL3)
			c.logger.Warn("L3 set failed", "key", key, "error", err)
		} else {
			c.tracker.RecordSet(types.TierL3)
		}
	}

	c.hub.Publish(types.Event{Type: types.EventSet, Cache: c.name, Key: key})
	return nil
}

// Delete removes the key from every tier, reporting whether any tier
// actually held it.
func (c *IntelligentCache) Delete(ctx context.Context, key string) (bool, error) {
	if c.destroyed.Load() {
		return false, types.ErrDestroyed
	}

	deleted := false

	if c.l1.Delete(key) {
		c.tracker.RecordDelete(types.TierL1)
		deleted = true
	}

	if c.l2.IsAvailable() {
		ok, err := c.l2.Delete(ctx, key)
		switch {
		case err != nil:
			c.tracker.RecordError(types.TierL2)
			c.logger.Warn("L2 delete failed", "key", key, "error", err)
		case ok:
			c.tracker.RecordDelete(types.TierL2)
			deleted = true
		}
	}

	if c.store != nil {
		ok, err := c.store.DeleteFromStore(ctx, key)
		switch {
		case err != nil:
			c.tracker.RecordError(types.TierL3)
			c.logger.Warn("L3 delete failed", "key", key, "error", err)
		case ok:
			c.tracker.RecordDelete(types.TierL3)
			deleted = true
		}
	}

	if deleted {
		c.hub.Publish(types.Event{Type: types.EventDeleted, Cache: c.name, Key: key})
	}
	return deleted, nil
}

// Clear empties every tier, drops access patterns and the prefetch queue,
// and resets the counters.
func (c *IntelligentCache) Clear(ctx context.Context) error {
	if c.destroyed.Load() {
		return types.ErrDestroyed
	}

	c.l1.Clear()

	if c.l2.IsAvailable() {
		if err := c.l2.Clear(ctx); err != nil {
			c.tracker.RecordError(types.TierL2)
			c.logger.Warn("L2 clear failed", "error", err)
		}
	}

	if c.store != nil {
		if err := c.store.ClearStore(ctx); err != nil {
			c.tracker.RecordError(types.TierL3)
			c.logger.Warn("L3 clear failed", "error", err)
		}
	}

	c.patternMu.Lock()
	c.patterns = make(map[string]*types.AccessPattern)
	c.patternMu.Unlock()

	c.prefetcher.Reset()
	c.tracker.Reset()

	c.hub.Publish(types.Event{Type: types.EventCleared, Cache: c.name})
	return nil
}

// Prefetch queues a warming request and drains the queue synchronously.
// Keys already cached count as prefetch hits; the generator runs only for
// missing keys. Returns how many keys were generated and stored.
func (c *IntelligentCache) Prefetch(ctx context.Context, req types.PrefetchRequest) (int, error) {
	if c.destroyed.Load() {
		return 0, types.ErrDestroyed
	}
	if req.Generator == nil {
		return 0, types.ErrNoGenerator
	}
	if !c.config.Prefetch.Enabled {
		return 0, nil
	}

	c.prefetcher.Enqueue(req)
	warmed, alreadyCached := c.prefetcher.Drain(ctx)

	for i := 0; i < alreadyCached; i++ {
		c.tracker.RecordPrefetchHit()
	}

	c.logger.Debug("Prefetch drained",
		"warmed", warmed,
		"already_cached", alreadyCached,
	)
	return warmed, nil
}

// Optimize runs a maintenance pass: sweeps expired entries, prunes stale
// access patterns, and drains any queued prefetch work.
func (c *IntelligentCache) Optimize(ctx context.Context) (OptimizeResult, error) {
	if c.destroyed.Load() {
		return OptimizeResult{}, types.ErrDestroyed
	}

	var result OptimizeResult

	result.ExpiredRemoved = c.l1.RemoveExpired()
	if fs, ok := c.store.(*FileStore); ok {
		result.ExpiredRemoved += fs.RemoveExpired()
	}

	result.PatternsPruned = c.pruneStalePatterns()

	warmed, alreadyCached := c.prefetcher.Drain(ctx)
	result.PrefetchWarmed = warmed
	result.PrefetchSkipped = alreadyCached
	for i := 0; i < alreadyCached; i++ {
		c.tracker.RecordPrefetchHit()
	}

	c.hub.Publish(types.Event{Type: types.EventOptimized, Cache: c.name})

	c.logger.Debug("Optimize pass complete",
		"expired_removed", result.ExpiredRemoved,
		"patterns_pruned", result.PatternsPruned,
		"prefetch_warmed", result.PrefetchWarmed,
	)
	return result, nil
}

// Metrics returns a synchronous snapshot of all counters.
func (c *IntelligentCache) Metrics() types.CacheMetrics {
	return c.tracker.Snapshot(c.l2.Status())
}

// SizeInfo reports occupancy and tracking state.
func (c *IntelligentCache) SizeInfo() types.SizeInfo {
	c.patternMu.Lock()
	patternCount := len(c.patterns)
	c.patternMu.Unlock()

	info := types.SizeInfo{
		L1Size:                  c.l1.Len(),
		L1MaxSize:               c.l1.Cap(),
		AccessPatternCount:      patternCount,
		PrefetchQueueLength:     c.prefetcher.QueueLen(),
		PrefetchInProgressCount: c.prefetcher.InFlightCount(),
	}
	if info.L1MaxSize > 0 {
		info.UtilizationPercent = float64(info.L1Size) / float64(info.L1MaxSize) * 100
	}
	return info
}

// Subscribe registers an event handler and returns its subscription id.
func (c *IntelligentCache) Subscribe(handler types.EventHandler) int {
	return c.hub.Subscribe(handler)
}

// Unsubscribe removes a previously registered handler.
func (c *IntelligentCache) Unsubscribe(id int) {
	c.hub.Unsubscribe(id)
}

// Destroy tears the cache down: background loops stop, every tier gets a
// final clear, tiers close, subscribers detach. All later operations return
// ErrDestroyed.
func (c *IntelligentCache) Destroy(ctx context.Context) error {
	if c.destroyed.Swap(true) {
		return nil
	}

	if c.background != nil {
		c.background.Stop()
	}

	c.l1.Clear()
	if c.l2.IsAvailable() {
		if err := c.l2.Clear(ctx); err != nil {
			c.logger.Warn("L2 final clear failed", "error", err)
		}
	}
	if c.store != nil {
		if err := c.store.ClearStore(ctx); err != nil {
			c.logger.Warn("L3 final clear failed", "error", err)
		}
	}

	c.patternMu.Lock()
	c.patterns = make(map[string]*types.AccessPattern)
	c.patternMu.Unlock()

	c.prefetcher.Reset()
	c.tracker.Reset()

	if err := c.l1.Close(); err != nil {
		c.logger.Warn("L1 close failed", "error", err)
	}
	if err := c.l2.Close(); err != nil {
		c.logger.Warn("L2 close failed", "error", err)
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Warn("L3 close failed", "error", err)
		}
	}

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			c.logger.Warn("Metrics publisher close failed", "error", err)
		}
	}

	c.hub.Reset()
	c.logger.Info("Cache destroyed")
	return nil
}

func (c *IntelligentCache) getFromL2(ctx context.Context, key string) *types.Entry {
	if !c.l2.IsAvailable() {
		return nil
	}

	entry, err := c.l2.Get(ctx, key)
	if err != nil {
		c.tracker.RecordError(types.TierL2)
		c.logger.Warn("L2 get failed", "key", key, "error", err)
		return nil
	}
	if entry == nil {
		c.tracker.RecordMiss(types.TierL2)
		return nil
	}

	c.tracker.RecordHit(types.TierL2)
	return entry
}

func (c *IntelligentCache) getFromL3(ctx context.Context, key string) *types.Entry {
	if c.store == nil {
		return nil
	}

	entry, err := c.store.GetFromStore(ctx, key)
	if err != nil {
		c.tracker.RecordError(types.TierL3)
		c.logger.Warn("L3 get failed", "key", key, "error", err)
		return nil
	}
	if entry == nil {
		c.tracker.RecordMiss(types.TierL3)
		return nil
	}

	c.tracker.RecordHit(types.TierL3)
	return entry
}

// promoteToL1 copies a lower-tier hit into L1 so the next read is local.
// The entry keeps its original CreatedAt; promotion never extends a TTL.
func (c *IntelligentCache) promoteToL1(entry *types.Entry) {
	if !c.l1.IsAvailable() {
		return
	}
	c.l1.Set(cloneEntry(entry))
}

func (c *IntelligentCache) promoteToL2(ctx context.Context, entry *types.Entry) {
	if !c.l2.IsAvailable() {
		return
	}
	if err := c.l2.Set(ctx, entry); err != nil {
		c.tracker.RecordError(types.TierL2)
		c.logger.Warn("L2 promotion failed", "key", entry.Key, "error", err)
	}
}

func (c *IntelligentCache) decode(entry *types.Entry, key string, dest any) error {
	if dest == nil {
		return nil
	}
	if err := c.serializer.Unmarshal(entry.Value, dest); err != nil {
		return types.NewCacheError("Get", key, c.name, err)
	}
	return nil
}

// trackAccess bumps the key's access pattern. Crossing the prefetch
// threshold surfaces a candidate event exactly once per crossing; nothing
// is generated automatically.
func (c *IntelligentCache) trackAccess(key string) {
	threshold := int64(c.config.Prefetch.Threshold)

	c.patternMu.Lock()
	pattern, ok := c.patterns[key]
	if !ok {
		pattern = &types.AccessPattern{}
		c.patterns[key] = pattern
	}
	pattern.Count++
	pattern.LastAccess = c.now()
	crossed := c.config.Prefetch.Enabled && threshold > 0 && pattern.Count == threshold
	c.patternMu.Unlock()

	if crossed {
		c.tracker.RecordPrefetchCandidate()
		c.hub.Publish(types.Event{Type: types.EventPrefetchCandidate, Cache: c.name, Key: key})
	}
}

func (c *IntelligentCache) pruneStalePatterns() int {
	staleness := c.config.Performance.PatternStaleness
	if staleness <= 0 {
		return 0
	}

	cutoff := c.now().Add(-staleness)

	c.patternMu.Lock()
	defer c.patternMu.Unlock()

	pruned := 0
	for key, pattern := range c.patterns {
		if pattern.LastAccess.Before(cutoff) {
			delete(c.patterns, key)
			pruned++
		}
	}
	return pruned
}

// contains checks every tier without touching counters or patterns. Used
// by the prefetcher to skip keys that are already cached.
func (c *IntelligentCache) contains(ctx context.Context, key string) bool {
	if _, ok := c.l1.Get(key); ok {
		return true
	}
	if c.l2.IsAvailable() {
		if entry, err := c.l2.Get(ctx, key); err == nil && entry != nil {
			return true
		}
	}
	if c.store != nil {
		if entry, err := c.store.GetFromStore(ctx, key); err == nil && entry != nil {
			return true
		}
	}
	return false
}

// storePrefetched writes a generated value through the normal Set path.
func (c *IntelligentCache) storePrefetched(ctx context.Context, key string, value any, req types.PrefetchRequest) error {
	if req.TTL > 0 {
		return c.Set(ctx, key, value, types.WithTTL(req.TTL))
	}
	return c.Set(ctx, key, value)
}

// onEvict is the L1 eviction hook: capacity removals are counted and
// surfaced as events, distinct from TTL expiry.
func (c *IntelligentCache) onEvict(entry *types.Entry) {
	c.tracker.RecordEviction(types.TierL1)
	c.hub.Publish(types.Event{
		Type:  types.EventEvicted,
		Cache: c.name,
		Key:   entry.Key,
		Tier:  types.TierL1.String(),
	})
}

func (c *IntelligentCache) shouldCompress(size int) bool {
	return c.config.Performance.CompressionEnabled &&
		size >= c.config.Performance.CompressionThreshold
}

// cloneEntry copies an entry before handing it to L1, which mutates access
// bookkeeping in place. Tiers must not share one Entry value.
func cloneEntry(entry *types.Entry) *types.Entry {
	clone := *entry
	return &clone
}
