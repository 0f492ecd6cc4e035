package cache

import (
	"container/list"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/types"
)

// EvictFunc is invoked with each entry removed to make room. TTL expiry
// does not count as an eviction and never triggers the callback.
type EvictFunc func(entry *types.Entry)

// MemoryCache implements the L1 tier as an LRU list bounded by entry count.
// Expiry is lazy: an expired entry is dropped when a read finds it, or when
// RemoveExpired sweeps during Optimize.
type MemoryCache struct {
	mu        sync.Mutex
	items     map[string]*list.Element
	evictList *list.List

	config  config.L1Config
	onEvict EvictFunc
	logger  *slog.Logger
	now     func() time.Time

	closed atomic.Bool
}

// NewMemoryCache creates a new memory cache with the given configuration.
func NewMemoryCache(cfg config.L1Config, onEvict EvictFunc, logger *slog.Logger) *MemoryCache {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1
	}

	return &MemoryCache{
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		config:    cfg,
		onEvict:   onEvict,
		logger:    logger.With("component", "memory-cache"),
		now:       time.Now,
	}
}

// Name returns the tier name.
func (c *MemoryCache) Name() string {
	return "l1"
}

// IsAvailable returns true if the cache is not closed.
func (c *MemoryCache) IsAvailable() bool {
	return !c.closed.Load()
}

// Get retrieves an entry, dropping it if the TTL has lapsed. The boolean
// reports a live hit; expired entries count as misses.
func (c *MemoryCache) Get(key string) (*types.Entry, bool) {
	if c.closed.Load() {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*types.Entry)
	if entry.ExpiredAt(c.now()) {
		c.removeElement(elem)
		return nil, false
	}

	entry.Touch(c.now())
	if c.config.UpdateAgeOnGet {
		c.evictList.MoveToFront(elem)
	}

	return entry, true
}

// Set stores an entry, evicting from the LRU tail when full. Entries
// without a TTL inherit the tier's maxAge.
func (c *MemoryCache) Set(entry *types.Entry) {
	if c.closed.Load() || entry == nil {
		return
	}

	if entry.TTL <= 0 {
		entry.TTL = c.config.MaxAge
	}

	var evicted []*types.Entry

	c.mu.Lock()
	if elem, ok := c.items[entry.Key]; ok {
		elem.Value = entry
		c.evictList.MoveToFront(elem)
		c.mu.Unlock()
		return
	}

	for c.evictList.Len() >= c.config.MaxSize {
		if e := c.evictOldest(); e != nil {
			evicted = append(evicted, e)
		}
	}
	c.items[entry.Key] = c.evictList.PushFront(entry)
	c.mu.Unlock()

	// Callbacks run outside the lock so a subscriber may re-enter the cache.
	if c.onEvict != nil {
		for _, e := range evicted {
			c.onEvict(e)
		}
	}
}

// Delete removes an entry, reporting whether it was present.
func (c *MemoryCache) Delete(key string) bool {
	if c.closed.Load() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}

	c.evictList.Remove(elem)
	delete(c.items, key)
	return true
}

// Clear removes all entries without firing eviction callbacks.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.evictList.Init()
}

// Len returns the current entry count.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Cap returns the configured entry bound.
func (c *MemoryCache) Cap() int {
	return c.config.MaxSize
}

// RemoveExpired sweeps out entries past their TTL and reports how many
// were dropped. Called from Optimize.
func (c *MemoryCache) RemoveExpired() int {
	if c.closed.Load() {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.evictList.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*types.Entry)
		if entry.ExpiredAt(now) {
			c.evictList.Remove(elem)
			delete(c.items, entry.Key)
			removed++
		}
		elem = prev
	}

	if removed > 0 {
		c.logger.Debug("Removed expired entries", "count", removed)
	}
	return removed
}

// Close marks the cache closed and drops its contents.
func (c *MemoryCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.Clear()
	return nil
}

// evictOldest removes and returns the LRU tail. Caller holds the lock.
func (c *MemoryCache) evictOldest() *types.Entry {
	elem := c.evictList.Back()
	if elem == nil {
		return nil
	}

	entry := elem.Value.(*types.Entry)
	c.evictList.Remove(elem)
	delete(c.items, entry.Key)
	return entry
}

// removeElement drops an expired entry found during Get. Caller holds the
// lock. Not an eviction, so no callback.
func (c *MemoryCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*types.Entry)
	c.evictList.Remove(elem)
	delete(c.items, entry.Key)
}

var _ types.MemoryTier = (*MemoryCache)(nil)
