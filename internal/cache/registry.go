package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/types"
)

// Registry tracks named cache instances so a process can share one cache
// per data class. Instances are created lazily and torn down together.
type Registry struct {
	mu     sync.RWMutex
	caches map[string]*IntelligentCache
	logger *slog.Logger
	opts   []Option
}

// NewRegistry creates an empty registry. The options are applied to every
// cache the registry constructs.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		caches: make(map[string]*IntelligentCache),
		logger: logger.With("component", "cache-registry"),
		opts:   opts,
	}
}

// Get returns the named instance or ErrUnknownCache.
func (r *Registry) Get(name string) (*IntelligentCache, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.caches[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownCache, name)
	}
	return c, nil
}

// GetOrCreate returns the named instance, building it from cfg on first
// use. The config's Name field is overridden by the registry name.
func (r *Registry) GetOrCreate(name string, cfg *config.Config) (*IntelligentCache, error) {
	r.mu.RLock()
	c, ok := r.caches[name]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock; another goroutine may have won.
	if c, ok := r.caches[name]; ok {
		return c, nil
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Name = name

	c, err := New(cfg, r.opts...)
	if err != nil {
		return nil, err
	}

	r.caches[name] = c
	r.logger.Info("Cache registered", "name", name)
	return c, nil
}

// ForProfile returns the cache for a named workload profile, creating it
// from the profile's preset configuration on first use.
func (r *Registry) ForProfile(profile string) (*IntelligentCache, error) {
	r.mu.RLock()
	c, ok := r.caches[profile]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	cfg, err := config.ForProfile(profile)
	if err != nil {
		return nil, err
	}
	return r.GetOrCreate(profile, cfg)
}

// Names lists the registered instance names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many instances are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.caches)
}

// Metrics snapshots every registered instance.
func (r *Registry) Metrics() map[string]types.CacheMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]types.CacheMetrics, len(r.caches))
	for name, c := range r.caches {
		out[name] = c.Metrics()
	}
	return out
}

// OptimizeAll runs a maintenance pass on every instance.
func (r *Registry) OptimizeAll(ctx context.Context) map[string]OptimizeResult {
	out := make(map[string]OptimizeResult)
	for name, c := range r.snapshot() {
		result, err := c.Optimize(ctx)
		if err != nil {
			r.logger.Warn("Optimize failed", "name", name, "error", err)
			continue
		}
		out[name] = result
	}
	return out
}

// ClearAll empties every instance.
func (r *Registry) ClearAll(ctx context.Context) error {
	var firstErr error
	for name, c := range r.snapshot() {
		if err := c.Clear(ctx); err != nil {
			r.logger.Warn("Clear failed", "name", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// DestroyAll tears down every instance and empties the registry.
func (r *Registry) DestroyAll(ctx context.Context) error {
	r.mu.Lock()
	caches := r.caches
	r.caches = make(map[string]*IntelligentCache)
	r.mu.Unlock()

	var firstErr error
	for name, c := range caches {
		if err := c.Destroy(ctx); err != nil {
			r.logger.Warn("Destroy failed", "name", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Remove destroys one instance and drops it from the registry.
func (r *Registry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	c, ok := r.caches[name]
	delete(r.caches, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", types.ErrUnknownCache, name)
	}
	return c.Destroy(ctx)
}

func (r *Registry) snapshot() map[string]*IntelligentCache {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*IntelligentCache, len(r.caches))
	for name, c := range r.caches {
		out[name] = c
	}
	return out
}
