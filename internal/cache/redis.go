package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/resilience"
	"github.com/southerncoder/tradecache/internal/types"
)

const disconnectErrorThreshold = 5

// RedisCache implements the L2 tier on a shared Redis instance. Entries are
// stored as JSON under a prefixed key, with Redis expiry mirroring the entry
// TTL so the server reclaims what the process never reads again.
//
// The adapter tracks connection state explicitly: consecutive command
// failures past a threshold mark it disconnected, and a health-check loop
// restores it when the server answers pings again.
type RedisCache struct {
	client *redis.Client
	config config.L2Config
	logger *slog.Logger
	retry  *resilience.Retry

	status atomic.Int32

	mu            sync.RWMutex
	lastError     error
	lastErrorTime time.Time
	errorCount    atomic.Int64

	healthCheckStopCh chan struct{}
	healthCheckWg     sync.WaitGroup
	closed            atomic.Bool
}

// NewRedisCache creates the L2 adapter and attempts an initial connection.
// A failed dial does not error; the tier starts disconnected and the health
// check keeps trying.
func NewRedisCache(cfg config.L2Config, logger *slog.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	rc := &RedisCache{
		client:            client,
		config:            cfg,
		logger:            logger.With("component", "redis-cache"),
		retry:             resilience.NewRetry(cfg.MaxRetries, cfg.RetryDelay),
		healthCheckStopCh: make(chan struct{}),
	}

	rc.status.Store(int32(types.ConnConnecting))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		rc.logger.Warn("Redis initial connection failed", "error", err)
		rc.setError(err)
	} else {
		rc.status.Store(int32(types.ConnConnected))
		rc.logger.Info("Redis connected", "address", cfg.Address)
	}

	if cfg.HealthCheckInterval > 0 {
		rc.healthCheckWg.Add(1)
		go rc.healthCheckWorker()
	}

	return rc, nil
}

func (c *RedisCache) Name() string {
	return "l2"
}

func (c *RedisCache) IsAvailable() bool {
	return types.ConnectionStatus(c.status.Load()) == types.ConnConnected
}

// Status reports the connection state machine's current state.
func (c *RedisCache) Status() types.ConnectionStatus {
	return types.ConnectionStatus(c.status.Load())
}

func (c *RedisCache) prefixKey(key string) string {
	return c.config.KeyPrefix + key
}

// Get fetches and decodes an entry. A clean miss returns (nil, nil);
// expired entries that Redis has not reclaimed yet are treated as misses
// and deleted.
func (c *RedisCache) Get(ctx context.Context, key string) (*types.Entry, error) {
	if !c.IsAvailable() {
		return nil, types.ErrTierUnavailable
	}

	var data []byte
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		b, err := c.client.Get(ctx, c.prefixKey(key)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return types.ErrCacheMiss
			}
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		if types.IsCacheMiss(err) {
			return nil, nil
		}
		c.handleError(err)
		return nil, types.NewCacheError("Get", key, "redis", err)
	}

	var entry types.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("Discarding undecodable entry", "key", key, "error", err)
		_ = c.client.Del(ctx, c.prefixKey(key)).Err()
		return nil, nil
	}

	if entry.ExpiredAt(time.Now()) {
		_ = c.client.Del(ctx, c.prefixKey(key)).Err()
		return nil, nil
	}

	c.clearError()
	return &entry, nil
}

// Set encodes and stores an entry. The Redis expiry matches the entry TTL,
// falling back to the tier default.
func (c *RedisCache) Set(ctx context.Context, entry *types.Entry) error {
	if !c.IsAvailable() {
		return types.ErrTierUnavailable
	}

	ttl := entry.TTL
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return types.NewCacheError("Set", entry.Key, "redis", err)
	}

	err = c.retry.Do(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, c.prefixKey(entry.Key), data, ttl).Err()
	})
	if err != nil {
		c.handleError(err)
		return types.NewCacheError("Set", entry.Key, "redis", err)
	}

	c.clearError()
	return nil
}

// Delete removes a key, reporting whether it existed.
func (c *RedisCache) Delete(ctx context.Context, key string) (bool, error) {
	if !c.IsAvailable() {
		return false, types.ErrTierUnavailable
	}

	var removed int64
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		n, err := c.client.Del(ctx, c.prefixKey(key)).Result()
		if err != nil {
			return err
		}
		removed = n
		return nil
	})
	if err != nil {
		c.handleError(err)
		return false, types.NewCacheError("Delete", key, "redis", err)
	}

	c.clearError()
	return removed > 0, nil
}

// Clear removes every key under this cache's prefix. Other tenants sharing
// the Redis instance are untouched.
func (c *RedisCache) Clear(ctx context.Context) error {
	if !c.IsAvailable() {
		return types.ErrTierUnavailable
	}

	pattern := c.prefixKey("*")
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err)
			return types.NewCacheError("Clear", pattern, "redis", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err)
				return types.NewCacheError("Clear", pattern, "redis", err)
			}
			deleted += int64(len(keys))
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	c.logger.Debug("Cleared prefixed keys", "pattern", pattern, "deleted", deleted)
	c.clearError()
	return nil
}

// Ping checks the server directly, bypassing the state machine.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close stops the health checker and releases the client.
func (c *RedisCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.status.Store(int32(types.ConnDisconnected))
	close(c.healthCheckStopCh)
	c.healthCheckWg.Wait()

	return c.client.Close()
}

// LastError reports the most recent command failure and when it happened.
func (c *RedisCache) LastError() (error, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError, c.lastErrorTime
}

func (c *RedisCache) healthCheckWorker() {
	defer c.healthCheckWg.Done()

	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.healthCheckStopCh:
			return
		case <-ticker.C:
			c.performHealthCheck()
		}
	}
}

func (c *RedisCache) performHealthCheck() {
	wasConnected := c.IsAvailable()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.DialTimeout)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		if wasConnected {
			c.logger.Warn("Redis health check failed", "error", err)
			c.setError(err)
		}
		return
	}

	if !wasConnected {
		c.status.Store(int32(types.ConnConnected))
		c.errorCount.Store(0)
		c.logger.Info("Redis connection restored via health check")
	}
}

func (c *RedisCache) handleError(err error) {
	c.mu.Lock()
	c.lastError = err
	c.lastErrorTime = time.Now()
	c.mu.Unlock()

	if c.errorCount.Add(1) >= disconnectErrorThreshold {
		if c.status.CompareAndSwap(int32(types.ConnConnected), int32(types.ConnError)) {
			c.logger.Warn("Redis marked as unavailable after repeated errors",
				"error_count", c.errorCount.Load(),
				"last_error", err,
			)
		}
	}
}

func (c *RedisCache) clearError() {
	if c.errorCount.Swap(0) > 0 {
		if c.status.CompareAndSwap(int32(types.ConnError), int32(types.ConnConnected)) {
			c.logger.Info("Redis connection restored")
		}
	}
}

func (c *RedisCache) setError(err error) {
	c.mu.Lock()
	c.lastError = err
	c.lastErrorTime = time.Now()
	c.mu.Unlock()
	c.status.Store(int32(types.ConnError))
}

var _ types.DistributedTier = (*RedisCache)(nil)
