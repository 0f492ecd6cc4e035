package metrics

import "github.com/southerncoder/tradecache/internal/types"

// Publisher sends cache metrics to an external monitoring system.
type Publisher interface {
	// Gauge records a gauge metric (value at a point in time).
	Gauge(name string, value float64, tags ...string)

	// Count increments a counter by a specified amount.
	Count(name string, value int64, tags ...string)

	// PublishCacheMetrics publishes a full snapshot for one cache instance.
	PublishCacheMetrics(cacheName string, m *types.CacheMetrics)

	// Close releases resources held by the publisher.
	Close() error
}

// NoOpPublisher discards all metrics. Used when no backend is configured.
type NoOpPublisher struct{}

func (NoOpPublisher) Gauge(string, float64, ...string)                {}
func (NoOpPublisher) Count(string, int64, ...string)                  {}
func (NoOpPublisher) PublishCacheMetrics(string, *types.CacheMetrics) {}
func (NoOpPublisher) Close() error                                    { return nil }

var _ Publisher = NoOpPublisher{}
