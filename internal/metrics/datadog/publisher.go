// Package datadog provides a DataDog StatsD metrics publisher.
package datadog

import (
	"fmt"
	"log/slog"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/metrics"
	"github.com/southerncoder/tradecache/internal/types"
)

// Publisher implements metrics.Publisher using the DataDog StatsD client.
type Publisher struct {
	baseTags []string
	client   *statsd.Client
	logger   *slog.Logger
}

// NewPublisher creates a new DataDog publisher from config.
// If DataDog is not enabled, returns a NoOpPublisher instead.
func NewPublisher(cfg *config.DataDogConfig, logger *slog.Logger) (metrics.Publisher, error) {
	if !cfg.Enabled {
		return metrics.NoOpPublisher{}, nil
	}

	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf("%s:%d", cfg.AgentHost, cfg.Port)

	client, err := statsd.New(addr,
		statsd.WithNamespace(cfg.Prefix+"."),
		statsd.WithTags(cfg.Tags),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client: %w", err)
	}

	logger.Info("DataDog publisher initialized",
		"address", addr,
		"prefix", cfg.Prefix,
		"tags", cfg.Tags,
	)

	return &Publisher{
		client:   client,
		baseTags: cfg.Tags,
		logger:   logger.With("component", "datadog"),
	}, nil
}

// Gauge records a gauge metric (value at a point in time).
func (p *Publisher) Gauge(name string, value float64, tags ...string) {
	if err := p.client.Gauge(name, value, p.mergeTags(tags), 1); err != nil {
		p.logger.Debug("Failed to send gauge metric", "name", name, "error", err)
	}
}

// Count increments a counter by a specified amount.
func (p *Publisher) Count(name string, value int64, tags ...string) {
	if err := p.client.Count(name, value, p.mergeTags(tags), 1); err != nil {
		p.logger.Debug("Failed to send count metric", "name", name, "error", err)
	}
}

// PublishCacheMetrics publishes a full snapshot for one cache instance.
func (p *Publisher) PublishCacheMetrics(cacheName string, m *types.CacheMetrics) {
	if m == nil {
		return
	}

	tag := "cache:" + cacheName

	p.publishTier("l1", cacheName, &m.L1)
	p.publishTier("l2", cacheName, &m.L2)
	p.publishTier("l3", cacheName, &m.L3)

	p.Gauge("overall.hit_rate", clamp(m.Overall.OverallHitRate, 0, 1), tag)
	p.Gauge("overall.hits", float64(m.Overall.TotalHits), tag)
	p.Gauge("overall.misses", float64(m.Overall.TotalMisses), tag)
	p.Gauge("prefetch.hits", float64(m.Overall.PrefetchHits), tag)

	connected := 0.0
	if m.L2.ConnectionStatus == types.ConnConnected.String() {
		connected = 1.0
	}
	p.Gauge("l2.connection.status", connected, tag)
}

func (p *Publisher) publishTier(tier, cacheName string, m *types.TierMetrics) {
	tags := []string{"cache:" + cacheName, "tier:" + tier}

	p.Gauge(tier+".hits", float64(m.Hits), tags...)
	p.Gauge(tier+".misses", float64(m.Misses), tags...)
	p.Gauge(tier+".sets", float64(m.Sets), tags...)
	p.Gauge(tier+".deletes", float64(m.Deletes), tags...)
	p.Gauge(tier+".errors", float64(m.Errors), tags...)
	if tier == "l1" {
		p.Gauge(tier+".evictions", float64(m.Evictions), tags...)
	}
	p.Gauge(tier+".hit_rate", clamp(m.HitRate(), 0, 1), tags...)
}

// Close releases resources held by the publisher.
func (p *Publisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// mergeTags never appends onto baseTags directly; a shared backing array
// would let concurrent calls overwrite each other's tags.
func (p *Publisher) mergeTags(tags []string) []string {
	if len(tags) == 0 {
		return p.baseTags
	}
	if len(p.baseTags) == 0 {
		return tags
	}
	merged := make([]string, 0, len(p.baseTags)+len(tags))
	merged = append(merged, p.baseTags...)
	return append(merged, tags...)
}

func clamp(val, minVal, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// Ensure Publisher implements the interface
var _ metrics.Publisher = (*Publisher)(nil)
