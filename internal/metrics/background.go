package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/southerncoder/tradecache/internal/types"
)

// BackgroundPublisher publishes metrics snapshots at regular intervals
// with context-based cancellation support.
type BackgroundPublisher struct {
	publisher Publisher
	hub       *types.EventHub
	logger    *slog.Logger
	snapshot  func() types.CacheMetrics
	cacheName string
	cancel    context.CancelFunc
	ctx       context.Context
	wg        sync.WaitGroup
	interval  time.Duration
}

// NewBackgroundPublisher creates a new background publisher. The snapshot
// function is called on each interval to get the current metrics. A nil hub
// suppresses the metricsUpdated event.
func NewBackgroundPublisher(
	cacheName string,
	publisher Publisher,
	hub *types.EventHub,
	interval time.Duration,
	snapshot func() types.CacheMetrics,
	logger *slog.Logger,
) *BackgroundPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &BackgroundPublisher{
		cacheName: cacheName,
		publisher: publisher,
		hub:       hub,
		interval:  interval,
		snapshot:  snapshot,
		logger:    logger.With("component", "metrics-background"),
	}
}

// Start begins the background publishing loop.
// The provided context controls the lifecycle of the background goroutine.
func (b *BackgroundPublisher) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.run()
	b.logger.Info("Background metrics publisher started", "interval", b.interval)
}

// Stop cancels the background context and waits for shutdown.
func (b *BackgroundPublisher) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	b.logger.Info("Background metrics publisher stopped")
}

func (b *BackgroundPublisher) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			// Final publish before stopping
			b.publish()
			return
		case <-ticker.C:
			b.publish()
		}
	}
}

func (b *BackgroundPublisher) publish() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in metrics publisher", "panic", r)
		}
	}()

	if b.snapshot == nil {
		return
	}

	m := b.snapshot()
	if b.publisher != nil {
		b.publisher.PublishCacheMetrics(b.cacheName, &m)
	}
	if b.hub != nil {
		b.hub.Publish(types.Event{
			Type:    types.EventMetricsUpdated,
			Cache:   b.cacheName,
			Metrics: &m,
		})
	}
}

// PublishNow triggers an immediate metrics publish.
func (b *BackgroundPublisher) PublishNow() {
	b.publish()
}
