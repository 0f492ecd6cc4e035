// Package tradecache implements tiered caching for market data pipelines.
//
// A cache has up to three tiers: an in-process LRU (L1), a shared Redis
// instance (L2), and a persistent store on disk or S3 (L3). Reads walk the
// tiers in order and promote hits back up, so hot keys migrate toward the
// process. Writes land on every enabled tier; a tier failure degrades that
// tier without failing the operation.
//
// # Quick Start
//
// Create a cache with default configuration (L1 only):
//
//	c, err := tradecache.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Destroy(context.Background())
//
//	ctx := context.Background()
//	err = c.Set(ctx, "quote:AAPL", quote, tradecache.WithTTL(time.Minute))
//
//	var cached Quote
//	err = c.Get(ctx, "quote:AAPL", &cached)
//	if tradecache.IsCacheMiss(err) {
//	    // fetch from the source
//	}
//
// # Profiles
//
// Presets exist for the pipeline's data classes, each with tier sizes and
// TTLs tuned to how fast that data goes stale:
//
//	news, _ := tradecache.ForProfile(tradecache.ProfileNews)
//	market, _ := tradecache.ForProfile(tradecache.ProfileMarketData)
//
// A Registry shares one instance per profile across a process:
//
//	registry := tradecache.NewRegistry()
//	c, err := registry.ForProfile(tradecache.ProfileMarketData)
//
// # Prefetching
//
// Frequently read keys cross an access threshold and surface as
// EventPrefetchCandidate events. Warming is explicit: callers hand
// Prefetch a key list and a generator, and only missing keys are
// generated:
//
//	warmed, err := c.Prefetch(ctx, tradecache.PrefetchRequest{
//	    Keys:      []string{"quote:AAPL", "quote:MSFT"},
//	    Generator: fetchQuote,
//	    TTL:       time.Minute,
//	})
//
// # Observability
//
// Metrics() returns per-tier hit/miss/error counters and the overall hit
// rate. Subscribe attaches an event handler for sets, evictions, deletes,
// clears, and periodic metrics snapshots. External sinks (NATS) and
// publishers (DataDog, Prometheus) plug in through options.
package tradecache
