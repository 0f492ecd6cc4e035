package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/southerncoder/tradecache/internal/types"
)

// Collector exports cache metrics through a private Prometheus registry.
// Counters in the snapshot are exported as gauges because the tracker
// already accumulates them; the scrape reflects the latest snapshot.
type Collector struct {
	registry *prometheus.Registry

	hits       *prometheus.GaugeVec
	misses     *prometheus.GaugeVec
	sets       *prometheus.GaugeVec
	deletes    *prometheus.GaugeVec
	errors     *prometheus.GaugeVec
	evictions  *prometheus.GaugeVec
	hitRate    *prometheus.GaugeVec
	prefetches *prometheus.GaugeVec
	connected  *prometheus.GaugeVec
}

// NewCollector creates a collector with its own registry so multiple cache
// processes in one binary do not collide on metric names.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "tradecache"
	}

	tierLabels := []string{"cache", "tier"}
	cacheLabels := []string{"cache"}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		hits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hits_total",
			Help:      "Cache hits per tier.",
		}, tierLabels),
		misses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "misses_total",
			Help:      "Cache misses per tier.",
		}, tierLabels),
		sets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sets_total",
			Help:      "Cache writes per tier.",
		}, tierLabels),
		deletes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deletes_total",
			Help:      "Cache deletes per tier.",
		}, tierLabels),
		errors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Tier operation errors.",
		}, tierLabels),
		evictions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "LRU evictions from the memory tier.",
		}, cacheLabels),
		hitRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hit_rate",
			Help:      "Overall hit rate across all tiers.",
		}, cacheLabels),
		prefetches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prefetch_hits_total",
			Help:      "Hits served from prefetched entries.",
		}, cacheLabels),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "l2_connected",
			Help:      "Whether the distributed tier is connected (1) or not (0).",
		}, cacheLabels),
	}

	c.registry.MustRegister(
		c.hits, c.misses, c.sets, c.deletes, c.errors,
		c.evictions, c.hitRate, c.prefetches, c.connected,
	)

	return c
}

// Update refreshes the exported series from a metrics snapshot.
func (c *Collector) Update(cacheName string, m types.CacheMetrics) {
	tiers := map[string]types.TierMetrics{
		"l1": m.L1,
		"l2": m.L2,
		"l3": m.L3,
	}
	for tier, tm := range tiers {
		labels := prometheus.Labels{"cache": cacheName, "tier": tier}
		c.hits.With(labels).Set(float64(tm.Hits))
		c.misses.With(labels).Set(float64(tm.Misses))
		c.sets.With(labels).Set(float64(tm.Sets))
		c.deletes.With(labels).Set(float64(tm.Deletes))
		c.errors.With(labels).Set(float64(tm.Errors))
	}

	cacheLabel := prometheus.Labels{"cache": cacheName}
	c.evictions.With(cacheLabel).Set(float64(m.L1.Evictions))
	c.hitRate.With(cacheLabel).Set(m.Overall.OverallHitRate)
	c.prefetches.With(cacheLabel).Set(float64(m.Overall.PrefetchHits))

	connected := 0.0
	if m.L2.ConnectionStatus == types.ConnConnected.String() {
		connected = 1.0
	}
	c.connected.With(cacheLabel).Set(connected)
}

// Handler returns the scrape handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
