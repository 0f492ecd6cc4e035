package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/southerncoder/tradecache/internal/types"
)

func TestTrackerSnapshot(t *testing.T) {
	tr := NewTracker()

	tr.RecordHit(types.TierL1)
	tr.RecordHit(types.TierL1)
	tr.RecordHit(types.TierL2)
	tr.RecordMiss(types.TierL1)
	tr.RecordMiss(types.TierL2)
	tr.RecordSet(types.TierL3)
	tr.RecordEviction(types.TierL1)
	tr.RecordError(types.TierL2)
	tr.RecordPrefetchHit()

	m := tr.Snapshot(types.ConnConnected)

	if m.L1.Hits != 2 || m.L2.Hits != 1 || m.L3.Hits != 0 {
		t.Errorf("unexpected hit counts: l1=%d l2=%d l3=%d", m.L1.Hits, m.L2.Hits, m.L3.Hits)
	}
	if m.L1.Evictions != 1 {
		t.Errorf("L1.Evictions = %d, want 1", m.L1.Evictions)
	}
	if m.L2.Errors != 1 {
		t.Errorf("L2.Errors = %d, want 1", m.L2.Errors)
	}
	if m.L2.ConnectionStatus != "connected" {
		t.Errorf("L2.ConnectionStatus = %q, want connected", m.L2.ConnectionStatus)
	}
	if m.Overall.TotalHits != 3 || m.Overall.TotalMisses != 2 {
		t.Errorf("overall hits/misses = %d/%d, want 3/2", m.Overall.TotalHits, m.Overall.TotalMisses)
	}
	if got, want := m.Overall.OverallHitRate, 3.0/5.0; got != want {
		t.Errorf("OverallHitRate = %v, want %v", got, want)
	}
	if m.Overall.PrefetchHits != 1 {
		t.Errorf("PrefetchHits = %d, want 1", m.Overall.PrefetchHits)
	}
}

func TestTrackerEmptySnapshot(t *testing.T) {
	m := NewTracker().Snapshot(types.ConnDisconnected)

	if m.Overall.OverallHitRate != 0 {
		t.Errorf("expected zero hit rate with no traffic, got %v", m.Overall.OverallHitRate)
	}
	if m.L2.ConnectionStatus != "disconnected" {
		t.Errorf("L2.ConnectionStatus = %q, want disconnected", m.L2.ConnectionStatus)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.RecordHit(types.TierL1)
	tr.RecordPrefetchHit()
	tr.RecordPrefetchCandidate()

	tr.Reset()

	m := tr.Snapshot(types.ConnDisconnected)
	if m.Overall.TotalHits != 0 || m.Overall.PrefetchHits != 0 {
		t.Errorf("counters survived reset: %+v", m.Overall)
	}
	if tr.PrefetchCandidates() != 0 {
		t.Errorf("PrefetchCandidates = %d after reset", tr.PrefetchCandidates())
	}
}

func TestTrackerConcurrentRecording(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.RecordHit(types.TierL1)
				tr.RecordMiss(types.TierL2)
			}
		}()
	}
	wg.Wait()

	m := tr.Snapshot(types.ConnDisconnected)
	if m.L1.Hits != 800 || m.L2.Misses != 800 {
		t.Errorf("lost updates: hits=%d misses=%d, want 800/800", m.L1.Hits, m.L2.Misses)
	}
}

func TestCollectorExportsSnapshot(t *testing.T) {
	c := NewCollector("test")

	tr := NewTracker()
	tr.RecordHit(types.TierL1)
	tr.RecordMiss(types.TierL1)
	c.Update("news", tr.Snapshot(types.ConnConnected))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`test_hits_total{cache="news",tier="l1"} 1`,
		`test_misses_total{cache="news",tier="l1"} 1`,
		`test_hit_rate{cache="news"} 0.5`,
		`test_l2_connected{cache="news"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q\n%s", want, body)
		}
	}
}

func TestBackgroundPublisherPublishNow(t *testing.T) {
	tr := NewTracker()
	tr.RecordHit(types.TierL1)

	hub := types.NewEventHub()
	var mu sync.Mutex
	var got []types.Event
	hub.Subscribe(func(e types.Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	pub := &capturingPublisher{}
	b := NewBackgroundPublisher("news", pub, hub, time.Minute, func() types.CacheMetrics {
		return tr.Snapshot(types.ConnDisconnected)
	}, nil)

	b.PublishNow()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Type != types.EventMetricsUpdated {
		t.Fatalf("expected one metricsUpdated event, got %v", got)
	}
	if got[0].Metrics == nil || got[0].Metrics.L1.Hits != 1 {
		t.Errorf("event carried wrong snapshot: %+v", got[0].Metrics)
	}
	if pub.published != 1 {
		t.Errorf("publisher called %d times, want 1", pub.published)
	}
}

func TestBackgroundPublisherStartStop(t *testing.T) {
	tr := NewTracker()
	pub := &capturingPublisher{}
	b := NewBackgroundPublisher("news", pub, nil, 5*time.Millisecond, func() types.CacheMetrics {
		return tr.Snapshot(types.ConnDisconnected)
	}, nil)

	b.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	b.Stop()

	if pub.count() == 0 {
		t.Error("expected at least one periodic publish")
	}
}

type capturingPublisher struct {
	mu        sync.Mutex
	published int
}

func (p *capturingPublisher) Gauge(string, float64, ...string) {}
func (p *capturingPublisher) Count(string, int64, ...string)   {}

func (p *capturingPublisher) PublishCacheMetrics(string, *types.CacheMetrics) {
	p.mu.Lock()
	p.published++
	p.mu.Unlock()
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published
}
