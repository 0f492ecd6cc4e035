package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/types"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	t.Cleanup(func() { _ = r.DestroyAll(context.Background()) })
	return r
}

func TestRegistryGetOrCreate(t *testing.T) {
	r := newTestRegistry(t)

	first, err := r.GetOrCreate("news", config.ForTesting())
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if first.Name() != "news" {
		t.Errorf("Name = %q, want news", first.Name())
	}

	second, err := r.GetOrCreate("news", config.ForTesting())
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected the same instance for the same name")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Get("nope")
	if !errors.Is(err, types.ErrUnknownCache) {
		t.Fatalf("expected ErrUnknownCache, got %v", err)
	}
}

func TestRegistryForProfile(t *testing.T) {
	r := newTestRegistry(t)

	market, err := r.ForProfile(config.ProfileMarketData)
	if err != nil {
		t.Fatalf("ForProfile failed: %v", err)
	}
	if market.Name() != config.ProfileMarketData {
		t.Errorf("Name = %q", market.Name())
	}

	again, err := r.ForProfile(config.ProfileMarketData)
	if err != nil {
		t.Fatal(err)
	}
	if market != again {
		t.Error("expected profile caches to be singletons")
	}

	if _, err := r.ForProfile("crypto"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestRegistryConcurrentGetOrCreate(t *testing.T) {
	r := newTestRegistry(t)

	var wg sync.WaitGroup
	instances := make([]*IntelligentCache, 8)
	for i := range instances {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := r.GetOrCreate("shared", config.ForTesting())
			if err != nil {
				t.Errorf("GetOrCreate failed: %v", err)
				return
			}
			instances[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range instances[1:] {
		if c != instances[0] {
			t.Fatal("concurrent GetOrCreate produced distinct instances")
		}
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistryMetricsAndNames(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	news, err := r.GetOrCreate("news", config.ForTesting())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetOrCreate("social", config.ForTesting()); err != nil {
		t.Fatal(err)
	}

	if err := news.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	var got string
	if err := news.Get(ctx, "k", &got); err != nil {
		t.Fatal(err)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "news" || names[1] != "social" {
		t.Errorf("Names = %v", names)
	}

	all := r.Metrics()
	if all["news"].L1.Hits != 1 {
		t.Errorf("news L1.Hits = %d, want 1", all["news"].L1.Hits)
	}
	if all["social"].L1.Hits != 0 {
		t.Errorf("social L1.Hits = %d, want 0", all["social"].L1.Hits)
	}
}

func TestRegistryClearAllAndOptimizeAll(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	news, err := r.GetOrCreate("news", config.ForTesting())
	if err != nil {
		t.Fatal(err)
	}
	if err := news.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}

	results := r.OptimizeAll(ctx)
	if _, ok := results["news"]; !ok {
		t.Error("OptimizeAll skipped news")
	}

	if err := r.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if news.SizeInfo().L1Size != 0 {
		t.Error("ClearAll left entries behind")
	}
}

func TestRegistryRemoveAndDestroyAll(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	news, err := r.GetOrCreate("news", config.ForTesting())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetOrCreate("social", config.ForTesting()); err != nil {
		t.Fatal(err)
	}

	if err := r.Remove(ctx, "news"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := news.Set(ctx, "k", "v"); !errors.Is(err, types.ErrDestroyed) {
		t.Errorf("removed cache still alive: %v", err)
	}
	if err := r.Remove(ctx, "news"); !errors.Is(err, types.ErrUnknownCache) {
		t.Errorf("second Remove = %v, want ErrUnknownCache", err)
	}

	social, err := r.Get("social")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.DestroyAll(ctx); err != nil {
		t.Fatalf("DestroyAll failed: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d after DestroyAll, want 0", r.Len())
	}
	if err := social.Set(ctx, "k", "v"); !errors.Is(err, types.ErrDestroyed) {
		t.Errorf("destroyed cache still alive: %v", err)
	}
}
