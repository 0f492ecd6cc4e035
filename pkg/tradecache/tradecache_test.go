package tradecache_test

import (
	"context"
	"testing"
	"time"

	"github.com/southerncoder/tradecache/pkg/tradecache"
)

func TestPublicRoundtrip(t *testing.T) {
	c, err := tradecache.NewFromConfig(tradecache.TestConfig())
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	ctx := context.Background()
	defer c.Destroy(ctx)

	if err := c.Set(ctx, "quote:AAPL", 187.5, tradecache.WithTTL(time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var price float64
	if err := c.Get(ctx, "quote:AAPL", &price); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if price != 187.5 {
		t.Errorf("price = %v", price)
	}

	err = c.Get(ctx, "absent", &price)
	if !tradecache.IsCacheMiss(err) {
		t.Errorf("expected cache miss, got %v", err)
	}
}

func TestPublicProfiles(t *testing.T) {
	registry := tradecache.NewRegistry()
	defer registry.DestroyAll(context.Background())

	c, err := registry.ForProfile(tradecache.ProfileMarketData)
	if err != nil {
		t.Fatalf("ForProfile failed: %v", err)
	}
	if c.Name() != tradecache.ProfileMarketData {
		t.Errorf("Name = %q", c.Name())
	}

	if _, err := tradecache.ForProfile("unknown"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestPublicEvents(t *testing.T) {
	c, err := tradecache.NewFromConfig(tradecache.TestConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	defer c.Destroy(ctx)

	got := make(chan tradecache.Event, 1)
	c.Subscribe(func(e tradecache.Event) {
		if e.Type == tradecache.EventSet {
			select {
			case got <- e:
			default:
			}
		}
	})

	if err := c.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-got:
		if e.Key != "k" {
			t.Errorf("event key = %q", e.Key)
		}
	default:
		t.Error("no set event delivered")
	}
}
