package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/types"
)

func testL1Config(maxSize int) config.L1Config {
	return config.L1Config{
		Enabled:        true,
		MaxSize:        maxSize,
		MaxAge:         time.Minute,
		UpdateAgeOnGet: true,
	}
}

func entryFor(key string, ttl time.Duration, at time.Time) *types.Entry {
	return &types.Entry{
		Key:       key,
		Value:     []byte(`"` + key + `"`),
		CreatedAt: at,
		TTL:       ttl,
	}
}

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache(testL1Config(10), nil, nil)
	defer mc.Close()

	mc.Set(entryFor("a", time.Minute, time.Now()))

	entry, ok := mc.Get("a")
	if !ok {
		t.Fatal("expected hit for key a")
	}
	if entry.AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1 after first read", entry.AccessCount)
	}

	if _, ok := mc.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	var evicted []string
	mc := NewMemoryCache(testL1Config(3), func(e *types.Entry) {
		evicted = append(evicted, e.Key)
	}, nil)
	defer mc.Close()

	now := time.Now()
	for _, k := range []string{"a", "b", "c"} {
		mc.Set(entryFor(k, time.Minute, now))
	}

	// Touch "a" so "b" is the LRU victim.
	if _, ok := mc.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}

	mc.Set(entryFor("d", time.Minute, now))

	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted %v, want [b]", evicted)
	}
	if _, ok := mc.Get("b"); ok {
		t.Error("expected b to be gone")
	}
	if _, ok := mc.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if mc.Len() != 3 {
		t.Errorf("Len = %d, want 3", mc.Len())
	}
}

func TestMemoryCacheLazyExpiry(t *testing.T) {
	mc := NewMemoryCache(testL1Config(10), nil, nil)
	defer mc.Close()

	current := time.Unix(1000, 0)
	mc.now = func() time.Time { return current }

	mc.Set(entryFor("a", 10*time.Second, current))

	// Exactly at the TTL boundary the entry is still live.
	current = current.Add(10 * time.Second)
	if _, ok := mc.Get("a"); !ok {
		t.Error("expected hit exactly at TTL boundary")
	}

	current = current.Add(time.Nanosecond)
	if _, ok := mc.Get("a"); ok {
		t.Error("expected miss past the TTL")
	}
	if mc.Len() != 0 {
		t.Errorf("expired entry still resident, Len = %d", mc.Len())
	}
}

func TestMemoryCacheZeroTTLInheritsMaxAge(t *testing.T) {
	cfg := testL1Config(10)
	cfg.MaxAge = 30 * time.Second
	mc := NewMemoryCache(cfg, nil, nil)
	defer mc.Close()

	mc.Set(entryFor("a", 0, time.Now()))

	entry, ok := mc.Get("a")
	if !ok {
		t.Fatal("expected hit")
	}
	if entry.TTL != 30*time.Second {
		t.Errorf("TTL = %v, want tier maxAge 30s", entry.TTL)
	}
}

func TestMemoryCacheExpiryIsNotEviction(t *testing.T) {
	evictions := 0
	mc := NewMemoryCache(testL1Config(10), func(*types.Entry) { evictions++ }, nil)
	defer mc.Close()

	current := time.Unix(1000, 0)
	mc.now = func() time.Time { return current }

	mc.Set(entryFor("a", time.Second, current))
	current = current.Add(2 * time.Second)

	if _, ok := mc.Get("a"); ok {
		t.Fatal("expected expiry")
	}
	if evictions != 0 {
		t.Errorf("TTL expiry fired the eviction callback %d times", evictions)
	}
}

func TestMemoryCacheRemoveExpired(t *testing.T) {
	mc := NewMemoryCache(testL1Config(10), nil, nil)
	defer mc.Close()

	current := time.Unix(1000, 0)
	mc.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		mc.Set(entryFor(fmt.Sprintf("short-%d", i), time.Second, current))
	}
	mc.Set(entryFor("long", time.Hour, current))

	current = current.Add(time.Minute)

	if removed := mc.RemoveExpired(); removed != 5 {
		t.Errorf("RemoveExpired = %d, want 5", removed)
	}
	if mc.Len() != 1 {
		t.Errorf("Len = %d, want 1", mc.Len())
	}
	if _, ok := mc.Get("long"); !ok {
		t.Error("expected long-lived entry to survive the sweep")
	}
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	mc := NewMemoryCache(testL1Config(10), nil, nil)
	defer mc.Close()

	now := time.Now()
	mc.Set(entryFor("a", time.Minute, now))
	mc.Set(entryFor("b", time.Minute, now))

	if !mc.Delete("a") {
		t.Error("expected Delete to report removal")
	}
	if mc.Delete("a") {
		t.Error("expected second Delete to report absence")
	}

	mc.Clear()
	if mc.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", mc.Len())
	}
}

func TestMemoryCacheUpdateExistingKey(t *testing.T) {
	mc := NewMemoryCache(testL1Config(2), nil, nil)
	defer mc.Close()

	now := time.Now()
	mc.Set(entryFor("a", time.Minute, now))
	mc.Set(entryFor("b", time.Minute, now))

	updated := entryFor("a", time.Minute, now)
	updated.Value = []byte(`"fresh"`)
	mc.Set(updated)

	if mc.Len() != 2 {
		t.Errorf("Len = %d after in-place update, want 2", mc.Len())
	}

	entry, ok := mc.Get("a")
	if !ok {
		t.Fatal("expected hit for updated key")
	}
	if string(entry.Value) != `"fresh"` {
		t.Errorf("expected updated value, got %q", entry.Value)
	}
}

func TestMemoryCacheClosed(t *testing.T) {
	mc := NewMemoryCache(testL1Config(10), nil, nil)
	mc.Set(entryFor("a", time.Minute, time.Now()))

	if err := mc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if mc.IsAvailable() {
		t.Error("expected closed cache to be unavailable")
	}
	if _, ok := mc.Get("a"); ok {
		t.Error("expected miss after Close")
	}

	// Close twice is fine.
	if err := mc.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
