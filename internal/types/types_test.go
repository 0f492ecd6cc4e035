package types

import (
	"testing"
	"time"
)

func TestEntryExpiredAt(t *testing.T) {
	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	t.Run("live before TTL elapses", func(t *testing.T) {
		e := &Entry{CreatedAt: base, TTL: 5 * time.Second}
		if e.ExpiredAt(base.Add(4 * time.Second)) {
			t.Error("entry expired before TTL elapsed")
		}
	})

	t.Run("expired after TTL elapses", func(t *testing.T) {
		e := &Entry{CreatedAt: base, TTL: 5 * time.Second}
		if !e.ExpiredAt(base.Add(6 * time.Second)) {
			t.Error("entry still live after TTL elapsed")
		}
	})

	t.Run("zero TTL never expires", func(t *testing.T) {
		e := &Entry{CreatedAt: base}
		if e.ExpiredAt(base.Add(24 * time.Hour)) {
			t.Error("zero-TTL entry expired")
		}
	})
}

func TestEntryTouch(t *testing.T) {
	now := time.Now()
	e := &Entry{}

	e.Touch(now)
	e.Touch(now.Add(time.Second))

	if e.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", e.AccessCount)
	}
	if !e.LastAccessedAt.Equal(now.Add(time.Second)) {
		t.Errorf("LastAccessedAt = %v, want %v", e.LastAccessedAt, now.Add(time.Second))
	}
}

func TestTierMetricsHitRate(t *testing.T) {
	t.Run("zero lookups yields zero", func(t *testing.T) {
		var m TierMetrics
		if got := m.HitRate(); got != 0 {
			t.Errorf("HitRate() = %v, want 0", got)
		}
	})

	t.Run("hits over total", func(t *testing.T) {
		m := TierMetrics{Hits: 3, Misses: 1}
		if got := m.HitRate(); got != 0.75 {
			t.Errorf("HitRate() = %v, want 0.75", got)
		}
	})
}

func TestEventHub(t *testing.T) {
	t.Run("subscribers receive published events", func(t *testing.T) {
		hub := NewEventHub()

		var got []EventType
		hub.Subscribe(func(e Event) {
			got = append(got, e.Type)
		})

		hub.Publish(Event{Type: EventSet, Cache: "news", Key: "k"})
		hub.Publish(Event{Type: EventCleared, Cache: "news"})

		if len(got) != 2 || got[0] != EventSet || got[1] != EventCleared {
			t.Errorf("received %v, want [set cleared]", got)
		}
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		hub := NewEventHub()

		var count int
		id := hub.Subscribe(func(Event) { count++ })

		hub.Publish(Event{Type: EventSet})
		hub.Unsubscribe(id)
		hub.Publish(Event{Type: EventSet})

		if count != 1 {
			t.Errorf("handler called %d times, want 1", count)
		}
	})

	t.Run("publish stamps missing timestamp", func(t *testing.T) {
		hub := NewEventHub()

		var got Event
		hub.Subscribe(func(e Event) { got = e })
		hub.Publish(Event{Type: EventOptimized})

		if got.Timestamp.IsZero() {
			t.Error("expected non-zero timestamp")
		}
	})

	t.Run("reset detaches all handlers", func(t *testing.T) {
		hub := NewEventHub()

		var count int
		hub.Subscribe(func(Event) { count++ })
		hub.Subscribe(func(Event) { count++ })
		hub.Reset()
		hub.Publish(Event{Type: EventSet})

		if count != 0 {
			t.Errorf("handlers called %d times after Reset, want 0", count)
		}
		if hub.SubscriberCount() != 0 {
			t.Errorf("SubscriberCount() = %d after Reset, want 0", hub.SubscriberCount())
		}
	})
}
