package types

import (
	"sync"
	"time"
)

// EventType enumerates the lifecycle events a cache emits.
type EventType string

const (
	EventSet               EventType = "set"
	EventEvicted           EventType = "evicted"
	EventDeleted           EventType = "deleted"
	EventCleared           EventType = "cleared"
	EventMetricsUpdated    EventType = "metricsUpdated"
	EventOptimized         EventType = "optimized"
	EventPrefetchCandidate EventType = "prefetchCandidate"
)

// Event is the payload delivered to subscribers. Tier is empty for events
// that concern the whole cache (cleared, optimized, metricsUpdated).
type Event struct {
	Type      EventType     `json:"type"`
	Cache     string        `json:"cache"`
	Key       string        `json:"key,omitempty"`
	Tier      string        `json:"tier,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Metrics   *CacheMetrics `json:"metrics,omitempty"`
}

// EventHandler is invoked synchronously on the publishing goroutine.
type EventHandler func(Event)

// EventHub is an explicit observer registry: subscribe/unsubscribe rather
// than an event-emitter base class, so the contract stays testable.
type EventHub struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]EventHandler
	sinks    []EventSink
}

func NewEventHub(sinks ...EventSink) *EventHub {
	return &EventHub{
		handlers: make(map[int]EventHandler),
		sinks:    sinks,
	}
}

// Subscribe registers a handler and returns its subscription id.
func (h *EventHub) Subscribe(handler EventHandler) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.handlers[h.nextID] = handler
	return h.nextID
}

// Unsubscribe removes a previously registered handler.
func (h *EventHub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handlers, id)
}

// Publish fans the event out to every handler and sink.
func (h *EventHub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	handlers := make([]EventHandler, 0, len(h.handlers))
	for _, fn := range h.handlers {
		handlers = append(handlers, fn)
	}
	sinks := h.sinks
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(event)
	}
	for _, sink := range sinks {
		sink.Publish(event)
	}
}

// Reset detaches all handlers. Called during Destroy.
func (h *EventHub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = make(map[int]EventHandler)
	h.sinks = nil
}

// SubscriberCount reports how many handlers are attached.
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}
