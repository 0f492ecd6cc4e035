package types

import (
	"context"
)

// TierInfo is implemented by every tier adapter.
type TierInfo interface {
	Name() string
	IsAvailable() bool
}

// MemoryTier is the synchronous in-process L1 layer.
type MemoryTier interface {
	TierInfo
	Get(key string) (*Entry, bool)
	Set(entry *Entry)
	Delete(key string) bool
	Clear()
	Len() int
	Cap() int
	RemoveExpired() int
	Close() error
}

// DistributedTier is the L2 layer backed by a shared key-value store.
// Lookups return (nil, nil) on a clean miss; an error signals a tier
// failure the orchestrator records and degrades past.
type DistributedTier interface {
	TierInfo
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
	Status() ConnectionStatus
	Close() error
}

// PersistentStore is the pluggable L3 contract. Implementations may be
// file-backed, object-store-backed, or absent entirely.
type PersistentStore interface {
	GetFromStore(ctx context.Context, key string) (*Entry, error)
	SetToStore(ctx context.Context, entry *Entry) error
	DeleteFromStore(ctx context.Context, key string) (bool, error)
	ClearStore(ctx context.Context) error
	Close() error
}

// Serializer converts cache values to and from their uniform wire format.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
}

// EventSink receives lifecycle events for external observers. Implementations
// must not block; slow consumers should buffer internally.
type EventSink interface {
	Publish(event Event)
}
