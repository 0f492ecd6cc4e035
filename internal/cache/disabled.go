package cache

import (
	"context"

	"github.com/southerncoder/tradecache/internal/types"
)

// DisabledMemory stands in for L1 when the tier is switched off. Every
// lookup misses and writes are dropped.
type DisabledMemory struct{}

func (DisabledMemory) Name() string                    { return "l1" }
func (DisabledMemory) IsAvailable() bool               { return false }
func (DisabledMemory) Get(string) (*types.Entry, bool) { return nil, false }
func (DisabledMemory) Set(*types.Entry)                {}
func (DisabledMemory) Delete(string) bool              { return false }
func (DisabledMemory) Clear()                          {}
func (DisabledMemory) Len() int                        { return 0 }
func (DisabledMemory) Cap() int                        { return 0 }
func (DisabledMemory) RemoveExpired() int              { return 0 }
func (DisabledMemory) Close() error                    { return nil }

// DisabledDistributed stands in for L2 when the tier is switched off or its
// configuration is unusable. Lookups miss cleanly rather than erroring so
// the orchestrator degrades without counting tier failures.
type DisabledDistributed struct{}

func (DisabledDistributed) Name() string      { return "l2" }
func (DisabledDistributed) IsAvailable() bool { return false }

func (DisabledDistributed) Get(context.Context, string) (*types.Entry, error) {
	return nil, nil
}

func (DisabledDistributed) Set(context.Context, *types.Entry) error { return nil }

func (DisabledDistributed) Delete(context.Context, string) (bool, error) {
	return false, nil
}

func (DisabledDistributed) Clear(context.Context) error    { return nil }
func (DisabledDistributed) Status() types.ConnectionStatus { return types.ConnDisconnected }
func (DisabledDistributed) Close() error                   { return nil }

var (
	_ types.MemoryTier      = DisabledMemory{}
	_ types.DistributedTier = DisabledDistributed{}
)
