package tradecache

import "github.com/southerncoder/tradecache/internal/types"

// Sentinel errors returned by cache operations.
var (
	// ErrCacheMiss is returned by Get when no tier holds a live value.
	ErrCacheMiss = types.ErrCacheMiss
	// ErrDestroyed is returned by every operation after Destroy.
	ErrDestroyed = types.ErrDestroyed
	// ErrNoGenerator is returned by Prefetch when the request has no generator.
	ErrNoGenerator = types.ErrNoGenerator
	// ErrUnknownCache is returned by registry lookups for unregistered names.
	ErrUnknownCache = types.ErrUnknownCache
	// ErrTierUnavailable signals a tier that is configured but unreachable.
	ErrTierUnavailable = types.ErrTierUnavailable
)

// CacheError wraps a tier failure with its operation, key, and component.
type CacheError = types.CacheError

// IsCacheMiss reports whether err is a cache miss.
func IsCacheMiss(err error) bool { return types.IsCacheMiss(err) }

// IsTierUnavailable reports whether err signals an unreachable tier.
func IsTierUnavailable(err error) bool { return types.IsTierUnavailable(err) }
