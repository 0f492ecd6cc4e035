package types

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss       = errors.New("cache: key not found")
	ErrTierUnavailable = errors.New("cache: tier unavailable")
	ErrTierDisabled    = errors.New("cache: tier disabled")
	ErrDestroyed       = errors.New("cache: instance destroyed")
	ErrNoGenerator     = errors.New("cache: prefetch request has no generator")
	ErrUnknownCache    = errors.New("cache: no such cache in registry")
)

// CacheError wraps an orchestration failure with its operation context.
// Tier-transient failures are never surfaced through this type; they are
// counted and swallowed.
type CacheError struct {
	Op        string
	Key       string
	Component string
	Timestamp time.Time
	Err       error
}

func (e *CacheError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cache %s on %s [%s]: %v", e.Op, e.Component, e.Key, e.Err)
	}
	return fmt.Sprintf("cache %s on %s: %v", e.Op, e.Component, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

func NewCacheError(op, key, component string, err error) *CacheError {
	return &CacheError{
		Op:        op,
		Key:       key,
		Component: component,
		Timestamp: time.Now(),
		Err:       err,
	}
}

func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

func IsTierUnavailable(err error) bool {
	return errors.Is(err, ErrTierUnavailable)
}
