package types

import "time"

// SetOptions carries per-call overrides for Set.
type SetOptions struct {
	// TTL overrides every tier's default for this call when positive.
	TTL time.Duration
}

// SetOption is a functional option for Set calls.
type SetOption func(*SetOptions)

// WithTTL applies an explicit TTL uniformly across all tiers for one call.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *SetOptions) {
		o.TTL = ttl
	}
}

// ApplySetOptions folds functional options into a SetOptions value.
func ApplySetOptions(opts ...SetOption) SetOptions {
	var options SetOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
