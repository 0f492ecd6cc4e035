package tradecache

import (
	"github.com/southerncoder/tradecache/internal/cache"
	"github.com/southerncoder/tradecache/internal/config"
)

// Cache is the public handle to one tiered cache instance.
type Cache = cache.IntelligentCache

// Registry tracks named cache instances.
type Registry = cache.Registry

// New creates a cache with default configuration (L1 only).
func New(opts ...Option) (*Cache, error) {
	return NewFromConfig(config.DefaultConfig(), opts...)
}

// NewFromConfig creates a cache from configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Cache, error) {
	return cache.New(cfg, opts...)
}

// NewFromFile creates a cache from a JSON or YAML config file with
// environment overrides applied.
func NewFromFile(path string, opts ...Option) (*Cache, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// ForProfile creates a cache preset for a named workload class: news,
// social, fundamentals, or market-data.
func ForProfile(profile string, opts ...Option) (*Cache, error) {
	cfg, err := config.ForProfile(profile)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// NewRegistry creates a registry whose caches all share the given options.
func NewRegistry(opts ...Option) *Registry {
	return cache.NewRegistry(nil, opts...)
}

// Config returns a default configuration that can be modified before
// creating a cache.
func Config() *config.Config {
	return config.DefaultConfig()
}

// TestConfig returns a configuration suitable for unit tests.
func TestConfig() *config.Config {
	return config.ForTesting()
}
