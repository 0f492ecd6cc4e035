package config

import (
	"fmt"
	"time"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name: "default",
		L1: L1Config{
			Enabled:        true,
			MaxSize:        1000,
			MaxAge:         5 * time.Minute,
			UpdateAgeOnGet: true,
		},
		L2: L2Config{
			Enabled:             false,
			Address:             "localhost:6379",
			KeyPrefix:           "tradecache:",
			DefaultTTL:          15 * time.Minute,
			MaxRetries:          3,
			RetryDelay:          100 * time.Millisecond,
			DialTimeout:         5 * time.Second,
			ReadTimeout:         3 * time.Second,
			WriteTimeout:        3 * time.Second,
			PoolSize:            100,
			HealthCheckInterval: 5 * time.Second,
		},
		L3: L3Config{
			Enabled:         false,
			KeyPrefix:       "tradecache/",
			DefaultTTL:      time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Prefetch: PrefetchConfig{
			Enabled:       true,
			Threshold:     5,
			BatchSize:     10,
			MaxConcurrent: 4,
		},
		Performance: PerformanceConfig{
			EnableMetrics:        true,
			MetricsInterval:      30 * time.Second,
			CompressionEnabled:   true,
			CompressionThreshold: 10 * 1024,
			PatternStaleness:     24 * time.Hour,
		},
		DataDog: DataDogConfig{
			Enabled:   false,
			AgentHost: "localhost",
			Port:      8125,
			Prefix:    "tradecache",
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests:
// L1 only, no timers, prefetch enabled with a low threshold.
func ForTesting() *Config {
	return &Config{
		Name: "test",
		L1: L1Config{
			Enabled:        true,
			MaxSize:        64,
			MaxAge:         time.Minute,
			UpdateAgeOnGet: true,
		},
		L2: L2Config{
			Enabled:    false,
			Address:    "localhost:6379",
			KeyPrefix:  "test:",
			DefaultTTL: time.Minute,
			MaxRetries: 1,
			RetryDelay: 10 * time.Millisecond,
		},
		L3: L3Config{
			Enabled:    false,
			DefaultTTL: time.Minute,
		},
		Prefetch: PrefetchConfig{
			Enabled:       true,
			Threshold:     3,
			BatchSize:     5,
			MaxConcurrent: 2,
		},
		Performance: PerformanceConfig{
			EnableMetrics:        false,
			CompressionEnabled:   true,
			CompressionThreshold: 1024,
			PatternStaleness:     time.Hour,
		},
	}
}

// Profile names recognized by ForProfile. Each data class gets tier sizes
// and TTLs tuned to its staleness tolerance.
const (
	ProfileNews         = "news"
	ProfileSocial       = "social"
	ProfileFundamentals = "fundamentals"
	ProfileMarketData   = "market-data"
)

// ForProfile returns the preset configuration for a named workload class.
func ForProfile(profile string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Name = profile

	switch profile {
	case ProfileNews:
		cfg.L1.MaxSize = 500
		cfg.L1.MaxAge = 10 * time.Minute
		cfg.L2.KeyPrefix = "tradecache:news:"
		cfg.L2.DefaultTTL = 30 * time.Minute
	case ProfileSocial:
		cfg.L1.MaxSize = 1000
		cfg.L1.MaxAge = 5 * time.Minute
		cfg.L2.KeyPrefix = "tradecache:social:"
		cfg.L2.DefaultTTL = 15 * time.Minute
	case ProfileFundamentals:
		// Fundamentals move slowly; hold them far longer.
		cfg.L1.MaxSize = 200
		cfg.L1.MaxAge = time.Hour
		cfg.L2.KeyPrefix = "tradecache:fundamentals:"
		cfg.L2.DefaultTTL = 4 * time.Hour
	case ProfileMarketData:
		cfg.L1.MaxSize = 2000
		cfg.L1.MaxAge = time.Minute
		cfg.L2.KeyPrefix = "tradecache:market:"
		cfg.L2.DefaultTTL = 5 * time.Minute
	default:
		return nil, fmt.Errorf("unknown cache profile %q", profile)
	}

	return cfg, nil
}
