// Package config provides configuration management for tradecache.
package config

import (
	"fmt"
	"time"

	"github.com/southerncoder/tradecache/internal/types"
)

// SecretString is a string type that redacts its value when marshaled.
type SecretString = types.SecretString

// NewSecretString creates a new SecretString with the provided value.
func NewSecretString(value string) SecretString {
	return types.NewSecretString(value)
}

// Config contains all configuration for one cache instance.
type Config struct {
	// Name identifies the instance in events, metrics, and the registry.
	Name string `json:"name" yaml:"name"`

	L1          L1Config          `json:"l1" yaml:"l1"`
	L2          L2Config          `json:"l2" yaml:"l2"`
	L3          L3Config          `json:"l3" yaml:"l3"`
	Prefetch    PrefetchConfig    `json:"prefetch" yaml:"prefetch"`
	Performance PerformanceConfig `json:"performance" yaml:"performance"`
	DataDog     DataDogConfig     `json:"datadog" yaml:"datadog"`
}

// L1Config bounds the in-memory LRU tier.
type L1Config struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxSize bounds the entry count; the LRU evicts past it.
	MaxSize int `json:"maxSize" yaml:"maxSize"`

	// MaxAge is the default TTL applied when a Set carries none.
	MaxAge time.Duration `json:"maxAge" yaml:"maxAge"`

	// UpdateAgeOnGet refreshes LRU recency on read hits.
	UpdateAgeOnGet bool `json:"updateAgeOnGet" yaml:"updateAgeOnGet"`
}

// L2Config holds the distributed-store connection parameters.
type L2Config struct {
	Enabled    bool          `json:"enabled" yaml:"enabled"`
	Address    string        `json:"address" yaml:"address"`
	Password   SecretString  `json:"password" yaml:"password"`
	DB         int           `json:"db" yaml:"db"`
	KeyPrefix  string        `json:"keyPrefix" yaml:"keyPrefix"`
	DefaultTTL time.Duration `json:"defaultTTL" yaml:"defaultTTL"`

	// MaxRetries and RetryDelay drive the tier adapter's command retry
	// policy. The orchestrator itself never retries.
	MaxRetries int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay time.Duration `json:"retryDelay" yaml:"retryDelay"`

	DialTimeout         time.Duration `json:"dialTimeout" yaml:"dialTimeout"`
	ReadTimeout         time.Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout        time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
	PoolSize            int           `json:"poolSize" yaml:"poolSize"`
	HealthCheckInterval time.Duration `json:"healthCheckInterval" yaml:"healthCheckInterval"`
}

// L3Config toggles the persistent tier. Exactly one backend is used:
// Directory selects the file-backed store, Bucket the S3-backed one.
type L3Config struct {
	Enabled         bool          `json:"enabled" yaml:"enabled"`
	Directory       string        `json:"directory" yaml:"directory"`
	Bucket          string        `json:"bucket" yaml:"bucket"`
	Region          string        `json:"region" yaml:"region"`
	KeyPrefix       string        `json:"keyPrefix" yaml:"keyPrefix"`
	DefaultTTL      time.Duration `json:"defaultTTL" yaml:"defaultTTL"`
	CleanupInterval time.Duration `json:"cleanupInterval" yaml:"cleanupInterval"`
}

// PrefetchConfig governs proactive warming.
type PrefetchConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Threshold is the access count at which a key becomes a prefetch
	// candidate. Candidates are surfaced as events, never auto-generated.
	Threshold int `json:"threshold" yaml:"threshold"`

	BatchSize     int `json:"batchSize" yaml:"batchSize"`
	MaxConcurrent int `json:"maxConcurrent" yaml:"maxConcurrent"`
}

// PerformanceConfig covers instrumentation and the compression policy hook.
type PerformanceConfig struct {
	EnableMetrics   bool          `json:"enableMetrics" yaml:"enableMetrics"`
	MetricsInterval time.Duration `json:"metricsInterval" yaml:"metricsInterval"`

	// CompressionEnabled flags payloads at or above CompressionThreshold
	// bytes; the persistent tier gzips flagged entries.
	CompressionEnabled   bool `json:"compressionEnabled" yaml:"compressionEnabled"`
	CompressionThreshold int  `json:"compressionThreshold" yaml:"compressionThreshold"`

	// PatternStaleness is the inactivity window after which Optimize
	// prunes an access pattern.
	PatternStaleness time.Duration `json:"patternStaleness" yaml:"patternStaleness"`
}

// DataDogConfig controls the optional StatsD metrics publisher.
type DataDogConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	AgentHost string   `json:"agentHost" yaml:"agentHost"`
	Port      int      `json:"port" yaml:"port"`
	Prefix    string   `json:"prefix" yaml:"prefix"`
	Tags      []string `json:"tags" yaml:"tags"`
}

// Validate checks invariants that would otherwise surface as runtime faults.
func (c *Config) Validate() error {
	if c.L1.Enabled && c.L1.MaxSize <= 0 {
		return fmt.Errorf("l1.maxSize must be positive")
	}
	if c.L2.Enabled && c.L2.PoolSize < 0 {
		return fmt.Errorf("l2.poolSize must not be negative")
	}
	if c.L3.Enabled && c.L3.Directory != "" && c.L3.Bucket != "" {
		return fmt.Errorf("l3: directory and bucket are mutually exclusive")
	}
	if c.Prefetch.Enabled {
		if c.Prefetch.BatchSize <= 0 {
			return fmt.Errorf("prefetch.batchSize must be positive")
		}
		if c.Prefetch.MaxConcurrent <= 0 {
			return fmt.Errorf("prefetch.maxConcurrent must be positive")
		}
	}
	if c.Performance.CompressionEnabled && c.Performance.CompressionThreshold <= 0 {
		return fmt.Errorf("performance.compressionThreshold must be positive")
	}
	if c.DataDog.Enabled && c.DataDog.AgentHost == "" {
		return fmt.Errorf("datadog.agentHost is required when datadog is enabled")
	}
	return nil
}
