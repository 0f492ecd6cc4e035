package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Load loads configuration from a JSON or YAML file, chosen by extension.
// An empty path or a missing file returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads a config file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADECACHE_L1_ENABLED"); v != "" {
		cfg.L1.Enabled = parseBool(v)
	}
	if v := os.Getenv("TRADECACHE_L1_MAX_SIZE"); v != "" {
		cfg.L1.MaxSize = parseInt(v, cfg.L1.MaxSize)
	}
	if v := os.Getenv("TRADECACHE_L1_MAX_AGE"); v != "" {
		cfg.L1.MaxAge = parseDuration(v, cfg.L1.MaxAge)
	}

	if v := os.Getenv("TRADECACHE_L2_ENABLED"); v != "" {
		cfg.L2.Enabled = parseBool(v)
	}
	if v := os.Getenv("TRADECACHE_L2_ADDRESS"); v != "" {
		cfg.L2.Address = v
	}
	if v := os.Getenv("TRADECACHE_L2_PASSWORD"); v != "" {
		cfg.L2.Password = NewSecretString(v)
	}
	if v := os.Getenv("TRADECACHE_L2_DB"); v != "" {
		cfg.L2.DB = parseInt(v, cfg.L2.DB)
	}
	if v := os.Getenv("TRADECACHE_L2_KEY_PREFIX"); v != "" {
		cfg.L2.KeyPrefix = v
	}
	if v := os.Getenv("TRADECACHE_L2_DEFAULT_TTL"); v != "" {
		cfg.L2.DefaultTTL = parseDuration(v, cfg.L2.DefaultTTL)
	}
	if v := os.Getenv("TRADECACHE_L2_MAX_RETRIES"); v != "" {
		cfg.L2.MaxRetries = parseInt(v, cfg.L2.MaxRetries)
	}

	if v := os.Getenv("TRADECACHE_L3_ENABLED"); v != "" {
		cfg.L3.Enabled = parseBool(v)
	}
	if v := os.Getenv("TRADECACHE_L3_DIRECTORY"); v != "" {
		cfg.L3.Directory = v
	}
	if v := os.Getenv("TRADECACHE_L3_BUCKET"); v != "" {
		cfg.L3.Bucket = v
	}
	if v := os.Getenv("TRADECACHE_L3_REGION"); v != "" {
		cfg.L3.Region = v
	}

	if v := os.Getenv("TRADECACHE_PREFETCH_ENABLED"); v != "" {
		cfg.Prefetch.Enabled = parseBool(v)
	}
	if v := os.Getenv("TRADECACHE_PREFETCH_THRESHOLD"); v != "" {
		cfg.Prefetch.Threshold = parseInt(v, cfg.Prefetch.Threshold)
	}

	if v := os.Getenv("TRADECACHE_METRICS_ENABLED"); v != "" {
		cfg.Performance.EnableMetrics = parseBool(v)
	}
	if v := os.Getenv("TRADECACHE_METRICS_INTERVAL"); v != "" {
		cfg.Performance.MetricsInterval = parseDuration(v, cfg.Performance.MetricsInterval)
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	// Bare integers are treated as seconds.
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}
