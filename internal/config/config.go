// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leonardcser/train-mcp/internal/cache"
)

const (
	EnvCacheSock     = "TRAIN_MCP_CACHE_SOCK"
	EnvCacheDB       = "TRAIN_MCP_CACHE_DB"
	EnvCacheTTL      = "TRAIN_MCP_CACHE_TTL"
	EnvFallbackTTL   = "TRAIN_MCP_FALLBACK_TTL"
	EnvLatency       = "TRAIN_MCP_LATENCY"
	EnvSweepInterval = "TRAIN_MCP_SWEEP_INTERVAL"
	EnvSharedCache   = "TRAIN_MCP_SHARED_CACHE"

	// MemoryDB selects the non-persistent daemon store.
	MemoryDB = ":memory:"
)

type Config struct {
	// SocketPath is where the cache daemon listens.
	SocketPath string
	// DBPath is the bbolt file of the daemon; empty or MemoryDB keeps entries in memory.
	DBPath string
	// CacheTTL applies to successful searches.
	CacheTTL time.Duration
	// FallbackTTL applies to results produced after a provider failure.
	FallbackTTL time.Duration
	// Latency is the simulated provider delay.
	Latency time.Duration
	// SweepInterval is how often the daemon evicts expired entries.
	SweepInterval time.Duration
	// SharedCache enables the daemon-backed second tier.
	SharedCache bool
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		SocketPath:    filepath.Join(cacheDir(), "cache.sock"),
		DBPath:        filepath.Join(cacheDir(), "cache.bbolt"),
		CacheTTL:      cache.DefaultTTL,
		FallbackTTL:   time.Minute,
		Latency:       1200 * time.Millisecond,
		SweepInterval: time.Minute,
		SharedCache:   true,
	}
}

// Load overlays environment variables on Default.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookupEnv func(string) (string, bool)) (Config, error) {
	getenv := func(key string) string {
		v, _ := lookupEnv(key)
		return v
	}
	cfg := Default()
	cfg.SocketPath = defaultString(getenv(EnvCacheSock), cfg.SocketPath)
	// An explicitly empty database path selects the in-memory store.
	if v, ok := lookupEnv(EnvCacheDB); ok {
		cfg.DBPath = v
	}
	durations := []struct {
		env string
		dst *time.Duration
	}{
		{EnvCacheTTL, &cfg.CacheTTL},
		{EnvFallbackTTL, &cfg.FallbackTTL},
		{EnvLatency, &cfg.Latency},
		{EnvSweepInterval, &cfg.SweepInterval},
	}
	for _, d := range durations {
		v := getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", d.env, err)
		}
		if parsed < 0 {
			return Config{}, fmt.Errorf("config: %s must not be negative", d.env)
		}
		*d.dst = parsed
	}
	switch getenv(EnvSharedCache) {
	case "", "1", "true":
	case "0", "false":
		cfg.SharedCache = false
	default:
		return Config{}, fmt.Errorf("config: %s must be 0 or 1", EnvSharedCache)
	}
	return cfg, nil
}

// InMemory reports whether the daemon should skip the database file.
func (c Config) InMemory() bool {
	return c.DBPath == "" || c.DBPath == MemoryDB
}

func cacheDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "train-mcp")
}

func defaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
