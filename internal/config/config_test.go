// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.TMDB.APIKey = "0123456789abcdef"
	return cfg
}

// TestDefaultConfig verifies that defaultConfig() returns the documented defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Feed.BatchSize != 20 {
		t.Errorf("Feed.BatchSize = %d, want 20", cfg.Feed.BatchSize)
	}
	if cfg.Feed.MinPool != 10 {
		t.Errorf("Feed.MinPool = %d, want 10", cfg.Feed.MinPool)
	}
	if cfg.Cache.Capacity != 50 || cfg.Cache.Policy != "fifo" {
		t.Errorf("Cache = %+v, want capacity 50 fifo", cfg.Cache)
	}
	if cfg.TMDB.Language != "en-US" {
		t.Errorf("TMDB.Language = %q, want en-US", cfg.TMDB.Language)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Server.Addr() = %q", cfg.Server.Addr())
	}
	if cfg.TMDB.APIKey != "" {
		t.Error("TMDB.APIKey must have no default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing api key", func(c *Config) { c.TMDB.APIKey = "" }, "TMDB_API_KEY is required"},
		{"placeholder api key", func(c *Config) { c.TMDB.APIKey = "REPLACE_ME" }, "placeholder"},
		{"relative base url", func(c *Config) { c.TMDB.BaseURL = "/api" }, "TMDB_BASE_URL"},
		{"bad breaker ratio", func(c *Config) { c.TMDB.BreakerFailureRatio = 1.5 }, "TMDB_BREAKER_FAILURE_RATIO"},
		{"batch too large", func(c *Config) { c.Feed.BatchSize = 500 }, "FEED_BATCH_SIZE"},
		{"zero concurrency", func(c *Config) { c.Feed.Concurrency = 0 }, "FEED_CONCURRENCY"},
		{"zero capacity", func(c *Config) { c.Cache.Capacity = 0 }, "CACHE_CAPACITY"},
		{"unknown policy", func(c *Config) { c.Cache.Policy = "random" }, "CACHE_POLICY"},
		{"lru policy", func(c *Config) { c.Cache.Policy = "LRU" }, ""},
		{"no store path", func(c *Config) { c.Store.Path = "" }, "STORE_PATH"},
		{"in memory store", func(c *Config) { c.Store.Path = ""; c.Store.InMemory = true }, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"rate limit window", func(c *Config) { c.Security.RateLimitWindow = time.Millisecond }, "RATE_LIMIT_WINDOW"},
		{"rate limit disabled", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
tmdb:
  api_key: from-file-key
  language: fr-FR
feed:
  batch_size: 15
cache:
  policy: lru
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("FEED_BATCH_SIZE", "12")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TMDB_TIMEOUT", "3s")
	t.Setenv("STORE_IN_MEMORY", "true")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TMDB.APIKey != "from-file-key" || cfg.TMDB.Language != "fr-FR" {
		t.Errorf("file values not applied: %+v", cfg.TMDB)
	}
	if cfg.Feed.BatchSize != 12 {
		t.Errorf("Feed.BatchSize = %d, want env value 12", cfg.Feed.BatchSize)
	}
	if cfg.Cache.Policy != "lru" {
		t.Errorf("Cache.Policy = %q, want lru", cfg.Cache.Policy)
	}
	if cfg.TMDB.Timeout != 3*time.Second {
		t.Errorf("TMDB.Timeout = %v, want 3s", cfg.TMDB.Timeout)
	}
	if !cfg.Store.InMemory {
		t.Error("Store.InMemory should be true")
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[0] != want[0] || cfg.Security.CORSOrigins[1] != want[1] {
		t.Errorf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	if cfg.Feed.MinPool != 10 {
		t.Errorf("Feed.MinPool = %d, want default 10", cfg.Feed.MinPool)
	}
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("TMDB_API_KEY", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "TMDB_API_KEY") {
		t.Errorf("Load() error = %v, want TMDB_API_KEY error", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"TMDB_API_KEY":   "tmdb.api_key",
		"CACHE_CAPACITY": "cache.capacity",
		"HTTP_PORT":      "server.port",
		"LOG_LEVEL":      "logging.level",
		"HOME":           "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHasWildcardCORS(t *testing.T) {
	cfg := validConfig()
	if !cfg.HasWildcardCORS() {
		t.Error("default CORS should be a wildcard")
	}
	cfg.Security.CORSOrigins = []string{"https://app.example"}
	if cfg.HasWildcardCORS() {
		t.Error("explicit origins are not a wildcard")
	}
}
