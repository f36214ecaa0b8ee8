// Package config loads jam's TOML configuration file.
//
// The file lives at ~/.config/jam/config.toml by default; every field is
// optional and a missing file yields pure defaults:
//
//	registry = "https://registry.npmjs.org"
//	dir      = "node_modules"
//
//	[cache]
//	backend = "file"            # file | redis | none
//	ttl     = "24h"
//	dir     = ""                # default ~/.cache/jam
//	redis   = "localhost:6379"
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Cache backends selectable via the "cache.backend" key.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// DefaultCacheTTL is how long registry metadata responses stay fresh.
const DefaultCacheTTL = 24 * time.Hour

// Config is the resolved tool configuration.
type Config struct {
	Registry string      `toml:"registry"` // registry base URL
	Dir      string      `toml:"dir"`      // install destination
	Cache    CacheConfig `toml:"cache"`
}

// CacheConfig selects and tunes the response cache backend.
type CacheConfig struct {
	Backend string   `toml:"backend"`
	TTL     duration `toml:"ttl"`
	Dir     string   `toml:"dir"`
	Redis   string   `toml:"redis"`
}

// duration wraps time.Duration for TOML decoding from strings like "24h".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Registry: "https://registry.npmjs.org",
		Dir:      "node_modules",
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     duration{DefaultCacheTTL},
			Redis:   "localhost:6379",
		},
	}
}

// Load reads the configuration at path, layered over defaults. A missing
// file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// CacheTTL returns the effective metadata cache TTL.
func (c Config) CacheTTL() time.Duration {
	if c.Cache.TTL.Duration <= 0 {
		return DefaultCacheTTL
	}
	return c.Cache.TTL.Duration
}

func (c Config) validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
		return nil
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
}
