// Package config loads spyglass configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full configuration surface. Zero values fall back to
// the defaults from Default.
type Config struct {
	// Workers bounds concurrent scans in directory indexing and the
	// request server's scan pool.
	Workers int `toml:"workers"`
	// ScanTimeout bounds one file scan, as a Go duration string.
	ScanTimeout string `toml:"scan_timeout"`
	// Languages restricts scanning to the listed tags; empty means all.
	Languages []string `toml:"languages"`
	// CatalogCache is the SQLite cache path; empty disables caching.
	CatalogCache string `toml:"catalog_cache"`

	Watch   Watch    `toml:"watch"`
	Server  Server   `toml:"server"`
	Scripts []Script `toml:"scripts"`
}

// Watch configures the filesystem watcher.
type Watch struct {
	Enabled bool `toml:"enabled"`
	// DebounceMS coalesces change bursts before re-scanning.
	DebounceMS int `toml:"debounce_ms"`
}

// Server configures the request server.
type Server struct {
	// Listen is a TCP address; "stdio" serves one session over
	// stdin/stdout.
	Listen string `toml:"listen"`
}

// Script registers a Risor-scripted language adapter.
type Script struct {
	Language   string   `toml:"language"`
	Extensions []string `toml:"extensions"`
	Path       string   `toml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Workers:     4,
		ScanTimeout: "10s",
		Watch:       Watch{DebounceMS: 200},
		Server:      Server{Listen: "stdio"},
	}
}

// Load reads TOML from path on top of the defaults. A missing file is
// not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges and duration syntax.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.ScanTimeout != "" {
		if _, err := time.ParseDuration(c.ScanTimeout); err != nil {
			return fmt.Errorf("scan_timeout: %w", err)
		}
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}
	for _, s := range c.Scripts {
		if s.Language == "" || s.Path == "" {
			return fmt.Errorf("script entries need language and path")
		}
	}
	return nil
}

// ScanTimeoutDuration returns the parsed scan timeout; zero when unset.
func (c Config) ScanTimeoutDuration() time.Duration {
	if c.ScanTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.ScanTimeout)
	if err != nil {
		return 0
	}
	return d
}

// Debounce returns the watcher debounce window.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}
