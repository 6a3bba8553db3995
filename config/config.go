// Package config loads the sessionbridge configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings the CLI and cache need to talk to a backend.
type Config struct {
	// BackendURL is the remote conversation store's base URL.
	BackendURL string `yaml:"backend_url"`
	// CacheTTLMillis is the cache freshness window in milliseconds.
	// 0 selects the default (5000).
	CacheTTLMillis int `yaml:"cache_ttl_ms"`
	// DefaultUser and DefaultChannel seed the routing triple for sessions
	// that don't carry their own.
	DefaultUser    string `yaml:"default_user"`
	DefaultChannel string `yaml:"default_channel"`
	// StorePath is the durable key-value store location. Empty means
	// ~/.sessionbridge/store.db.
	StorePath string `yaml:"store_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BackendURL:     "http://localhost:8080",
		DefaultUser:    "default",
		DefaultChannel: "console",
	}
}

// TTL returns the configured cache TTL as a duration.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.CacheTTLMillis) * time.Millisecond
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".sessionbridge", "config.yaml"), nil
}

// Load reads the config file at path, falling back to the default location
// when path is empty. A missing file yields the built-in defaults; a present
// but malformed file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
