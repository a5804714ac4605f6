// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config holds the process-wide configuration record the RPC
// surface (C10, spec §6) initializes once at startup: search timeouts,
// response limits, and the analytics/context defaults every handler falls
// back to when a caller omits a parameter.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config mirrors spec §6's process-wide RPC configuration record.
type Config struct {
	SearchTimeoutSecs  int     `yaml:"search_timeout_secs"`
	MaxResponseLimit   int     `yaml:"max_response_limit"`
	MaxBytesHardCap    int     `yaml:"max_bytes_hard_cap"`
	MaxSeeds           int     `yaml:"max_seeds"`
	DefaultContextBytes int    `yaml:"default_context_bytes"`
	DefaultDepth       int     `yaml:"default_depth"`
	DefaultMaxNodes    int     `yaml:"default_max_nodes"`
}

// Default returns the config's documented defaults, used whenever
// .lidx/config.yaml (or the file passed via --config) omits a field.
func Default() Config {
	return Config{
		SearchTimeoutSecs:   5,
		MaxResponseLimit:    200,
		MaxBytesHardCap:     1 << 20, // 1 MiB
		MaxSeeds:            16,
		DefaultContextBytes: 16384,
		DefaultDepth:        2,
		DefaultMaxNodes:     50,
	}
}

// SearchTimeout is the SearchTimeoutSecs field as a time.Duration.
func (c Config) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutSecs) * time.Second
}

// Load reads a YAML config file, starting from Default() and overlaying
// whatever fields the file sets — an absent file is not an error, the
// caller gets the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects a config whose limits would make the RPC surface
// unusable (e.g. a non-positive hard cap that could never admit a
// response).
func (c Config) Validate() error {
	switch {
	case c.MaxResponseLimit <= 0:
		return fmt.Errorf("max_response_limit must be positive, got %d", c.MaxResponseLimit)
	case c.MaxBytesHardCap <= 0:
		return fmt.Errorf("max_bytes_hard_cap must be positive, got %d", c.MaxBytesHardCap)
	case c.MaxSeeds <= 0:
		return fmt.Errorf("max_seeds must be positive, got %d", c.MaxSeeds)
	case c.SearchTimeoutSecs <= 0:
		return fmt.Errorf("search_timeout_secs must be positive, got %d", c.SearchTimeoutSecs)
	}
	return nil
}

// ClampLimit enforces MAX_RESPONSE_LIMIT on a caller-requested list limit,
// per every RPC handler's obligation in spec §4.10.
func (c Config) ClampLimit(requested int) int {
	if requested <= 0 || requested > c.MaxResponseLimit {
		return c.MaxResponseLimit
	}
	return requested
}
