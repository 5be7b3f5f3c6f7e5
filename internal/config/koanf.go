// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envKeyMap maps flat environment variable names to koanf config paths.
// Only variables listed here are read; unrelated environment noise is
// ignored.
var envKeyMap = map[string]string{
	"API_TOKEN":            "security.api_token",
	"CORS_ORIGINS":         "security.cors_origins",
	"RATE_LIMIT_REQUESTS":  "security.rate_limit_requests",
	"RATE_LIMIT_WINDOW":    "security.rate_limit_window",
	"RATE_LIMIT_DISABLED":  "security.rate_limit_disabled",
	"HOST":                 "server.host",
	"PORT":                 "server.port",
	"PATH_PREFIX":          "server.path_prefix",
	"READ_HEADER_TIMEOUT":  "server.read_header_timeout",
	"SHUTDOWN_TIMEOUT":     "server.shutdown_timeout",
	"RESOLVER_TIMEOUT":     "resolver.timeout",
	"RESOLVER_CHUNK_SIZE":  "resolver.chunk_size",
	"RESOLVER_RPS":         "resolver.requests_per_second",
	"RESOLVER_BURST":       "resolver.burst",
	"LOG_LEVEL":            "logging.level",
	"LOG_FORMAT":           "logging.format",
	"LOG_CALLER":           "logging.caller",
}

// sliceKeys are config paths whose environment values are parsed as
// comma-separated lists.
var sliceKeys = map[string]bool{
	"security.cors_origins": true,
}

// Defaults returns the built-in configuration defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              3000,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
		},
		Resolver: ResolverConfig{
			Timeout:           30 * time.Second,
			ChunkSize:         0,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", transformEnvKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	processSliceFields(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// findConfigFile returns the config file path, honoring CONFIG_PATH
// first and then conventional locations. Returns "" when none exists.
func findConfigFile() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	for _, p := range []string{"config.yaml", "config.yml", "/etc/streamgate/config.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// transformEnvKey maps a raw environment variable name to its koanf
// path, or "" to skip it.
func transformEnvKey(s string) string {
	if mapped, ok := envKeyMap[strings.ToUpper(s)]; ok {
		return mapped
	}
	return ""
}

// processSliceFields splits comma-separated string values into slices
// for the keys that unmarshal into []string. Environment variables can
// only carry flat strings, so "a,b,c" becomes ["a","b","c"].
func processSliceFields(k *koanf.Koanf) {
	for key := range sliceKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		_ = k.Set(key, out)
	}
}
