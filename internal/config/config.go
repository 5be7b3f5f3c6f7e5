// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

// Package config loads and validates Streamgate's configuration.
//
// Configuration is layered via Koanf v2 (highest priority wins):
//  1. Environment variables
//  2. Optional YAML config file
//  3. Built-in defaults
//
// The shared API token is required: the process refuses to start without
// one rather than running an open proxy. The loaded Config is immutable
// after startup; nothing mutates it per request.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/streamgate/streamgate/internal/validation"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Resolver ResolverConfig `koanf:"resolver"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"gte=1,lte=65535"`

	// PathPrefix mounts all routes under a prefix (e.g. "/api"). Empty
	// mounts at the root.
	PathPrefix string `koanf:"path_prefix" validate:"omitempty,startswith=/"`

	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SecurityConfig holds the shared bearer secret and per-client limits.
type SecurityConfig struct {
	// APIToken is the single shared bearer secret protecting the
	// extraction routes. Required.
	APIToken string `koanf:"api_token" validate:"required"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// ResolverConfig bounds the media resolver.
type ResolverConfig struct {
	// Timeout bounds the Resolving phase (metadata lookup or stream
	// open). It does not bound the streaming phase.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// ChunkSize is the upstream download chunk size; 0 keeps the
	// library default.
	ChunkSize int64 `koanf:"chunk_size" validate:"gte=0"`

	// RequestsPerSecond throttles upstream extraction calls; 0 disables.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration, returning a human-readable error
// listing every violated constraint.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %s", err.Error())
	}
	return nil
}
