// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

// Package main is the entry point for the Streamgate server.
//
// Streamgate is an authenticated gateway that resolves remote video URLs
// through an external media resolver and relays the media bytes to HTTP
// clients as downloadable attachments.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and an optional YAML file (Koanf v2)
//  2. Logging: zerolog, JSON or console format
//  3. Resolver: the media extraction client, wrapped in a circuit breaker
//  4. HTTP server: Chi router with auth, rate limiting, and Prometheus metrics
//  5. Supervisor: a Suture tree that restarts the HTTP server on crashes
//
// # Configuration
//
// The only required setting is the shared bearer secret:
//
//	export API_TOKEN=$(openssl rand -base64 32)
//	./streamgate
//
// Common optional settings:
//
//	PORT=3000                listen port
//	PATH_PREFIX=/api         mount routes under a prefix
//	CORS_ORIGINS=https://a.example,https://b.example
//	RESOLVER_TIMEOUT=30s     metadata resolution deadline
//	LOG_LEVEL=debug          trace|debug|info|warn|error
//	CONFIG_PATH=/etc/streamgate/config.yaml
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listener stops
// accepting connections and in-flight relays get the shutdown timeout
// to finish.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/streamgate/streamgate/internal/api"
	"github.com/streamgate/streamgate/internal/config"
	"github.com/streamgate/streamgate/internal/logging"
	"github.com/streamgate/streamgate/internal/resolver"
	"github.com/streamgate/streamgate/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet; the default logger applies.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("path_prefix", cfg.Server.PathPrefix).
		Dur("resolver_timeout", cfg.Resolver.Timeout).
		Bool("rate_limit_disabled", cfg.Security.RateLimitDisabled).
		Msg("Starting Streamgate")

	// Media resolver with upstream throttle, wrapped in a circuit
	// breaker so a failing extraction backend sheds load fast.
	ytdl := resolver.NewYTDL(resolver.YTDLConfig{
		ChunkSize:         cfg.Resolver.ChunkSize,
		RequestsPerSecond: cfg.Resolver.RequestsPerSecond,
		Burst:             cfg.Resolver.Burst,
	})
	res := resolver.NewBreaker(ytdl)

	router := api.NewRouter(cfg, res)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		// No WriteTimeout: media relays legitimately run for minutes.
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.Add(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Streamgate stopped gracefully")
}
