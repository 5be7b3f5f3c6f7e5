// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamgate/streamgate/internal/config"
	"github.com/streamgate/streamgate/internal/middleware"
	"github.com/streamgate/streamgate/internal/resolver"
)

// Router assembles the HTTP surface from its middleware and handlers.
type Router struct {
	cfg           *config.Config
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter builds the router for the given configuration and resolver.
func NewRouter(cfg *config.Config, res resolver.Resolver) *Router {
	return &Router{
		cfg:     cfg,
		handler: NewHandler(res, cfg),
		chiMiddleware: NewChiMiddleware(&ChiMiddlewareConfig{
			CORSAllowedOrigins: cfg.Security.CORSOrigins,
			CORSAllowedMethods: []string{"GET", "OPTIONS"},
			CORSAllowedHeaders: []string{"Authorization", "Content-Type"},
			CORSMaxAge:         86400,

			RateLimitRequests: cfg.Security.RateLimitRequests,
			RateLimitWindow:   cfg.Security.RateLimitWindow,
			RateLimitDisabled: cfg.Security.RateLimitDisabled,
		}),
	}
}

// Setup configures all routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is handled

	if prefix := router.cfg.Server.PathPrefix; prefix != "" {
		r.Route(prefix, router.registerRoutes)
	} else {
		router.registerRoutes(r)
	}

	// Observability.
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// registerRoutes mounts the gateway endpoints on r.
func (router *Router) registerRoutes(r chi.Router) {
	// Health endpoint: unauthenticated, permissively rate limited.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/", router.handler.Health)
	})

	// Extraction endpoints: authenticated and instrumented.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.Authenticate(router.cfg.Security.APIToken))

		r.Get("/info", router.handler.Info)
		r.Get("/mp3", router.handler.Audio)
		r.Get("/mp4", router.handler.Video)
	})
}
