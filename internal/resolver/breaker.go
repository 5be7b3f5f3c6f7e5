// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

package resolver

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/streamgate/streamgate/internal/logging"
	"github.com/streamgate/streamgate/internal/metrics"
)

// Breaker wraps a Resolver with a circuit breaker so a failing upstream
// does not tie up every request slot with doomed resolve attempts.
//
// The breaker uses real time for its interval and timeout calculations.
// Tests should exercise the wrapped resolver directly, or drive the
// breaker through repeated failures.
type Breaker struct {
	inner Resolver
	cb    *gobreaker.CircuitBreaker[any]
	name  string
}

// NewBreaker creates a circuit-breaker wrapped resolver.
// Configuration mirrors upstream-API breakers elsewhere:
//   - 3 concurrent probes in half-open state
//   - 1 minute measurement window
//   - 1 minute open-state timeout before probing again
//   - trips at a 60% failure rate over at least 10 requests
//
// Caller-correctable failures (invalid URL, no acceptable format) do not
// count against the breaker: they say nothing about upstream health.
func NewBreaker(inner Resolver) *Breaker {
	name := "media-resolver"

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := breakerStateString(from)
			toStr := breakerStateString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &Breaker{inner: inner, cb: cb, name: name}
}

// ValidateURL passes through; it never touches the network.
func (b *Breaker) ValidateURL(raw string) error {
	return b.inner.ValidateURL(raw)
}

// ResolveMetadata executes the metadata lookup through the breaker.
func (b *Breaker) ResolveMetadata(ctx context.Context, url string) (*Metadata, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.inner.ResolveMetadata(ctx, url)
	})
	if err != nil {
		return nil, b.translate(err)
	}
	return result.(*Metadata), nil
}

// OpenStream executes the stream open through the breaker. Only the open
// counts toward breaker health; reads from the returned stream do not.
func (b *Breaker) OpenStream(ctx context.Context, url string, kind MediaKind, quality Quality) (*Stream, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.inner.OpenStream(ctx, url, kind, quality)
	})
	if err != nil {
		return nil, b.translate(err)
	}
	return result.(*Stream), nil
}

// translate converts breaker-internal errors into ResolutionErrors so the
// relay's error taxonomy stays closed.
func (b *Breaker) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &ResolutionError{Message: "media resolver temporarily unavailable", Err: err}
	}
	return err
}

func breakerStateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
