// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/goccy/go-json"

	"github.com/streamgate/streamgate/internal/logging"
	"github.com/streamgate/streamgate/internal/models"
)

// Recoverer converts handler panics into JSON 500 responses and logs
// the stack. http.ErrAbortHandler is re-raised untouched: it is the
// sanctioned way to abort a response whose headers are already
// committed, and net/http suppresses its stack trace.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger := logging.FromContext(r.Context())
			logger.Error().
				Interface("panic", rec).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Bytes("stack", debug.Stack()).
				Msg("Handler panic recovered")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Internal server error"})
		}()

		next.ServeHTTP(w, r)
	})
}
