// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/streamgate/streamgate/internal/logging"
	"github.com/streamgate/streamgate/internal/models"
)

// Authenticate enforces the shared bearer secret on protected routes.
// A missing token yields 401, a mismatched one 403. The comparison is
// constant-time so response timing does not leak how much of the token
// matched.
func Authenticate(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := extractBearerToken(r)
			if presented == "" {
				writeAuthError(w, http.StatusUnauthorized, "Token not provided")
				logger := logging.FromContext(r.Context())
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("Request without token rejected")
				return
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeAuthError(w, http.StatusForbidden, "Invalid token")
				logger := logging.FromContext(r.Context())
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("Request with invalid token rejected")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken pulls the credential out of the Authorization
// header. The "Bearer " prefix is optional: a bare token is accepted
// for clients that send the credential without a scheme.
func extractBearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}
