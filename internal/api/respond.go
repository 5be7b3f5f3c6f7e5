// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/streamgate/streamgate/internal/logging"
	"github.com/streamgate/streamgate/internal/models"
)

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// respondError writes a structured JSON error body.
func respondError(w http.ResponseWriter, status int, message string, details ...string) {
	body := models.ErrorResponse{Error: message}
	if len(details) > 0 {
		body.Details = details[0]
	}
	respondJSON(w, status, body)
}
