// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

// Package api provides the HTTP surface of the gateway: request routing
// via Chi, the health/metadata/extraction handlers, and their response
// envelopes.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/streamgate/streamgate/internal/config"
	"github.com/streamgate/streamgate/internal/logging"
	"github.com/streamgate/streamgate/internal/metrics"
	"github.com/streamgate/streamgate/internal/models"
	"github.com/streamgate/streamgate/internal/relay"
	"github.com/streamgate/streamgate/internal/resolver"
)

// Handler holds the request handlers and their dependencies.
type Handler struct {
	resolver  resolver.Resolver
	cfg       *config.Config
	startTime time.Time
}

// NewHandler creates the handler set backed by the given resolver.
func NewHandler(res resolver.Resolver, cfg *config.Config) *Handler {
	return &Handler{
		resolver:  res,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// Health responds 200 with an empty body. It is unauthenticated so load
// balancers and uptime monitors can probe without credentials.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	logger.Info().
		Str("remote_addr", r.RemoteAddr).
		Dur("uptime", time.Since(h.startTime)).
		Msg("Health ping")
	w.WriteHeader(http.StatusOK)
}

// Info returns descriptive metadata for the requested media URL.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "URL is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.Resolver.Timeout)
	defer cancel()

	meta, err := h.resolver.ResolveMetadata(ctx, raw)
	if err != nil {
		h.respondResolverError(w, r, err)
		return
	}

	formats := make([]models.FormatInfo, 0, len(meta.Formats))
	for _, f := range meta.Formats {
		formats = append(formats, models.FormatInfo{
			Itag:     f.Itag,
			MimeType: f.MimeType,
			Quality:  f.Quality,
			Bitrate:  f.Bitrate,
		})
	}

	respondJSON(w, http.StatusOK, models.VideoMetadata{
		Title:           meta.Title,
		Author:          meta.Author,
		DurationSeconds: int64(meta.Duration.Seconds()),
		Thumbnail:       meta.Thumbnail,
		Formats:         formats,
	})
}

// Audio relays the audio-only rendition as an mp3 attachment.
func (h *Handler) Audio(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, resolver.KindAudio, "mp3", "audio/mpeg")
}

// Video relays the muxed video rendition as an mp4 attachment.
func (h *Handler) Video(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, resolver.KindVideo, "mp4", "video/mp4")
}

// stream opens the upstream byte stream and relays it. Errors before the
// first byte become JSON responses; errors after headers are committed
// abort the connection so the client sees a truncated transfer instead
// of a corrupt file that parses as complete.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, kind resolver.MediaKind, ext, contentType string) {
	log := logging.FromContext(r.Context())

	raw := r.URL.Query().Get("url")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "URL is required")
		return
	}
	quality := resolver.ParseQuality(r.URL.Query().Get("quality"))

	// The request context, not the resolver timeout, bounds the open:
	// the upstream body stays tied to the context it was opened with,
	// so a short-lived deadline here would kill the relay mid-transfer.
	stream, err := h.resolver.OpenStream(r.Context(), raw, kind, quality)
	if err != nil {
		h.respondResolverError(w, r, err)
		return
	}
	defer stream.Body.Close()

	metrics.TrackActiveStream(true)
	defer metrics.TrackActiveStream(false)

	sess := relay.NewSession(w)
	sess.Commit(stream.Title, ext, contentType, stream.ContentLength)

	log.Info().
		Str("kind", string(kind)).
		Str("quality", string(quality)).
		Str("title", stream.Title).
		Int64("content_length", stream.ContentLength).
		Msg("Stream relay started")

	written, err := sess.Relay(r.Context(), stream.Body)
	metrics.RecordStreamBytes(string(kind), written)

	switch {
	case err == nil:
		log.Info().
			Str("kind", string(kind)).
			Int64("bytes", written).
			Msg("Stream relay completed")
	case errors.Is(err, relay.ErrClientDisconnected):
		metrics.RecordStreamFailure("client_disconnect")
		log.Info().
			Str("kind", string(kind)).
			Int64("bytes", written).
			Msg("Client disconnected during relay")
	default:
		metrics.RecordStreamFailure("stream")
		log.Error().Err(err).
			Str("kind", string(kind)).
			Int64("bytes", written).
			Msg("Upstream failed mid-relay, aborting connection")
		// Headers are committed; the only honest signal left is a
		// broken connection.
		panic(http.ErrAbortHandler)
	}
}

// respondResolverError maps a resolver failure to an HTTP response.
// Caller-correctable failures (bad URL, no suitable rendition) are 400;
// everything else is a 500 upstream fault.
func (h *Handler) respondResolverError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	var re *resolver.ResolutionError
	if errors.As(err, &re) && re.NotFound {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Resolution rejected")
		respondError(w, http.StatusBadRequest, re.Message)
		return
	}

	metrics.RecordStreamFailure("resolve")
	log.Error().Err(err).Str("path", r.URL.Path).Msg("Resolver failure")

	message := "Failed to resolve media"
	if errors.As(err, &re) {
		message = re.Message
	}
	respondError(w, http.StatusInternalServerError, message, err.Error())
}
