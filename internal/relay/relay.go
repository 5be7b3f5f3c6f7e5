// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

// Package relay pipes a resolved media stream into an HTTP response.
//
// A Session is the per-request binding between the response sink and the
// upstream stream. It carries an explicit headers-committed flag so error
// handling can branch on "can we still change the status" without poking
// at net/http internals, and it copies through a fixed-size buffer so the
// client's read rate paces upstream consumption.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/streamgate/streamgate/internal/resolver"
)

// copyBufferSize bounds how far upstream reads may run ahead of client
// writes. Media items can be orders of magnitude larger than this.
const copyBufferSize = 32 * 1024

// ErrClientDisconnected reports that the client went away mid-relay. The
// upstream stream must be released promptly when this happens.
var ErrClientDisconnected = errors.New("client disconnected during relay")

// Session tracks the terminal-outcome invariant for one response: headers
// and status are sent exactly once, and after they are committed no JSON
// error body may follow.
type Session struct {
	w                http.ResponseWriter
	headersCommitted bool
}

// NewSession creates a relay session for the response writer.
func NewSession(w http.ResponseWriter) *Session {
	return &Session{w: w}
}

// HeadersCommitted reports whether the status line and headers were sent.
func (s *Session) HeadersCommitted() bool {
	return s.headersCommitted
}

// Commit sends the download headers and the 200 status. After Commit the
// response can only be streamed to or aborted.
func (s *Session) Commit(title, ext, contentType string, contentLength int64) {
	if s.headersCommitted {
		return
	}
	filename := SanitizeTitle(title)
	s.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+"."+ext))
	s.w.Header().Set("Content-Type", contentType)
	if contentLength > 0 {
		s.w.Header().Set("Content-Length", strconv.FormatInt(contentLength, 10))
	}
	s.w.WriteHeader(http.StatusOK)
	s.headersCommitted = true
}

// Relay copies src into the response until EOF, upstream error, or client
// disconnect. Returns the bytes written and a nil error on natural end of
// data, ErrClientDisconnected when the sink went away, or a
// resolver.StreamError when the upstream read failed.
//
// The copy uses a fixed buffer and never reads further ahead of the sink
// than one buffer; ResponseWriter writes block on the client's demand,
// which is what propagates backpressure to the upstream connection.
func (s *Session) Relay(ctx context.Context, src io.Reader) (int64, error) {
	if !s.headersCommitted {
		return 0, errors.New("relay: stream started before headers were committed")
	}

	flusher, _ := s.w.(http.Flusher)
	buf := make([]byte, copyBufferSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("%w: %w", ErrClientDisconnected, err)
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := s.w.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, fmt.Errorf("%w: %w", ErrClientDisconnected, writeErr)
			}
			if flusher != nil {
				flusher.Flush()
			}
		}

		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF):
			return written, nil
		case ctx.Err() != nil:
			// Upstream reads are wired to the request context; a canceled
			// read is the client leaving, not an upstream fault.
			return written, fmt.Errorf("%w: %w", ErrClientDisconnected, readErr)
		default:
			return written, &resolver.StreamError{Err: readErr}
		}
	}
}

// SanitizeTitle strips every character that is not a letter, digit, or
// whitespace, then collapses whitespace runs. This keeps the attachment
// filename free of header-injection and filesystem-hostile characters.
// Falls back to "download" when nothing survives.
func SanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if cleaned == "" {
		return "download"
	}
	return cleaned
}
