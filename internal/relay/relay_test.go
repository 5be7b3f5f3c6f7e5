// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/streamgate/streamgate/internal/resolver"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"punctuation stripped", "Foo: Bar? <Baz>!", "Foo Bar Baz"},
		{"plain", "Some Song", "Some Song"},
		{"path separators", `a/b\c`, "abc"},
		{"quotes", `He said "hi"`, "He said hi"},
		{"unicode letters survive", "Café del Mar", "Café del Mar"},
		{"digits survive", "Track 01", "Track 01"},
		{"whitespace collapsed", "  a   b  ", "a b"},
		{"only punctuation", "!?!?", "download"},
		{"empty", "", "download"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTitle(tt.title); got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestCommitSetsDownloadHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	s := NewSession(rec)

	if s.HeadersCommitted() {
		t.Fatal("fresh session reports committed headers")
	}

	s.Commit("Foo: Bar? <Baz>!", "mp3", "audio/mpeg", 1234)

	if !s.HeadersCommitted() {
		t.Fatal("session must report committed headers after Commit")
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="Foo Bar Baz.mp3"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "1234" {
		t.Errorf("Content-Length = %q", got)
	}
	if rec.Code != 200 {
		t.Errorf("status = %d", rec.Code)
	}

	// Second commit is a no-op, not a second status line.
	s.Commit("Other", "mp4", "video/mp4", 99)
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type changed after second Commit: %q", got)
	}
}

func TestRelayCopiesAllBytes(t *testing.T) {
	payload := bytes.Repeat([]byte("stream-data-"), 10_000) // ~120KB, several buffers
	rec := httptest.NewRecorder()
	s := NewSession(rec)
	s.Commit("title", "mp4", "video/mp4", int64(len(payload)))

	n, err := s.Relay(context.Background(), bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("written = %d, want %d", n, len(payload))
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Error("relayed bytes differ from source")
	}
}

func TestRelayRequiresCommit(t *testing.T) {
	s := NewSession(httptest.NewRecorder())
	if _, err := s.Relay(context.Background(), strings.NewReader("x")); err == nil {
		t.Fatal("expected error when relaying before Commit")
	}
}

// failingReader emits some bytes and then an upstream error.
type failingReader struct {
	data []byte
	err  error
	pos  int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.pos < len(r.data) {
		n := copy(p, r.data[r.pos:])
		r.pos += n
		return n, nil
	}
	return 0, r.err
}

func TestRelayUpstreamErrorAfterFirstBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	s := NewSession(rec)
	s.Commit("title", "mp3", "audio/mpeg", 0)

	src := &failingReader{data: []byte("partial-audio"), err: errors.New("connection reset")}
	n, err := s.Relay(context.Background(), src)

	var se *resolver.StreamError
	if !errors.As(err, &se) {
		t.Fatalf("expected StreamError, got %v", err)
	}
	if n != int64(len("partial-audio")) {
		t.Errorf("written = %d", n)
	}
	// No JSON trailer after binary data: the body is exactly the bytes
	// that made it through.
	if got := rec.Body.String(); got != "partial-audio" {
		t.Errorf("body = %q, must not contain an appended error document", got)
	}
}

func TestRelayClientDisconnect(t *testing.T) {
	rec := httptest.NewRecorder()
	s := NewSession(rec)
	s.Commit("title", "mp4", "video/mp4", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reads := 0
	src := io.MultiReader(countingReader{&reads}, strings.NewReader(strings.Repeat("x", 1<<20)))
	_, err := s.Relay(ctx, src)
	if !errors.Is(err, ErrClientDisconnected) {
		t.Fatalf("expected ErrClientDisconnected, got %v", err)
	}
	if reads != 0 {
		t.Errorf("relay read from upstream after the client was gone")
	}
}

type countingReader struct{ n *int }

func (c countingReader) Read(p []byte) (int, error) {
	*c.n++
	return 0, io.EOF
}

// pacedWriter records the maximum lead the reader achieved over delivered
// bytes, to verify reads never run more than one buffer ahead.
type pacedWriter struct {
	delivered int64
	src       *meteredReader
	maxLead   int64
}

func (w *pacedWriter) Write(p []byte) (int, error) {
	lead := w.src.read - w.delivered
	if lead > w.maxLead {
		w.maxLead = lead
	}
	w.delivered += int64(len(p))
	return len(p), nil
}

type meteredReader struct {
	remaining int64
	read      int64
}

func (r *meteredReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	n := int64(len(p))
	if n > r.remaining {
		n = r.remaining
	}
	r.remaining -= n
	r.read += n
	return int(n), nil
}

// responseShim adapts pacedWriter to http.ResponseWriter.
type responseShim struct {
	*pacedWriter
	headers http.Header
}

func (s *responseShim) Header() http.Header { return s.headers }
func (s *responseShim) WriteHeader(int)     {}

func TestRelayBackpressureBoundedReadAhead(t *testing.T) {
	// Stream 10MB, far beyond the copy buffer. At every write the
	// upstream read position may lead delivered bytes by at most one
	// buffer.
	src := &meteredReader{remaining: 10 << 20}
	pw := &pacedWriter{src: src}
	shim := &responseShim{pacedWriter: pw, headers: http.Header{}}

	s := NewSession(shim)
	s.Commit("big", "mp4", "video/mp4", 0)

	n, err := s.Relay(context.Background(), src)
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if n != 10<<20 {
		t.Errorf("written = %d, want %d", n, 10<<20)
	}
	if pw.maxLead > copyBufferSize {
		t.Errorf("upstream read ran %d bytes ahead of the sink, buffer is %d", pw.maxLead, copyBufferSize)
	}
}
