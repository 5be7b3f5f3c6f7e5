// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/streamgate/streamgate/internal/config"
	"github.com/streamgate/streamgate/internal/models"
	"github.com/streamgate/streamgate/internal/resolver"
)

// fakeResolver is a configurable in-memory resolver.
type fakeResolver struct {
	validateErr error
	metadata    *resolver.Metadata
	metadataErr error
	stream      *resolver.Stream
	streamErr   error

	openCalls     int
	lastKind      resolver.MediaKind
	lastQuality   resolver.Quality
	metadataCalls int
}

func (f *fakeResolver) ValidateURL(raw string) error { return f.validateErr }

func (f *fakeResolver) ResolveMetadata(ctx context.Context, url string) (*resolver.Metadata, error) {
	f.metadataCalls++
	if f.metadataErr != nil {
		return nil, f.metadataErr
	}
	return f.metadata, nil
}

func (f *fakeResolver) OpenStream(ctx context.Context, url string, kind resolver.MediaKind, quality resolver.Quality) (*resolver.Stream, error) {
	f.openCalls++
	f.lastKind = kind
	f.lastQuality = quality
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.stream, nil
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Security.APIToken = "test-token"
	return cfg
}

func decodeError(t *testing.T, body []byte) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decoding error body %q: %v", body, err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	h := NewHandler(&fakeResolver{}, testConfig())

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestInfoMissingURL(t *testing.T) {
	res := &fakeResolver{}
	h := NewHandler(res, testConfig())

	rec := httptest.NewRecorder()
	h.Info(rec, httptest.NewRequest(http.MethodGet, "/info", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if resp := decodeError(t, rec.Body.Bytes()); resp.Error != "URL is required" {
		t.Errorf("error = %q", resp.Error)
	}
	if res.metadataCalls != 0 {
		t.Error("resolver should not be called without a URL")
	}
}

func TestInfoInvalidURL(t *testing.T) {
	res := &fakeResolver{
		metadataErr: &resolver.ResolutionError{Message: "Invalid URL", NotFound: true},
	}
	h := NewHandler(res, testConfig())

	rec := httptest.NewRecorder()
	h.Info(rec, httptest.NewRequest(http.MethodGet, "/info?url=not-a-url", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if resp := decodeError(t, rec.Body.Bytes()); resp.Error != "Invalid URL" {
		t.Errorf("error = %q", resp.Error)
	}
	if res.openCalls != 0 {
		t.Error("stream open must not run for an invalid URL")
	}
}

func TestInfoUpstreamFailure(t *testing.T) {
	res := &fakeResolver{
		metadataErr: &resolver.ResolutionError{
			Message: "failed to fetch video metadata",
			Err:     errors.New("connection reset"),
		},
	}
	h := NewHandler(res, testConfig())

	rec := httptest.NewRecorder()
	h.Info(rec, httptest.NewRequest(http.MethodGet, "/info?url=abcdefghijk", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	resp := decodeError(t, rec.Body.Bytes())
	if resp.Error != "failed to fetch video metadata" {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.Details == "" {
		t.Error("500 responses should carry details")
	}
}

func TestInfoSuccess(t *testing.T) {
	res := &fakeResolver{
		metadata: &resolver.Metadata{
			Title:     "Test Video",
			Author:    "Test Channel",
			Duration:  3*time.Minute + 25*time.Second,
			Thumbnail: "https://img.example/t.jpg",
			Formats: []resolver.Format{
				{Itag: 22, MimeType: "video/mp4", Quality: "hd720", Bitrate: 2_000_000},
				{Itag: 140, MimeType: "audio/mp4", Quality: "tiny", Bitrate: 128_000},
			},
		},
	}
	h := NewHandler(res, testConfig())

	rec := httptest.NewRecorder()
	h.Info(rec, httptest.NewRequest(http.MethodGet, "/info?url=abcdefghijk", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var meta models.VideoMetadata
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decoding metadata: %v", err)
	}
	if meta.Title != "Test Video" || meta.Author != "Test Channel" {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.DurationSeconds != 205 {
		t.Errorf("DurationSeconds = %d, want 205", meta.DurationSeconds)
	}
	if len(meta.Formats) != 2 || meta.Formats[0].Itag != 22 {
		t.Errorf("Formats = %+v", meta.Formats)
	}
}

func TestAudioSuccess(t *testing.T) {
	payload := bytes.Repeat([]byte("audio-bytes-"), 1024)
	res := &fakeResolver{
		stream: &resolver.Stream{
			Body:          io.NopCloser(bytes.NewReader(payload)),
			MimeType:      "audio/mp4",
			ContentLength: int64(len(payload)),
			Title:         "My Song: Live!",
		},
	}
	h := NewHandler(res, testConfig())

	rec := httptest.NewRecorder()
	h.Audio(rec, httptest.NewRequest(http.MethodGet, "/mp3?url=abcdefghijk", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type = %q, want audio/mpeg", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="My Song Live.mp3"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Errorf("body length = %d, want %d", rec.Body.Len(), len(payload))
	}
	if res.lastKind != resolver.KindAudio {
		t.Errorf("kind = %q, want audio", res.lastKind)
	}
	if res.lastQuality != resolver.QualityHighest {
		t.Errorf("quality = %q, want default highest", res.lastQuality)
	}
}

func TestVideoQualityParam(t *testing.T) {
	res := &fakeResolver{
		stream: &resolver.Stream{
			Body:  io.NopCloser(strings.NewReader("video")),
			Title: "Clip",
		},
	}
	h := NewHandler(res, testConfig())

	rec := httptest.NewRecorder()
	h.Video(rec, httptest.NewRequest(http.MethodGet, "/mp4?url=abcdefghijk&quality=low", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", got)
	}
	if res.lastKind != resolver.KindVideo {
		t.Errorf("kind = %q, want video", res.lastKind)
	}
	if res.lastQuality != resolver.QualityLow {
		t.Errorf("quality = %q, want low", res.lastQuality)
	}
}

func TestStreamNoSuitableFormat(t *testing.T) {
	res := &fakeResolver{
		streamErr: &resolver.ResolutionError{Message: "no suitable format found", NotFound: true},
	}
	h := NewHandler(res, testConfig())

	rec := httptest.NewRecorder()
	h.Audio(rec, httptest.NewRequest(http.MethodGet, "/mp3?url=abcdefghijk", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if resp := decodeError(t, rec.Body.Bytes()); resp.Error != "no suitable format found" {
		t.Errorf("error = %q", resp.Error)
	}
}

// brokenReader fails after emitting its prefix.
type brokenReader struct {
	prefix io.Reader
	done   bool
}

func (b *brokenReader) Read(p []byte) (int, error) {
	if !b.done {
		n, err := b.prefix.Read(p)
		if err == io.EOF {
			b.done = true
			return n, nil
		}
		return n, err
	}
	return 0, errors.New("upstream connection lost")
}

func (b *brokenReader) Close() error { return nil }

func TestStreamMidTransferFailureAbortsConnection(t *testing.T) {
	res := &fakeResolver{
		stream: &resolver.Stream{
			Body:  &brokenReader{prefix: strings.NewReader("partial-audio")},
			Title: "Broken",
		},
	}
	h := NewHandler(res, testConfig())

	rec := httptest.NewRecorder()

	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Fatalf("recovered %v, want http.ErrAbortHandler", r)
		}
		// The committed prefix is all the client ever sees; no JSON
		// trailer may follow it.
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want committed 200", rec.Code)
		}
		if rec.Body.String() != "partial-audio" {
			t.Errorf("body = %q, want the partial payload only", rec.Body.String())
		}
	}()
	h.Audio(rec, httptest.NewRequest(http.MethodGet, "/mp3?url=abcdefghijk", nil))
	t.Fatal("expected abort panic")
}
