// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

// Package resolver defines the media resolver capability: turning a video
// URL into descriptive metadata or an open byte stream. The gateway core
// depends only on the Resolver interface; ytdl.go supplies the production
// implementation and breaker.go the circuit-breaker wrapper.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// MediaKind selects between an audio-only rendition and a muxed
// video+audio rendition.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// Quality is the caller's rendition preference. The resolver treats it as
// best-effort ordering over the candidate formats.
type Quality string

const (
	QualityHighest Quality = "highest"
	QualityHigh    Quality = "high"
	QualityMedium  Quality = "medium"
	QualityLow     Quality = "low"
)

// ParseQuality maps a query-parameter value to a Quality, defaulting to
// highest for empty or unknown values.
func ParseQuality(s string) Quality {
	switch Quality(s) {
	case QualityHigh:
		return QualityHigh
	case QualityMedium:
		return QualityMedium
	case QualityLow:
		return QualityLow
	default:
		return QualityHighest
	}
}

// Format describes one candidate rendition of the remote media item.
type Format struct {
	Itag          int
	MimeType      string
	Quality       string
	Bitrate       int
	AudioChannels int
}

// Metadata holds the descriptive fields of a resolved media item.
type Metadata struct {
	Title     string
	Author    string
	Duration  time.Duration
	Thumbnail string
	Formats   []Format
}

// Stream is an open byte stream for a resolved media item. The caller owns
// Body and must close it. ContentLength is -1 when unknown.
type Stream struct {
	Body          io.ReadCloser
	MimeType      string
	ContentLength int64

	// Title is carried so download handlers can compose the attachment
	// filename without a second resolver round trip.
	Title string
}

// Resolver is the external media extraction capability. Implementations
// decide how to authenticate to the upstream source, which client identity
// to present, and how to choose among encodings.
type Resolver interface {
	// ValidateURL reports whether raw is a syntactically acceptable
	// resource reference, without touching the network.
	ValidateURL(raw string) error

	// ResolveMetadata returns the descriptive fields for the media item.
	ResolveMetadata(ctx context.Context, url string) (*Metadata, error)

	// OpenStream opens a byte stream for the media item in the requested
	// kind, honoring the quality preference best-effort.
	OpenStream(ctx context.Context, url string, kind MediaKind, quality Quality) (*Stream, error)
}

// ResolutionError reports a failure to resolve a resource before any
// stream bytes were produced. NotFound marks caller-correctable causes
// (bad URL, no acceptable rendition) as opposed to upstream faults.
type ResolutionError struct {
	Message  string
	NotFound bool
	Err      error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// StreamError reports a failure after streaming has begun. The HTTP status
// is already committed at that point; callers abort the connection.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string { return fmt.Sprintf("stream failed: %v", e.Err) }

func (e *StreamError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a caller-correctable resolution
// failure (invalid URL, unavailable resource, no acceptable format).
func IsNotFound(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.NotFound
}
