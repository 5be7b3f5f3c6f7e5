// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

// Package models defines the wire shapes of Streamgate's HTTP responses.
package models

// ErrorResponse is the JSON body of every error response. Error is always
// present; Details carries optional diagnostic context. Error responses are
// never HTML and never contain stack traces.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// FormatInfo describes one candidate rendition of the resolved media.
type FormatInfo struct {
	Itag     int    `json:"itag"`
	MimeType string `json:"mime_type"`
	Quality  string `json:"quality,omitempty"`
	Bitrate  int    `json:"bitrate,omitempty"`
}

// VideoMetadata is the successful /info response body.
type VideoMetadata struct {
	Title           string       `json:"title"`
	Author          string       `json:"author,omitempty"`
	DurationSeconds int64        `json:"duration_seconds,omitempty"`
	Thumbnail       string       `json:"thumbnail,omitempty"`
	Formats         []FormatInfo `json:"formats,omitempty"`
}
