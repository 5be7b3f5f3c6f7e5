// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

package resolver

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	youtube "github.com/lvcoi/ytdl-lib/v2"
	"golang.org/x/time/rate"

	"github.com/streamgate/streamgate/internal/metrics"
)

// YTDLConfig configures the ytdl-lib backed resolver.
type YTDLConfig struct {
	// ChunkSize is the download chunk size in bytes. 0 keeps the library
	// default.
	ChunkSize int64

	// RequestsPerSecond throttles upstream extraction calls. 0 disables
	// throttling.
	RequestsPerSecond float64

	// Burst is the throttle burst size. Defaults to 1 when throttling is
	// enabled.
	Burst int

	// HTTPClient overrides the library's HTTP client, mainly for tests.
	HTTPClient *http.Client
}

// YTDL resolves media through github.com/lvcoi/ytdl-lib. All site-specific
// behavior (page parsing, cipher handling, client identity) lives inside
// the library.
type YTDL struct {
	client  *youtube.Client
	limiter *rate.Limiter
}

// NewYTDL creates a ytdl-lib backed resolver.
func NewYTDL(cfg YTDLConfig) *YTDL {
	client := &youtube.Client{}
	if cfg.ChunkSize > 0 {
		client.ChunkSize = cfg.ChunkSize
	}
	if cfg.HTTPClient != nil {
		client.HTTPClient = cfg.HTTPClient
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &YTDL{client: client, limiter: limiter}
}

// ValidateURL checks that raw contains an extractable video ID. It does
// not touch the network.
func (y *YTDL) ValidateURL(raw string) error {
	if _, err := youtube.ExtractVideoID(raw); err != nil {
		return &ResolutionError{Message: "Invalid URL", NotFound: true, Err: err}
	}
	return nil
}

// ResolveMetadata fetches the descriptive fields for url.
func (y *YTDL) ResolveMetadata(ctx context.Context, url string) (*Metadata, error) {
	start := time.Now()
	video, err := y.fetchVideo(ctx, url)
	metrics.RecordResolverRequest("metadata", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	md := &Metadata{
		Title:     video.Title,
		Author:    video.Author,
		Duration:  video.Duration,
		Thumbnail: bestThumbnail(video.Thumbnails),
	}
	for i := range video.Formats {
		f := &video.Formats[i]
		md.Formats = append(md.Formats, Format{
			Itag:          f.ItagNo,
			MimeType:      f.MimeType,
			Quality:       f.QualityLabel,
			Bitrate:       f.Bitrate,
			AudioChannels: f.AudioChannels,
		})
	}
	return md, nil
}

// OpenStream opens a byte stream for url in the requested kind.
func (y *YTDL) OpenStream(ctx context.Context, url string, kind MediaKind, quality Quality) (*Stream, error) {
	start := time.Now()
	stream, err := y.openStream(ctx, url, kind, quality)
	metrics.RecordResolverRequest("stream", time.Since(start), err)
	return stream, err
}

func (y *YTDL) openStream(ctx context.Context, url string, kind MediaKind, quality Quality) (*Stream, error) {
	video, err := y.fetchVideo(ctx, url)
	if err != nil {
		return nil, err
	}

	format := selectFormat(video.Formats, kind, quality)
	if format == nil {
		return nil, &ResolutionError{
			Message:  "no suitable format found",
			NotFound: true,
		}
	}

	body, size, err := y.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, &ResolutionError{Message: "failed to open media stream", Err: err}
	}

	return &Stream{
		Body:          body,
		MimeType:      format.MimeType,
		ContentLength: size,
		Title:         video.Title,
	}, nil
}

func (y *YTDL) fetchVideo(ctx context.Context, url string) (*youtube.Video, error) {
	if _, err := youtube.ExtractVideoID(url); err != nil {
		return nil, &ResolutionError{Message: "Invalid URL", NotFound: true, Err: err}
	}
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, &ResolutionError{Message: "resolve canceled", Err: err}
	}
	video, err := y.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, &ResolutionError{Message: "failed to resolve video", Err: err}
	}
	return video, nil
}

// bestThumbnail picks the largest available thumbnail.
func bestThumbnail(thumbnails youtube.Thumbnails) string {
	best := ""
	var bestArea uint
	for _, t := range thumbnails {
		area := t.Width * t.Height
		if best == "" || area > bestArea {
			best = t.URL
			bestArea = area
		}
	}
	return best
}

// selectFormat picks a rendition matching kind, ordered by the quality
// preference. Audio wants an audio-only format; video wants a muxed format
// carrying both tracks (mp4 preferred) so the result plays as a single
// file. Returns nil when no candidate matches.
func selectFormat(formats youtube.FormatList, kind MediaKind, quality Quality) *youtube.Format {
	var candidates []*youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels <= 0 {
			continue
		}
		switch kind {
		case KindAudio:
			if strings.HasPrefix(f.MimeType, "audio/") {
				candidates = append(candidates, f)
			}
		case KindVideo:
			if strings.HasPrefix(f.MimeType, "video/") {
				candidates = append(candidates, f)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// Highest first; mp4 wins ties on container so downloads stay broadly
	// playable.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Bitrate != candidates[j].Bitrate {
			return candidates[i].Bitrate > candidates[j].Bitrate
		}
		return isMP4(candidates[i].MimeType) && !isMP4(candidates[j].MimeType)
	})

	switch quality {
	case QualityLow:
		return candidates[len(candidates)-1]
	case QualityMedium:
		return candidates[len(candidates)/2]
	default: // highest, high
		return candidates[0]
	}
}

func isMP4(mimeType string) bool {
	return strings.Contains(mimeType, "mp4")
}
