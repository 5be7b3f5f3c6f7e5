// Streamgate - Authenticated Media Streaming Gateway
// Copyright 2026 The Streamgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamgate/streamgate

// Package middleware provides HTTP middleware for request identity,
// bearer-token authentication, panic recovery, and Prometheus
// instrumentation.
package middleware
