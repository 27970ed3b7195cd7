// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

/*
Package middleware provides the HTTP middleware shared by the backup API.

Components:

  - RequestID: accepts or generates X-Request-ID and seeds the logging
    context with request and correlation ids
  - Actor: reads the caller identity set by the upstream auth proxy
  - PrometheusMetrics: request counts and latency keyed by chi route pattern
  - AccessLog: one structured log line per request

All middleware use the func(http.Handler) http.Handler shape so they can be
passed straight to chi's r.Use:

	r.Use(middleware.RequestID)
	r.Use(middleware.Actor)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)

Authentication is not performed here. The service is deployed behind a
gateway that authenticates users and forwards the identity in X-Actor.
*/
package middleware
