// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package api

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// rateLimit limits requests per client IP. A zero limit disables it.
func (h *Handler) rateLimit() func(http.Handler) http.Handler {
	if h.cfg.RateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		h.cfg.RateLimit,
		h.cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusTooManyRequests, codeRateLimited, "too many requests", nil)
		}),
	)
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Actor", "X-Request-ID", "X-Correlation-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Correlation-ID", "Content-Disposition", "X-Checksum-SHA256"},
		MaxAge:         86400,
	})
}

// securityHeaders sets headers for JSON API responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
