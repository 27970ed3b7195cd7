// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package middleware

import (
	"context"
	"net/http"
	"strings"
	"unicode"

	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
)

// HeaderActor carries the authenticated user forwarded by the gateway.
const HeaderActor = "X-Actor"

// AnonymousActor is used when no identity was forwarded.
const AnonymousActor = "anonymous"

const maxActorLength = 64

// Actor stores the caller identity in the request context.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := sanitizeActor(r.Header.Get(HeaderActor))
		next.ServeHTTP(w, r.WithContext(logging.ContextWithActor(r.Context(), actor)))
	})
}

// GetActor returns the caller identity, or AnonymousActor.
func GetActor(ctx context.Context) string {
	if a := logging.ActorFromContext(ctx); a != "" {
		return a
	}
	return AnonymousActor
}

// sanitizeActor drops control characters so the value is safe in log lines
// and activity entries.
func sanitizeActor(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if len(s) > maxActorLength {
		s = s[:maxActorLength]
	}
	if s == "" {
		return AnonymousActor
	}
	return s
}
