// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package api

import (
	"net/http"
	"time"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 1000
)

// Activity returns activity log entries oldest first.
// GET /api/backup/activity?since=&until=&type=&actor=&limit=
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := activity.Query{
		EventType: activity.EventType(q.Get("type")),
		Actor:     q.Get("actor"),
		Limit:     defaultActivityLimit,
	}

	if query.EventType != "" && !query.EventType.Valid() {
		respondError(w, r, http.StatusBadRequest, codeValidation, "unknown event type "+string(query.EventType), map[string]interface{}{"field": "type"})
		return
	}
	var ok bool
	if query.Since, ok = timeParam(w, r, "since"); !ok {
		return
	}
	if query.Until, ok = timeParam(w, r, "until"); !ok {
		return
	}
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	if limit < 0 || limit > maxActivityLimit {
		respondError(w, r, http.StatusBadRequest, codeValidation, "limit must be between 0 and 1000", map[string]interface{}{"field": "limit"})
		return
	}
	if limit > 0 {
		query.Limit = limit
	}

	entries, err := h.activity.Read(r.Context(), query)
	if err != nil {
		respondEngineError(w, r, err, nil)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	respondSuccess(w, r, http.StatusOK, entries)
}

func timeParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, name+" must be an RFC 3339 timestamp", map[string]interface{}{"field": name})
		return time.Time{}, false
	}
	return t, true
}
