// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MreRes/blackboxai-1745461143148/internal/backup"
	"github.com/MreRes/blackboxai-1745461143148/internal/middleware"
	"github.com/MreRes/blackboxai-1745461143148/internal/schedule"
)

// CleanRequest is the body of POST /clean. OlderThan accepts a Go duration
// ("72h") or whole days ("7d").
type CleanRequest struct {
	Keep      *int   `json:"keep"`
	OlderThan string `json:"olderThan"`
	Type      string `json:"type"`
	Force     bool   `json:"force"`
}

// CleanBackups prunes backups by count or age.
// POST /api/backup/clean
func (h *Handler) CleanBackups(w http.ResponseWriter, r *http.Request) {
	var req CleanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	policy := backup.CleanPolicy{
		Keep:  req.Keep,
		Type:  backup.Type(req.Type),
		Force: req.Force,
	}
	if req.OlderThan != "" {
		d, err := parseAge(req.OlderThan)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, codeValidation, err.Error(), map[string]interface{}{"field": "olderThan"})
			return
		}
		policy.OlderThan = d
	}

	res, err := h.engine.Clean(r.Context(), policy, middleware.GetActor(r.Context()))
	if err != nil {
		var extra map[string]interface{}
		if res != nil {
			extra = map[string]interface{}{"deletedCount": res.DeletedCount, "deleted": res.Deleted}
		}
		respondEngineError(w, r, err, extra)
		return
	}
	respondSuccess(w, r, http.StatusOK, res)
}

func parseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		d, err := schedule.ParseDays(s)
		if err != nil {
			return 0, fmt.Errorf("invalid olderThan %q", s)
		}
		return d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid olderThan %q", s)
	}
	return d, nil
}

// ScheduleSummary is the schedule part of GET /stats.
type ScheduleSummary struct {
	Enabled  bool   `json:"enabled"`
	Interval string `json:"interval"`
	schedule.Status
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Database backup.StoreStats   `json:"database"`
	Backups  backup.CatalogStats `json:"backups"`
	Schedule ScheduleSummary     `json:"schedule"`
}

// Stats returns store, catalog and schedule figures.
// GET /api/backup/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Stats(r.Context())
	if err != nil {
		respondEngineError(w, r, err, nil)
		return
	}

	cfg := h.schedule.Get()
	sum := ScheduleSummary{Enabled: cfg.Enabled, Interval: cfg.Interval}
	if h.scheduler != nil {
		sum.Status = h.scheduler.Status()
	}

	respondSuccess(w, r, http.StatusOK, StatsResponse{
		Database: st.Store,
		Backups:  st.Backups,
		Schedule: sum,
	})
}
