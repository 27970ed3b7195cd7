// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/middleware"
	"github.com/MreRes/blackboxai-1745461143148/internal/schedule"
)

// GetSchedule returns the current schedule.
// GET /api/backup/schedule
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.schedule.Get())
}

// UpdateSchedule replaces the schedule. Fields missing from the body take
// their default values, not the current ones.
// POST /api/backup/schedule
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	cfg := schedule.DefaultConfig()
	if !decodeJSON(w, r, &cfg) {
		return
	}
	cfg.UpdatedBy = ""
	cfg.UpdatedAt = nil

	stored, err := h.schedule.Update(r.Context(), cfg, middleware.GetActor(r.Context()))
	if err != nil {
		if errors.Is(err, schedule.ErrInvalid) {
			msg := strings.TrimPrefix(err.Error(), schedule.ErrInvalid.Error()+": ")
			respondError(w, r, http.StatusBadRequest, codeValidation, msg, nil)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("Schedule update failed")
		respondError(w, r, http.StatusInternalServerError, codeInternal, "schedule could not be saved", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, stored)
}
