// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package api

import (
	"net/http"
)

// Health reports liveness and whether a restore is running.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"restoring": h.engine.Restoring(),
	})
}
