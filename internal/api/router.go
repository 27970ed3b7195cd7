// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MreRes/blackboxai-1745461143148/internal/middleware"
)

// NewRouter builds the HTTP handler tree.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	if len(h.cfg.CORSOrigins) > 0 {
		r.Use(corsHandler(h.cfg.CORSOrigins))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, codeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/backup", func(r chi.Router) {
		r.Use(h.rateLimit())
		r.Use(securityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.Actor)

		r.Post("/create", h.CreateBackup)
		r.Get("/list", h.ListBackups)
		r.Get("/stats", h.Stats)
		r.Post("/clean", h.CleanBackups)
		r.Get("/download/{id}", h.DownloadBackup)
		r.Post("/upload", h.UploadBackup)
		r.Get("/schedule", h.GetSchedule)
		r.Post("/schedule", h.UpdateSchedule)
		r.Post("/verify/{id}", h.VerifyBackup)
		r.Post("/restore", h.RestoreBackup)
		r.Get("/activity", h.Activity)
		r.Get("/{id}", h.GetBackup)
		r.Delete("/{id}", h.DeleteBackup)
	})

	return r
}
