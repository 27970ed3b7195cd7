// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package api

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MreRes/blackboxai-1745461143148/internal/backup"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/middleware"
	"github.com/MreRes/blackboxai-1745461143148/internal/models"
	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

// CreateBackupRequest is the body of POST /create.
type CreateBackupRequest struct {
	Description string `json:"description" validate:"max=500"`
}

// RestoreRequest is the body of POST /restore. Filename is accepted for
// clients that address backups by payload file name.
type RestoreRequest struct {
	BackupID         string `json:"backupId"`
	Filename         string `json:"filename"`
	ConfirmationCode string `json:"confirmationCode"`
}

// CreateBackup takes a manual backup.
// POST /api/backup/create
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req CreateBackupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}
	if req.Description == "" {
		req.Description = "Manual backup"
	}

	rec, err := h.engine.CreateBackup(r.Context(), backup.CreateRequest{
		Type:        backup.TypeManual,
		CreatedBy:   middleware.GetActor(r.Context()),
		Description: req.Description,
	})
	if err != nil {
		respondEngineError(w, r, err, nil)
		return
	}
	respondSuccess(w, r, http.StatusCreated, rec)
}

// ListBackups lists backups newest first.
// GET /api/backup/list?type=&page=&limit=
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := backup.ListOptions{Type: backup.Type(q.Get("type"))}

	var ok bool
	if opts.Page, ok = intParam(w, r, "page"); !ok {
		return
	}
	if opts.Limit, ok = intParam(w, r, "limit"); !ok {
		return
	}

	res, err := h.engine.List(r.Context(), opts)
	if err != nil {
		respondEngineError(w, r, err, nil)
		return
	}
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: models.StatusSuccess,
		Data:   res.Items,
		Metadata: models.Metadata{
			Pagination: &models.Pagination{
				Total: res.Pagination.Total,
				Page:  res.Pagination.Page,
				Pages: res.Pagination.Pages,
				Limit: res.Pagination.Limit,
			},
		},
	})
}

// GetBackup returns one record.
// GET /api/backup/{id}
func (h *Handler) GetBackup(w http.ResponseWriter, r *http.Request) {
	rec, err := h.engine.Get(r.Context(), backupIDParam(chi.URLParam(r, "id")))
	if err != nil {
		respondEngineError(w, r, err, nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, rec)
}

// DeleteBackup removes one backup. Backups younger than the guard need
// ?force=true.
// DELETE /api/backup/{id}
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	id := backupIDParam(chi.URLParam(r, "id"))
	force, ok := boolParam(w, r, "force")
	if !ok {
		return
	}

	if err := h.engine.Delete(r.Context(), id, force, middleware.GetActor(r.Context())); err != nil {
		respondEngineError(w, r, err, nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{"deleted": id})
}

// VerifyBackup checks a backup's integrity. An integrity failure is a
// successful call reporting isValid=false.
// POST /api/backup/verify/{id}
func (h *Handler) VerifyBackup(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Validate(r.Context(), backupIDParam(chi.URLParam(r, "id")))
	if err != nil && (res == nil || backup.KindOf(err) != backup.KindIntegrity) {
		respondEngineError(w, r, err, nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, res)
}

// RestoreBackup replaces the store contents with a backup.
// POST /api/backup/restore
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := req.BackupID
	if id == "" {
		id = backupIDParam(req.Filename)
	}
	if id == "" {
		respondError(w, r, http.StatusBadRequest, codeValidation, "backupId is required", nil)
		return
	}
	if !h.confirmed(req.ConfirmationCode) {
		logging.Ctx(r.Context()).Warn().Str("backup_id", id).Msg("Restore rejected: bad confirmation code")
		respondError(w, r, http.StatusUnauthorized, codeConfirmationRequired, "invalid confirmation code", nil)
		return
	}

	out, err := h.engine.Restore(r.Context(), id, middleware.GetActor(r.Context()))
	if err != nil {
		var extra map[string]interface{}
		if out != nil {
			extra = map[string]interface{}{"state": out.State}
			if out.SafetyBackupID != "" {
				extra["safetyBackupId"] = out.SafetyBackupID
			}
		}
		respondEngineError(w, r, err, extra)
		return
	}
	respondSuccess(w, r, http.StatusOK, out)
}

func (h *Handler) confirmed(code string) bool {
	want := h.cfg.RestoreConfirmationCode
	if want == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(want)) == 1
}

// DownloadBackup streams a payload as an attachment.
// GET /api/backup/download/{id}
func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	rc, rec, err := h.engine.Open(r.Context(), backupIDParam(chi.URLParam(r, "id")), middleware.GetActor(r.Context()))
	if err != nil {
		respondEngineError(w, r, err, nil)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+backup.DownloadName(rec)+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
	w.Header().Set("X-Checksum-SHA256", rec.Checksum)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("backup_id", rec.ID).Msg("Backup download interrupted")
	}
}

// uploadOverhead allows for multipart framing around the payload.
const uploadOverhead = 1 << 20

// UploadBackup stores an uploaded payload as a backup.
// POST /api/backup/upload (multipart, field "backup")
func (h *Handler) UploadBackup(w http.ResponseWriter, r *http.Request) {
	if h.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+uploadOverhead)
	}

	file, header, err := r.FormFile("backup")
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			respondError(w, r, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "upload too large", nil)
		case errors.Is(err, http.ErrMissingFile):
			respondError(w, r, http.StatusBadRequest, codeValidation, "backup file is required", nil)
		default:
			respondError(w, r, http.StatusBadRequest, codeValidation, "invalid multipart upload", nil)
		}
		return
	}
	defer file.Close()

	rec, err := h.engine.Upload(r.Context(), file, backup.UploadRequest{
		OriginalName: header.Filename,
		UploadedBy:   middleware.GetActor(r.Context()),
		Description:  r.FormValue("description"),
	})
	if err != nil {
		respondEngineError(w, r, err, nil)
		return
	}
	respondSuccess(w, r, http.StatusCreated, rec)
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, name+" must be an integer", map[string]interface{}{"field": name})
		return 0, false
	}
	return n, true
}

func boolParam(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, name+" must be true or false", map[string]interface{}{"field": name})
		return false, false
	}
	return b, true
}
