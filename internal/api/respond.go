// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/MreRes/blackboxai-1745461143148/internal/backup"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/middleware"
	"github.com/MreRes/blackboxai-1745461143148/internal/models"
	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

// Error codes not produced by the engine.
const (
	codeValidation           = "VALIDATION_ERROR"
	codeNotFound             = "NOT_FOUND"
	codeIntegrity            = "INTEGRITY_ERROR"
	codeConcurrency          = "CONCURRENCY_ERROR"
	codeRetentionGuard       = "RETENTION_GUARD"
	codeInternal             = "INTERNAL_ERROR"
	codeConfirmationRequired = "CONFIRMATION_REQUIRED"
	codePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	codeRateLimited          = "RATE_LIMIT_EXCEEDED"
)

// maxJSONBody bounds request bodies other than uploads.
const maxJSONBody = 1 << 20

func respondJSON(w http.ResponseWriter, r *http.Request, status int, resp *models.APIResponse) {
	resp.Metadata.Timestamp = time.Now().UTC()
	resp.Metadata.RequestID = middleware.GetRequestID(r.Context())

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, r, status, &models.APIResponse{Status: models.StatusSuccess, Data: data})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	respondJSON(w, r, status, &models.APIResponse{
		Status: models.StatusError,
		Error:  &models.APIError{Code: code, Message: message, Details: details},
	})
}

func respondValidation(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
}

// respondEngineError renders an engine error by kind. extra is merged into
// the error details.
func respondEngineError(w http.ResponseWriter, r *http.Request, err error, extra map[string]interface{}) {
	kind := backup.KindOf(err)
	status, code := statusForKind(kind)

	details := map[string]interface{}{}
	var e *backup.Error
	if errors.As(err, &e) {
		if e.Reference != "" {
			details["reference"] = e.Reference
		}
		if kind != backup.KindInfrastructure {
			if e.BackupID != "" {
				details["backupId"] = e.BackupID
			}
			if e.Collection != "" {
				details["collection"] = e.Collection
			}
		}
	}
	for k, v := range extra {
		details[k] = v
	}
	if len(details) == 0 {
		details = nil
	}

	l := logging.Ctx(r.Context())
	if kind == backup.KindInfrastructure {
		l.Error().Err(err).Str("path", r.URL.Path).Msg("Backup operation failed")
	} else {
		l.Debug().Err(err).Str("kind", kind.String()).Msg("Backup request rejected")
	}

	respondError(w, r, status, code, backup.PublicMessage(err), details)
}

func statusForKind(k backup.Kind) (int, string) {
	switch k {
	case backup.KindValidation:
		return http.StatusBadRequest, codeValidation
	case backup.KindNotFound:
		return http.StatusNotFound, codeNotFound
	case backup.KindIntegrity:
		return http.StatusUnprocessableEntity, codeIntegrity
	case backup.KindConcurrency:
		return http.StatusConflict, codeConcurrency
	case backup.KindRetentionGuard:
		return http.StatusBadRequest, codeRetentionGuard
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			respondError(w, r, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "request body too large", nil)
			return false
		}
		respondError(w, r, http.StatusBadRequest, codeValidation, "invalid JSON body", nil)
		return false
	}
	return true
}

// backupIDParam accepts either a bare id or the payload file name.
func backupIDParam(raw string) string {
	return strings.TrimSuffix(raw, ".json")
}
