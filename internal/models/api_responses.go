// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package models

import (
	"time"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope returned by every JSON endpoint.
//
// Successful response:
//
//	{
//	  "status": "success",
//	  "data": {"id": "backup-2026-03-01T12-00-00-000Z-1a2b3c4d", ...},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
//
// Error response:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "request_id": "..."},
//	  "error": {"code": "NOT_FOUND", "message": "backup not found"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes the response itself.
type Metadata struct {
	Timestamp  time.Time   `json:"timestamp"`
	RequestID  string      `json:"request_id,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination accompanies list responses.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

// APIError is the machine-readable part of an error response.
//
// Codes used by the backup API:
//   - VALIDATION_ERROR: malformed input
//   - NOT_FOUND: unknown backup id
//   - INTEGRITY_ERROR: backup failed verification
//   - CONCURRENCY_ERROR: a restore is already running
//   - RETENTION_GUARD: deleting a recent backup without force
//   - CONFIRMATION_REQUIRED: restore confirmation code missing or wrong
//   - RATE_LIMIT_EXCEEDED: too many requests
//   - INTERNAL_ERROR: storage or filesystem failure
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
