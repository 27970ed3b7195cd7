// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/metrics"
	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

// Upload stores a payload produced elsewhere as a new backup of type upload.
//
// The payload must decode and carry every required collection. It is
// re-encoded canonically before it is written, so the recorded checksum is
// the digest of the canonical bytes and not of the uploaded ones.
func (e *Engine) Upload(ctx context.Context, r io.Reader, req UploadRequest) (*Record, error) {
	const op = "upload backup"

	if verr := validation.ValidateStruct(&req); verr != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Msg: verr.Error(), Err: verr}
	}
	if err := ctx.Err(); err != nil {
		return nil, infraErr(op, "", "operation canceled", err)
	}

	start := e.clock.Now()
	limit := e.cfg.MaxUploadBytes
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, infraErr(op, "", "reading upload failed", err)
	}
	if int64(len(raw)) > limit {
		metrics.RecordBackupFailure(string(TypeUpload), "too_large")
		return nil, validationErr(op, "upload exceeds the %s limit", humanize.IBytes(uint64(limit)))
	}
	if len(raw) == 0 {
		return nil, validationErr(op, "upload is empty")
	}

	payload, err := DecodePayload(raw)
	if err != nil {
		metrics.RecordBackupFailure(string(TypeUpload), "decode")
		return nil, &Error{Kind: KindValidation, Op: op, Msg: "upload is not a valid backup payload", Err: err}
	}
	if missing := payload.Missing(e.cfg.RequiredCollections); len(missing) > 0 {
		metrics.RecordBackupFailure(string(TypeUpload), "missing_collection")
		ierr := integrityErr(op, "", "required collection missing")
		ierr.Collection = missing[0]
		return nil, ierr
	}

	data, err := payload.Encode()
	if err != nil {
		return nil, infraErr(op, "", "payload encoding failed", err)
	}

	id := newBackupID(start)
	rec := &Record{
		ID:            id,
		Filename:      id + payloadExt,
		CreatedAt:     start.UTC(),
		Checksum:      Checksum(data),
		Collections:   payload.Collections(),
		DocumentCount: payload.DocumentCount(),
		SizeBytes:     int64(len(data)),
		Type:          TypeUpload,
		CreatedBy:     req.UploadedBy,
		Description:   req.Description,
		OriginalName:  req.OriginalName,
	}
	if rec.Description == "" && req.OriginalName != "" {
		rec.Description = "Uploaded from " + req.OriginalName
	}

	if err := e.commit(op, data, rec); err != nil {
		metrics.RecordBackupFailure(string(TypeUpload), "io")
		return nil, err
	}

	// Read back what was committed; a backup that cannot be restored is
	// removed again.
	if _, _, err := e.validate(ctx, op, id); err != nil {
		if rmErr := e.catalog.remove(id); rmErr != nil {
			logging.Ctx(ctx).Error().Err(rmErr).Str("backup_id", id).Msg("Failed to remove invalid uploaded backup")
		}
		return nil, asEngineError(op, id, err)
	}

	metrics.RecordBackupCreated(string(TypeUpload), e.clock.Now().Sub(start), rec.SizeBytes, rec.DocumentCount)
	e.activity.Record(ctx, activity.Entry{
		EventType: activity.EventUpload,
		Actor:     actorOrSystem(req.UploadedBy),
		Details: map[string]interface{}{
			"backupId":       rec.ID,
			"originalName":   rec.OriginalName,
			"documentsCount": rec.DocumentCount,
			"size":           rec.SizeBytes,
			"uploadedSize":   len(raw),
		},
	})
	logging.Ctx(ctx).Info().
		Str("backup_id", rec.ID).
		Str("original_name", rec.OriginalName).
		Str("size", humanize.IBytes(uint64(rec.SizeBytes))).
		Msg("Backup uploaded")

	return rec, nil
}

// Open returns the payload of backup id for download. The caller closes the
// reader.
func (e *Engine) Open(ctx context.Context, id, actor string) (io.ReadCloser, *Record, error) {
	const op = "download backup"

	rec, err := e.lookup(ctx, op, id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(e.catalog.payloadPath(id)) //nolint:gosec // G304: id checked by lookup
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil, notFoundErr(op, id, "backup payload not found")
	case err != nil:
		return nil, nil, infraErr(op, id, "payload open failed", err)
	}

	e.activity.Record(ctx, activity.Entry{
		EventType: activity.EventDownload,
		Actor:     actorOrSystem(actor),
		Details: map[string]interface{}{
			"backupId": id,
			"size":     rec.SizeBytes,
		},
	})
	logging.Ctx(ctx).Debug().Str("backup_id", id).Msg("Backup download started")
	return f, rec, nil
}

// DownloadName is the file name offered to clients downloading rec.
func DownloadName(rec *Record) string {
	return rec.ID + payloadExt
}
