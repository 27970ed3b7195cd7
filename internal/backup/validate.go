// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"context"
	"errors"
	"io/fs"

	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/metrics"
	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

// Validate checks that backup id can be restored: metadata and payload exist,
// the payload digest matches the recorded checksum, the payload decodes, and
// every required collection is present.
//
// The result is always returned for a well-formed id. When the backup is
// invalid, result.Valid is false, result.Reason says why, and the error is an
// *Error of kind NotFound or Integrity. Validate never modifies files.
func (e *Engine) Validate(ctx context.Context, id string) (*ValidationResult, error) {
	res, _, err := e.validate(ctx, "validate", id)
	return res, err
}

// validate also returns the decoded payload so Restore reads the file once.
func (e *Engine) validate(ctx context.Context, op, id string) (*ValidationResult, Payload, error) {
	res := &ValidationResult{BackupID: id}

	fail := func(reason, metric string, err *Error) (*ValidationResult, Payload, error) {
		res.Valid = false
		res.Reason = reason
		metrics.ValidationFailures.WithLabelValues(metric).Inc()
		logging.Ctx(ctx).Warn().Str("backup_id", id).Str("reason", reason).Msg("Backup validation failed")
		return res, nil, err
	}

	if !validation.IsBackupID(id) {
		return fail("invalid backup id", "invalid_id", validationErr(op, "invalid backup id %q", id))
	}
	if err := ctx.Err(); err != nil {
		return res, nil, infraErr(op, id, "operation canceled", err)
	}

	rec, err := e.catalog.readMeta(id)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail("metadata missing", "missing_metadata", notFoundErr(op, id, "backup metadata not found"))
	case errors.Is(err, errCorruptMetadata):
		return fail("metadata corrupt", "corrupt_metadata", &Error{Kind: KindIntegrity, Op: op, BackupID: id, Msg: "backup metadata is corrupt", Err: err})
	case err != nil:
		return res, nil, infraErr(op, id, "metadata read failed", err)
	}
	res.Record = rec
	res.ExpectedChecksum = rec.Checksum

	data, err := e.catalog.readPayload(id)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail("payload missing", "missing_payload", notFoundErr(op, id, "backup payload not found"))
	case err != nil:
		return res, nil, infraErr(op, id, "payload read failed", err)
	}

	res.ActualChecksum = Checksum(data)
	if res.ActualChecksum != rec.Checksum {
		return fail("checksum mismatch", "checksum", integrityErr(op, id, "checksum mismatch"))
	}

	payload, err := DecodePayload(data)
	if err != nil {
		return fail("payload is not a valid snapshot", "decode",
			&Error{Kind: KindIntegrity, Op: op, BackupID: id, Msg: "payload is not a valid snapshot", Err: err})
	}

	if missing := payload.Missing(e.cfg.RequiredCollections); len(missing) > 0 {
		res.MissingCollections = missing
		ierr := integrityErr(op, id, "required collection missing")
		ierr.Collection = missing[0]
		return fail("required collection missing: "+missing[0], "missing_collection", ierr)
	}

	res.Valid = true
	return res, payload, nil
}
