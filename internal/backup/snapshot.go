// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/fsutil"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/metrics"
	"github.com/MreRes/blackboxai-1745461143148/internal/store"
	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

// SystemActor is recorded in the activity log for operations without a
// caller identity.
const SystemActor = "system"

func actorOrSystem(actor string) string {
	if actor == "" {
		return SystemActor
	}
	return actor
}

// CreateBackup snapshots every collection of the store.
//
// The payload is written before the metadata; the backup exists only once
// the metadata is in place. A store read failure writes nothing. While a
// restore is running the call fails with a Concurrency error.
func (e *Engine) CreateBackup(ctx context.Context, req CreateRequest) (*Record, error) {
	const op = "create backup"

	if verr := validation.ValidateStruct(&req); verr != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Msg: verr.Error(), Err: verr}
	}
	if e.restoring.Load() {
		metrics.RecordBackupFailure(string(req.Type), "concurrency")
		return nil, &Error{Kind: KindConcurrency, Op: op, Msg: "a restore is in progress"}
	}
	return e.snapshot(ctx, op, req.Type, req.CreatedBy, req.Description)
}

// snapshot captures the store without checking the restore lock. Restore
// calls it directly for the safety backup.
func (e *Engine) snapshot(ctx context.Context, op string, typ Type, actor, description string) (*Record, error) {
	start := e.clock.Now()

	if err := ctx.Err(); err != nil {
		return nil, infraErr(op, "", "operation canceled", err)
	}

	payload, err := e.capture(ctx)
	if err != nil {
		metrics.RecordBackupFailure(string(typ), "store_read")
		logging.Ctx(ctx).Error().Err(err).Str("type", string(typ)).Msg("Backup failed reading the store")
		return nil, infraErr(op, "", "store read failed", err)
	}

	data, err := payload.Encode()
	if err != nil {
		metrics.RecordBackupFailure(string(typ), "encode")
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
		Type:          typ,
		CreatedBy:     actor,
		Description:   description,
	}

	if err := e.commit(op, data, rec); err != nil {
		metrics.RecordBackupFailure(string(typ), "io")
		logging.Ctx(ctx).Error().Err(err).Str("backup_id", id).Msg("Backup failed writing the catalog")
		return nil, err
	}

	duration := e.clock.Now().Sub(start)
	metrics.RecordBackupCreated(string(typ), duration, rec.SizeBytes, rec.DocumentCount)

	e.activity.Record(ctx, activity.Entry{
		EventType: activity.EventCreate,
		Actor:     actorOrSystem(actor),
		Details: map[string]interface{}{
			"backupId":       rec.ID,
			"type":           string(rec.Type),
			"documentsCount": rec.DocumentCount,
			"size":           rec.SizeBytes,
			"checksum":       rec.Checksum,
			"collections":    rec.Collections,
		},
	})

	logging.Ctx(ctx).Info().
		Str("backup_id", rec.ID).
		Str("type", string(rec.Type)).
		Int("collections", len(rec.Collections)).
		Int64("documents", rec.DocumentCount).
		Int64("size_bytes", rec.SizeBytes).
		Dur("duration", duration).
		Msg("Backup created")

	return rec, nil
}

// capture reads every collection, a bounded number at a time. Any failure
// discards the whole capture.
func (e *Engine) capture(ctx context.Context) (Payload, error) {
	names, err := e.store.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate collections: %w", err)
	}

	docs := make([][]store.Document, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.ReadConcurrency)
	for i, name := range names {
		g.Go(func() error {
			d, err := e.store.ReadAll(gctx, name)
			if err != nil {
				return fmt.Errorf("read collection %s: %w", name, err)
			}
			docs[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	payload := make(Payload, len(names))
	for i, name := range names {
		payload[name] = docs[i]
	}
	return payload, nil
}

// commit writes payload then metadata. If the metadata write fails the
// payload is removed so no orphan is left behind.
func (e *Engine) commit(op string, data []byte, rec *Record) error {
	if err := e.catalog.ensureDir(); err != nil {
		return infraErr(op, rec.ID, "backup directory is not writable", err)
	}
	if err := e.catalog.writePayload(rec.ID, data); err != nil {
		return infraErr(op, rec.ID, "payload write failed", err)
	}
	if err := e.catalog.writeMeta(rec); err != nil {
		if rmErr := fsutil.RemoveIfExists(e.catalog.payloadPath(rec.ID)); rmErr != nil {
			logging.Warn().Err(rmErr).Str("backup_id", rec.ID).Msg("Failed to remove payload after metadata write failure")
		}
		return infraErr(op, rec.ID, "metadata write failed", err)
	}
	return nil
}
