// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

// Package backup is the backup and restore engine of the financial tracking
// service.
//
// # Overview
//
// The Engine snapshots every collection of a store.CollectionStore into a
// JSON payload file, verifies payloads against their recorded SHA-256, and
// restores the store from a payload without risking irrecoverable data loss:
//
//	Snapshotter        CreateBackup   payload + metadata sidecar, atomic
//	Checksum Validator Validate       digest + required collections
//	Restore            Restore        validate, safety snapshot, atomic apply
//	Retention          List/Clean/Delete, 24h guard
//	Transfer           Upload/Open    untrusted uploads, downloads
//
// # Storage layout
//
//	<dir>/backup-2026-03-01T02-00-00-000Z-1a2b3c4d.json       payload
//	<dir>/backup-2026-03-01T02-00-00-000Z-1a2b3c4d.meta.json  metadata
//
// The metadata write is the commit point of a backup. A payload without
// metadata is an orphan: listing and validation never see it, and Recover
// removes it once it is older than Config.OrphanGrace.
//
// # Restore protocol
//
//	Idle -> Validating -> SafetyBackupInProgress -> Applying -> Committed
//	                                                         \-> RolledBack
//
// Only one restore runs at a time. A second restore, or a CreateBackup call,
// made while a restore is running fails immediately with a Concurrency error.
// Cancellation is honored until Applying starts; after that the store write
// scope always runs to commit or rollback. A deadline that expires during
// Applying rolls the scope back.
//
// # Errors
//
// Every error returned by the Engine is an *Error with one of the Kind values.
// Callers map kinds to transport status codes and use PublicMessage for the
// text shown to users.
//
// # Usage
//
//	eng, err := backup.New(st, cfg, backup.WithActivity(activityLog))
//	if err != nil {
//		return err
//	}
//	rec, err := eng.CreateBackup(ctx, backup.CreateRequest{Type: backup.TypeManual, CreatedBy: actor})
//	...
//	outcome, err := eng.Restore(ctx, rec.ID, actor)
package backup
