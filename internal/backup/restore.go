// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

/*
restore.go - Restore Coordinator

Restore replaces the content of every collection present in a backup payload:

 1. Validating: the target must pass Validate. Nothing is written otherwise.
 2. SafetyBackupInProgress: a TypeSafety snapshot of the current store. Its id
    is attached to every later error as the reference.
 3. Applying: one store write scope; per collection DeleteAll then
    InsertMany. The scope commits only if every collection applied.
 4. Committed, or RolledBack with the store exactly as before step 3.

Collections absent from the payload are not touched.

The Applying context drops the caller's cancellation but keeps its deadline,
tightened by Config.ApplyTimeout. An expired deadline fails the scope, and the
store rolls it back like any other apply failure.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/metrics"
	"github.com/MreRes/blackboxai-1745461143148/internal/store"
)

// Restore restores the store from backup id on behalf of actor.
//
// The outcome is returned on failure too, with State StateRolledBack. The
// activity entry records the state the protocol failed in.
func (e *Engine) Restore(ctx context.Context, id, actor string) (*RestoreOutcome, error) {
	const op = "restore"

	if !e.restoreMu.TryLock() {
		metrics.Restores.WithLabelValues("rejected").Inc()
		return nil, &Error{Kind: KindConcurrency, Op: op, BackupID: id, Msg: "a restore is already in progress"}
	}
	e.restoring.Store(true)
	metrics.RestoreInProgress.Set(1)
	defer func() {
		e.restoring.Store(false)
		metrics.RestoreInProgress.Set(0)
		e.restoreMu.Unlock()
	}()

	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}

	out := &RestoreOutcome{
		BackupID:  id,
		State:     StateIdle,
		StartedAt: e.clock.Now().UTC(),
		Actor:     actor,
	}
	logging.Ctx(ctx).Info().Str("backup_id", id).Str("actor", actor).Msg("Restore started")

	out.State = StateValidating
	_, payload, err := e.validate(ctx, op, id)
	if err != nil {
		return e.finishRestore(ctx, out, err)
	}

	if err := ctx.Err(); err != nil {
		return e.finishRestore(ctx, out, infraErr(op, id, "restore canceled before safety backup", err))
	}

	out.State = StateSafetyBackup
	safety, err := e.snapshot(ctx, op, TypeSafety, actor, "Safety backup before restoring "+id)
	if err != nil {
		return e.finishRestore(ctx, out, &Error{
			Kind: KindInfrastructure, Op: op, BackupID: id,
			Msg: "safety backup failed; restore aborted", Err: err,
		})
	}
	out.SafetyBackupID = safety.ID

	if err := ctx.Err(); err != nil {
		return e.finishRestore(ctx, out, &Error{
			Kind: KindInfrastructure, Op: op, BackupID: id, Reference: safety.ID,
			Msg: "restore canceled before apply", Err: err,
		})
	}

	out.State = StateApplying
	applyCtx, cancel := applyContext(ctx, e.cfg.ApplyTimeout)
	restored, err := e.apply(applyCtx, payload)
	cancel()
	if err != nil {
		return e.finishRestore(ctx, out, &Error{
			Kind: KindInfrastructure, Op: op, BackupID: id, Reference: safety.ID,
			Msg: "restore failed; store left unchanged", Err: err,
		})
	}

	out.State = StateCommitted
	out.Collections = payload.Collections()
	out.DocumentsRestored = restored
	return e.finishRestore(ctx, out, nil)
}

// applyContext detaches ctx from caller cancellation but keeps its deadline
// and applies timeout on top.
func applyContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	applyCtx := context.WithoutCancel(ctx)
	cancels := make([]context.CancelFunc, 0, 2)

	if deadline, ok := ctx.Deadline(); ok {
		var c context.CancelFunc
		applyCtx, c = context.WithDeadline(applyCtx, deadline)
		cancels = append(cancels, c)
	}
	if timeout > 0 {
		var c context.CancelFunc
		applyCtx, c = context.WithTimeout(applyCtx, timeout)
		cancels = append(cancels, c)
	}
	return applyCtx, func() {
		for i := len(cancels) - 1; i >= 0; i-- {
			cancels[i]()
		}
	}
}

// apply rewrites each payload collection inside one write scope.
func (e *Engine) apply(ctx context.Context, payload Payload) (int64, error) {
	var restored int64
	err := e.store.WithTransaction(ctx, func(ctx context.Context, w store.Writer) error {
		restored = 0
		for _, name := range payload.Collections() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := w.DeleteAll(ctx, name); err != nil {
				return fmt.Errorf("clear %s: %w", name, err)
			}
			docs := payload[name]
			if len(docs) > 0 {
				if err := w.InsertMany(ctx, name, docs); err != nil {
					return fmt.Errorf("insert into %s: %w", name, err)
				}
			}
			restored += int64(len(docs))
		}
		return nil
	})
	return restored, err
}

func (e *Engine) finishRestore(ctx context.Context, out *RestoreOutcome, err error) (*RestoreOutcome, error) {
	out.FinishedAt = e.clock.Now().UTC()
	out.Duration = out.FinishedAt.Sub(out.StartedAt)

	details := map[string]interface{}{
		"backupId": out.BackupID,
		"state":    string(out.State),
	}
	if out.SafetyBackupID != "" {
		details["safetyBackupId"] = out.SafetyBackupID
	}

	if err != nil {
		// Anything that stopped after validation started left the store
		// untouched: either nothing was written or the scope rolled back.
		failedIn := out.State
		out.State = StateRolledBack
		details["state"] = string(out.State)
		details["failedIn"] = string(failedIn)
		details["error"] = PublicMessage(err)

		outcome := "rolled_back"
		if failedIn == StateValidating {
			outcome = "rejected"
		}
		metrics.RecordRestore(outcome, out.Duration)

		ev := logging.Ctx(ctx).Error().Err(err)
		if KindOf(err) != KindInfrastructure {
			ev = logging.Ctx(ctx).Warn().Err(err)
		}
		ev.Str("backup_id", out.BackupID).
			Str("safety_backup_id", out.SafetyBackupID).
			Str("failed_in", string(failedIn)).
			Msg("Restore failed")
	} else {
		details["documentsRestored"] = out.DocumentsRestored
		details["collections"] = out.Collections
		metrics.RecordRestore("committed", out.Duration)
		logging.Ctx(ctx).Info().
			Str("backup_id", out.BackupID).
			Str("safety_backup_id", out.SafetyBackupID).
			Int64("documents", out.DocumentsRestored).
			Dur("duration", out.Duration).
			Msg("Restore committed")
	}

	e.activity.Record(ctx, activity.Entry{
		EventType: activity.EventRestore,
		Actor:     actorOrSystem(out.Actor),
		Details:   details,
	})
	return out, err
}
