// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/metrics"
	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// List returns one page of backups, newest first. Only metadata is read.
func (e *Engine) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	const op = "list backups"

	if verr := validation.ValidateStruct(&opts); verr != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Msg: verr.Error(), Err: verr}
	}
	if err := ctx.Err(); err != nil {
		return nil, infraErr(op, "", "operation canceled", err)
	}

	page, limit := opts.Page, opts.Limit
	if page == 0 {
		page = defaultPage
	}
	if limit == 0 {
		limit = defaultLimit
	}

	recs, err := e.catalog.records()
	if err != nil {
		return nil, infraErr(op, "", "catalog read failed", err)
	}
	metrics.CatalogSize.Set(float64(len(recs)))

	recs = filterType(recs, opts.Type)
	total := len(recs)

	// Pages past the end are empty. Checking before multiplying keeps
	// huge page numbers from overflowing.
	start := total
	if page-1 <= total/limit {
		start = min((page-1)*limit, total)
	}
	end := start + limit
	if end > total {
		end = total
	}

	items := make([]Record, end-start)
	copy(items, recs[start:end])

	return &ListResult{
		Items: items,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// Get returns the metadata of backup id.
func (e *Engine) Get(ctx context.Context, id string) (*Record, error) {
	const op = "get backup"
	return e.lookup(ctx, op, id)
}

func (e *Engine) lookup(ctx context.Context, op, id string) (*Record, error) {
	if !validation.IsBackupID(id) {
		return nil, validationErr(op, "invalid backup id %q", id)
	}
	if err := ctx.Err(); err != nil {
		return nil, infraErr(op, id, "operation canceled", err)
	}
	rec, err := e.catalog.readMeta(id)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, notFoundErr(op, id, "backup not found")
	case errors.Is(err, errCorruptMetadata):
		return nil, &Error{Kind: KindIntegrity, Op: op, BackupID: id, Msg: "backup metadata is corrupt", Err: err}
	case err != nil:
		return nil, infraErr(op, id, "metadata read failed", err)
	}
	return rec, nil
}

// CheckRetentionGuard rejects deleting rec when it is younger than the
// configured guard and force is not set.
func (e *Engine) CheckRetentionGuard(rec *Record, force bool) error {
	if force || e.cfg.RecentGuard == 0 {
		return nil
	}
	age := rec.Age(e.clock.Now())
	if age >= e.cfg.RecentGuard {
		return nil
	}
	metrics.RetentionGuardRejections.Inc()
	msg := "backup " + rec.ID + " was created " + ageOf(rec, e.clock.Now()) +
		"; deleting backups younger than " + e.cfg.RecentGuard.String() + " requires force"
	return &Error{Kind: KindRetentionGuard, Op: "retention guard", BackupID: rec.ID, Msg: msg}
}

// Clean prunes the catalog according to policy. OlderThan, when set, wins
// over Keep. The guard is checked for every candidate before anything is
// deleted, so a rejected Clean deletes nothing.
func (e *Engine) Clean(ctx context.Context, policy CleanPolicy, actor string) (*CleanResult, error) {
	const op = "clean backups"

	if policy.Type != "" && !policy.Type.Valid() {
		return nil, validationErr(op, "unknown backup type %q", policy.Type)
	}
	if policy.OlderThan < 0 {
		return nil, validationErr(op, "olderThan must not be negative")
	}
	keep := DefaultKeep
	if policy.Keep != nil {
		keep = *policy.Keep
	}
	if keep < 0 {
		return nil, validationErr(op, "keep must not be negative")
	}
	if err := ctx.Err(); err != nil {
		return nil, infraErr(op, "", "operation canceled", err)
	}

	recs, err := e.catalog.records()
	if err != nil {
		return nil, infraErr(op, "", "catalog read failed", err)
	}
	scoped := filterType(recs, policy.Type)

	var candidates []Record
	if policy.OlderThan > 0 {
		cutoff := e.clock.Now().Add(-policy.OlderThan)
		for _, r := range scoped {
			if r.CreatedAt.Before(cutoff) {
				candidates = append(candidates, r)
			}
		}
	} else if len(scoped) > keep {
		candidates = scoped[keep:]
	}

	for i := range candidates {
		if err := e.CheckRetentionGuard(&candidates[i], policy.Force); err != nil {
			var gerr *Error
			if errors.As(err, &gerr) {
				gerr.Op = op
			}
			logging.Ctx(ctx).Warn().Str("backup_id", candidates[i].ID).Msg("Clean rejected by retention guard")
			return nil, err
		}
	}

	res := &CleanResult{Deleted: make([]string, 0, len(candidates))}
	var errs []error
	for _, r := range candidates {
		if err := e.catalog.remove(r.ID); err != nil {
			errs = append(errs, err)
			logging.Ctx(ctx).Error().Err(err).Str("backup_id", r.ID).Msg("Failed to delete backup")
			continue
		}
		res.DeletedCount++
		res.FreedBytes += r.SizeBytes
		res.Deleted = append(res.Deleted, r.ID)
		metrics.RecordRetentionDelete(string(r.Type), r.SizeBytes)
	}
	res.RemainingCount = len(recs) - res.DeletedCount
	metrics.CatalogSize.Set(float64(res.RemainingCount))

	details := map[string]interface{}{
		"deletedCount":   res.DeletedCount,
		"freedBytes":     res.FreedBytes,
		"remainingCount": res.RemainingCount,
		"deleted":        res.Deleted,
		"force":          policy.Force,
	}
	if policy.OlderThan > 0 {
		details["olderThan"] = policy.OlderThan.String()
	} else {
		details["keep"] = keep
	}
	if policy.Type != "" {
		details["type"] = string(policy.Type)
	}
	e.activity.Record(ctx, activity.Entry{
		EventType: activity.EventClean,
		Actor:     actorOrSystem(actor),
		Details:   details,
	})

	logging.Ctx(ctx).Info().
		Int("deleted", res.DeletedCount).
		Str("freed", humanize.IBytes(uint64(res.FreedBytes))).
		Int("remaining", res.RemainingCount).
		Msg("Backups cleaned")

	if len(errs) > 0 {
		return res, infraErr(op, "", "some backups could not be deleted", errors.Join(errs...))
	}
	return res, nil
}

// Delete removes a single backup, subject to the retention guard.
func (e *Engine) Delete(ctx context.Context, id string, force bool, actor string) error {
	const op = "delete backup"

	rec, err := e.lookup(ctx, op, id)
	if err != nil {
		return err
	}
	if err := e.CheckRetentionGuard(rec, force); err != nil {
		var gerr *Error
		if errors.As(err, &gerr) {
			gerr.Op = op
		}
		return err
	}
	if err := e.catalog.remove(id); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFoundErr(op, id, "backup not found")
		}
		return infraErr(op, id, "delete failed", err)
	}
	metrics.RecordRetentionDelete(string(rec.Type), rec.SizeBytes)

	e.activity.Record(ctx, activity.Entry{
		EventType: activity.EventClean,
		Actor:     actorOrSystem(actor),
		Details: map[string]interface{}{
			"backupId":     id,
			"deletedCount": 1,
			"freedBytes":   rec.SizeBytes,
			"force":        force,
		},
	})
	logging.Ctx(ctx).Info().Str("backup_id", id).Bool("force", force).Msg("Backup deleted")
	return nil
}

func filterType(recs []Record, typ Type) []Record {
	if typ == "" {
		return recs
	}
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

func ageOf(rec *Record, now time.Time) string {
	return humanize.RelTime(rec.CreatedAt, now, "ago", "from now")
}
