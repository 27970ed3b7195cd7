// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

/*
runner.go - Periodic Backup Trigger

Runner is a suture service that takes a scheduled backup every interval:

 1. CreateBackup with type scheduled
 2. prune scheduled backups beyond Retention.Count
 3. prune scheduled backups older than Retention.Days
 4. notify the configured target of the outcome

Pruning never forces past the recent-backup guard; a guard rejection is
logged and the run still counts as a success. The timer is re-armed from
scratch whenever the schedule changes, and is not armed at all while the
schedule is disabled.
*/

//nolint:staticcheck // File documentation, not package doc
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/MreRes/blackboxai-1745461143148/internal/backup"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/metrics"
	"github.com/MreRes/blackboxai-1745461143148/internal/notify"
)

// BackupEngine is the part of *backup.Engine the runner drives.
type BackupEngine interface {
	CreateBackup(ctx context.Context, req backup.CreateRequest) (*backup.Record, error)
	Clean(ctx context.Context, policy backup.CleanPolicy, actor string) (*backup.CleanResult, error)
}

// Status describes the runner for the stats endpoint.
type Status struct {
	NextRun      *time.Time `json:"nextRun,omitempty"`
	LastRun      *time.Time `json:"lastRun,omitempty"`
	LastBackupID string     `json:"lastBackupId,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
}

// RunResult is the outcome of one scheduled run.
type RunResult struct {
	Backup *backup.Record
	Pruned int
	Err    error
}

// Runner triggers scheduled backups.
type Runner struct {
	engine   BackupEngine
	store    *Store
	notifier notify.Notifier
	clock    clock.Clock

	mu     sync.Mutex
	status Status
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerClock sets the clock driving the timer.
func WithRunnerClock(c clock.Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

// NewRunner creates a Runner. A nil notifier disables notifications.
func NewRunner(engine BackupEngine, store *Store, notifier notify.Notifier, opts ...RunnerOption) *Runner {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	r := &Runner{
		engine:   engine,
		store:    store,
		notifier: notifier,
		clock:    clock.WallClock,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Serve implements suture.Service.
func (r *Runner) Serve(ctx context.Context) error {
	logging.Info().Msg("Backup scheduler started")
	defer r.setNext(nil)

	for {
		cfg := r.store.Get()

		var timer clock.Timer
		var fire <-chan time.Time
		if cfg.Enabled {
			d := cfg.IntervalDuration()
			next := r.clock.Now().Add(d)
			r.setNext(&next)
			timer = r.clock.NewTimer(d)
			fire = timer.Chan()
			logging.Debug().Time("next_run", next).Str("interval", cfg.Interval).Msg("Scheduled backup armed")
		} else {
			r.setNext(nil)
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logging.Info().Msg("Backup scheduler stopped")
			return ctx.Err()

		case <-r.store.Changed():
			if timer != nil {
				timer.Stop()
			}

		case <-fire:
			r.RunOnce(ctx)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (r *Runner) String() string {
	return "backup-scheduler"
}

// Status returns the runner status.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) setNext(t *time.Time) {
	r.mu.Lock()
	r.status.NextRun = t
	r.mu.Unlock()

	if t == nil {
		metrics.SetNextScheduledRun(time.Time{})
		return
	}
	metrics.SetNextScheduledRun(*t)
}

// RunOnce performs one scheduled run with the current schedule.
func (r *Runner) RunOnce(ctx context.Context) RunResult {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	cfg := r.store.Get()
	started := r.clock.Now().UTC()

	var res RunResult
	rec, err := r.engine.CreateBackup(ctx, backup.CreateRequest{
		Type:        backup.TypeScheduled,
		Description: "Scheduled backup",
	})
	if err != nil {
		res.Err = err
		metrics.ScheduledRuns.WithLabelValues("failure").Inc()
		logging.Ctx(ctx).Error().Err(err).Msg("Scheduled backup failed")
		r.record(started, "", err)

		if cfg.Notification.OnFailure {
			r.notify(ctx, cfg, notify.Event{
				Kind:  notify.EventBackupFailed,
				Time:  started,
				Type:  string(backup.TypeScheduled),
				Error: backup.PublicMessage(err),
			})
		}
		return res
	}
	res.Backup = rec
	res.Pruned = r.prune(ctx, cfg)

	metrics.ScheduledRuns.WithLabelValues("success").Inc()
	logging.Ctx(ctx).Info().Str("backup_id", rec.ID).Int("pruned", res.Pruned).Msg("Scheduled backup completed")
	r.record(started, rec.ID, nil)

	if cfg.Notification.OnSuccess {
		r.notify(ctx, cfg, notify.Event{
			Kind:           notify.EventBackupSucceeded,
			Time:           started,
			BackupID:       rec.ID,
			Type:           string(rec.Type),
			DocumentsCount: rec.DocumentCount,
			Size:           rec.SizeBytes,
			Pruned:         res.Pruned,
		})
	}
	return res
}

// prune applies the retention bounds to scheduled backups and returns how
// many were deleted.
func (r *Runner) prune(ctx context.Context, cfg Config) int {
	keep := cfg.Retention.Count
	policies := []backup.CleanPolicy{
		{Keep: &keep, Type: backup.TypeScheduled},
		{OlderThan: cfg.MaxAge(), Type: backup.TypeScheduled},
	}

	pruned := 0
	for _, p := range policies {
		res, err := r.engine.Clean(ctx, p, backup.SystemActor)
		if res != nil {
			pruned += res.DeletedCount
		}
		switch {
		case err == nil:
		case errors.Is(err, backup.ErrRetentionGuard):
			logging.Ctx(ctx).Info().Err(err).Msg("Scheduled retention skipped recent backups")
		default:
			logging.Ctx(ctx).Error().Err(err).Msg("Scheduled retention failed")
		}
	}
	return pruned
}

func (r *Runner) notify(ctx context.Context, cfg Config, ev notify.Event) {
	if cfg.Notification.Target == "" {
		return
	}
	if err := r.notifier.Notify(ctx, cfg.Notification.Target, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event", string(ev.Kind)).Msg("Backup notification failed")
	}
}

func (r *Runner) record(at time.Time, backupID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.LastRun = &at
	r.status.LastBackupID = backupID
	r.status.LastError = ""
	if err != nil {
		r.status.LastError = backup.PublicMessage(err)
	}
}
