// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/juju/clock"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/store"
)

// ActivityRecorder receives the audit entry of every engine operation. It
// must not fail the operation; *activity.Log satisfies it.
type ActivityRecorder interface {
	Record(ctx context.Context, e activity.Entry)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, activity.Entry) {}

// Engine is the backup and restore engine for one store and one catalog
// directory. It is safe for concurrent use.
type Engine struct {
	store    store.CollectionStore
	cfg      Config
	catalog  *catalog
	clock    clock.Clock
	activity ActivityRecorder

	// restoreMu is held for the whole restore; restoring mirrors it so
	// CreateBackup can fail fast without touching the mutex.
	restoreMu sync.Mutex
	restoring atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the engine clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithActivity sets the activity recorder.
func WithActivity(r ActivityRecorder) Option {
	return func(e *Engine) { e.activity = r }
}

// New creates an Engine. The catalog directory is created if needed.
func New(st store.CollectionStore, cfg Config, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("collection store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backup config: %w", err)
	}

	e := &Engine{
		store:    st,
		cfg:      cfg,
		catalog:  &catalog{dir: cfg.Dir},
		clock:    clock.WallClock,
		activity: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.catalog.ensureDir(); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	logging.Info().
		Str("dir", cfg.Dir).
		Strs("required_collections", cfg.RequiredCollections).
		Dur("recent_guard", cfg.RecentGuard).
		Msg("Backup engine initialized")
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Restoring reports whether a restore currently holds the store lock.
func (e *Engine) Restoring() bool {
	return e.restoring.Load()
}

// Recover removes leftovers of interrupted writes and deletes from the
// catalog. Run it once at start-up.
func (e *Engine) Recover(ctx context.Context) (SweepResult, error) {
	if err := ctx.Err(); err != nil {
		return SweepResult{}, err
	}
	res, err := e.catalog.sweep(e.clock.Now(), e.cfg.OrphanGrace)
	if err != nil {
		return res, infraErr("recover", "", "catalog sweep failed", err)
	}
	if res.TempFiles+res.Tombstones+res.OrphanPayloads > 0 {
		logging.Ctx(ctx).Info().
			Int("temp_files", res.TempFiles).
			Int("tombstones", res.Tombstones).
			Int("orphan_payloads", res.OrphanPayloads).
			Int64("freed_bytes", res.FreedBytes).
			Msg("Backup catalog recovered")
	}
	return res, nil
}
