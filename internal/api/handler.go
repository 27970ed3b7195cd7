// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package api

import (
	"context"
	"io"
	"time"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/backup"
	"github.com/MreRes/blackboxai-1745461143148/internal/schedule"
)

// BackupEngine is the part of *backup.Engine served over HTTP.
type BackupEngine interface {
	CreateBackup(ctx context.Context, req backup.CreateRequest) (*backup.Record, error)
	List(ctx context.Context, opts backup.ListOptions) (*backup.ListResult, error)
	Get(ctx context.Context, id string) (*backup.Record, error)
	Validate(ctx context.Context, id string) (*backup.ValidationResult, error)
	Restore(ctx context.Context, id, actor string) (*backup.RestoreOutcome, error)
	Clean(ctx context.Context, policy backup.CleanPolicy, actor string) (*backup.CleanResult, error)
	Delete(ctx context.Context, id string, force bool, actor string) error
	Stats(ctx context.Context) (*backup.Stats, error)
	Upload(ctx context.Context, r io.Reader, req backup.UploadRequest) (*backup.Record, error)
	Open(ctx context.Context, id, actor string) (io.ReadCloser, *backup.Record, error)
	Restoring() bool
}

// ScheduleStore holds the backup schedule.
type ScheduleStore interface {
	Get() schedule.Config
	Update(ctx context.Context, cfg schedule.Config, actor string) (schedule.Config, error)
}

// SchedulerStatus reports the periodic trigger's state.
type SchedulerStatus interface {
	Status() schedule.Status
}

// ActivityReader reads the activity log.
type ActivityReader interface {
	Read(ctx context.Context, q activity.Query) ([]activity.Entry, error)
}

// Config holds HTTP-layer settings.
type Config struct {
	// RestoreConfirmationCode, when set, must accompany every restore.
	RestoreConfirmationCode string
	// MaxUploadBytes caps the multipart request; the engine enforces the
	// payload limit itself.
	MaxUploadBytes int64
	// RateLimit is requests per RateLimitWindow per client IP. Zero disables it.
	RateLimit       int
	RateLimitWindow time.Duration
	// CORSOrigins enables CORS for the listed origins.
	CORSOrigins []string
}

// Handler serves the backup API.
type Handler struct {
	engine    BackupEngine
	schedule  ScheduleStore
	scheduler SchedulerStatus
	activity  ActivityReader
	cfg       Config
}

// NewHandler creates a Handler. scheduler may be nil when no periodic
// trigger runs.
func NewHandler(engine BackupEngine, sched ScheduleStore, scheduler SchedulerStatus, act ActivityReader, cfg Config) *Handler {
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	return &Handler{
		engine:    engine,
		schedule:  sched,
		scheduler: scheduler,
		activity:  act,
		cfg:       cfg,
	}
}
