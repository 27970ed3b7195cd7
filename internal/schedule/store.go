// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

/*
store.go - Schedule Store

Store holds the process-wide schedule. It starts from the configured
defaults, or from the persisted file when one exists, and changes only
through Update. Readers get copies.

When a path is set, every accepted update is written with an atomic rename
before it becomes visible, so a failed write leaves the previous schedule in
force both in memory and on disk.
*/

//nolint:staticcheck // File documentation, not package doc
package schedule

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/juju/clock"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/fsutil"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
)

// ActivityRecorder receives schedule update entries.
type ActivityRecorder interface {
	Record(ctx context.Context, e activity.Entry)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, activity.Entry) {}

// Store is the schedule singleton.
type Store struct {
	mu       sync.RWMutex
	cfg      Config
	path     string
	clock    clock.Clock
	activity ActivityRecorder
	changed  chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithPath persists the schedule to path.
func WithPath(path string) Option {
	return func(s *Store) { s.path = path }
}

// WithClock sets the clock stamping updates.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithActivity sets the activity recorder.
func WithActivity(r ActivityRecorder) Option {
	return func(s *Store) { s.activity = r }
}

// NewStore returns a Store holding initial, or the persisted schedule if the
// configured path holds one.
func NewStore(initial Config, opts ...Option) (*Store, error) {
	s := &Store{
		cfg:      initial,
		clock:    clock.WallClock,
		activity: nopRecorder{},
		changed:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.path != "" {
		loaded, err := load(s.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			s.cfg = loaded
			logging.Info().Str("path", s.path).Str("interval", loaded.Interval).Bool("enabled", loaded.Enabled).
				Msg("Loaded persisted backup schedule")
		}
	}

	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

//nolint:gosec // G304: path comes from configuration
func load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode schedule %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("persisted schedule %s: %w", path, err)
	}
	return cfg, nil
}

// Get returns the current schedule.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Changed is signaled after every accepted update. Signals coalesce.
func (s *Store) Changed() <-chan struct{} {
	return s.changed
}

// Update validates cfg, stamps it with actor and the current time, and makes
// it the schedule. The returned value is the stored schedule.
func (s *Store) Update(ctx context.Context, cfg Config, actor string) (Config, error) {
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	now := s.clock.Now().UTC()
	cfg.UpdatedBy = actor
	cfg.UpdatedAt = &now

	s.mu.Lock()
	if s.path != "" {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			s.mu.Unlock()
			return Config{}, fmt.Errorf("encode schedule: %w", err)
		}
		if err := fsutil.WriteFileAtomic(s.path, data, 0o640); err != nil {
			s.mu.Unlock()
			return Config{}, fmt.Errorf("persist schedule: %w", err)
		}
	}
	s.cfg = cfg
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}

	if actor == "" {
		actor = "system"
	}
	s.activity.Record(ctx, activity.Entry{
		EventType: activity.EventScheduleUpdate,
		Actor:     actor,
		Details: map[string]interface{}{
			"enabled":  cfg.Enabled,
			"interval": cfg.Interval,
			"retention": map[string]interface{}{
				"count": cfg.Retention.Count,
				"days":  cfg.Retention.Days,
			},
			"notification": map[string]interface{}{
				"success": cfg.Notification.OnSuccess,
				"failure": cfg.Notification.OnFailure,
				"target":  cfg.Notification.Target,
			},
		},
	})

	logging.Ctx(ctx).Info().
		Bool("enabled", cfg.Enabled).
		Str("interval", cfg.Interval).
		Int("retention_count", cfg.Retention.Count).
		Int("retention_days", cfg.Retention.Days).
		Msg("Backup schedule updated")

	return cfg, nil
}
