// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

/*
activity.go - Backup Activity Log

An append-only audit trail of backup engine events, stored as newline
delimited JSON in monthly partitions:

	<dir>/backup-activity-2026-03.log

Append is synchronous and serialized by a mutex so lines are never
interleaved. Record wraps Append for callers that must not fail because of
the audit trail: errors are logged and counted, never returned.

Read merges every partition into a single timestamp order. Partitions exist
only to keep files small; nothing relies on an entry being in a particular
file.
*/

//nolint:staticcheck // File documentation, not package doc
package activity

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/juju/clock"

	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/metrics"
)

// EventType identifies what an entry describes.
type EventType string

const (
	EventCreate         EventType = "create"
	EventRestore        EventType = "restore"
	EventClean          EventType = "clean"
	EventDownload       EventType = "download"
	EventUpload         EventType = "upload"
	EventScheduleUpdate EventType = "scheduleUpdate"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventCreate, EventRestore, EventClean, EventDownload, EventUpload, EventScheduleUpdate:
		return true
	}
	return false
}

// Entry is one activity log line.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"eventType"`
	Actor     string                 `json:"actor"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Query filters Read. Zero values mean no filter.
type Query struct {
	Since     time.Time
	Until     time.Time
	EventType EventType
	Actor     string
	// Limit keeps the most recent Limit entries.
	Limit int
}

const (
	filePrefix = "backup-activity-"
	fileSuffix = ".log"
	maxLine    = 1 << 20
)

// Log is a partitioned NDJSON activity log rooted at a directory.
type Log struct {
	dir   string
	clock clock.Clock
	mu    sync.Mutex
}

// Option configures a Log.
type Option func(*Log)

// WithClock sets the clock used to stamp entries without a timestamp.
func WithClock(c clock.Clock) Option {
	return func(l *Log) { l.clock = c }
}

// New returns a Log writing under dir. The directory is created on first
// append.
func New(dir string, opts ...Option) *Log {
	l := &Log{dir: dir, clock: clock.WallClock}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the log directory.
func (l *Log) Dir() string {
	return l.dir
}

// PartitionName returns the file name holding entries stamped t.
func PartitionName(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%04d-%02d%s", filePrefix, t.Year(), int(t.Month()), fileSuffix)
}

// Append writes e as one line. A zero timestamp is filled from the clock.
//
//nolint:gosec // G304: path is built from the configured log directory
func (l *Log) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.EventType.Valid() {
		return fmt.Errorf("unknown activity event type %q", e.EventType)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.clock.Now()
	}
	e.Timestamp = e.Timestamp.UTC()

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode activity entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("create activity log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(l.dir, PartitionName(e.Timestamp)), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("append activity entry: %w", err)
	}
	return f.Close()
}

// Record appends e and swallows any failure after reporting it to the
// operator log and the failure counter.
func (l *Log) Record(ctx context.Context, e Entry) {
	// The primary operation has already finished; its cancellation must not
	// drop the audit line.
	if err := l.Append(context.WithoutCancel(ctx), e); err != nil {
		metrics.ActivityWriteFailures.WithLabelValues(string(e.EventType)).Inc()
		logging.Ctx(ctx).Error().Err(err).
			Str("event_type", string(e.EventType)).
			Str("actor", e.Actor).
			Msg("Failed to write backup activity log")
	}
}

// Read returns entries matching q in ascending timestamp order.
func (l *Log) Read(ctx context.Context, q Query) ([]Entry, error) {
	files, err := l.partitions()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := readPartition(filepath.Join(l.dir, name), q)
		if err != nil {
			return nil, err
		}
		entries = append(entries, got...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[len(entries)-q.Limit:]
	}
	return entries, nil
}

func (l *Log) partitions() ([]string, error) {
	dirEntries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list activity log: %w", err)
	}

	var names []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

//nolint:gosec // G304: path comes from partitions()
func readPartition(path string, q Query) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open activity partition: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	var out []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			logging.Warn().Err(err).Str("file", filepath.Base(path)).Int("line", lineNo).
				Msg("Skipping corrupt activity log line")
			continue
		}
		if matches(&e, &q) {
			out = append(out, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read activity partition %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

func matches(e *Entry, q *Query) bool {
	if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !e.Timestamp.Before(q.Until) {
		return false
	}
	if q.EventType != "" && e.EventType != q.EventType {
		return false
	}
	if q.Actor != "" && e.Actor != q.Actor {
		return false
	}
	return true
}
