// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package activity

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MreRes/blackboxai-1745461143148/internal/metrics"
)

func TestPartitionName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ts   time.Time
		want string
	}{
		{time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), "backup-activity-2026-01.log"},
		{time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC), "backup-activity-2026-12.log"},
		// 00:30 on Feb 1 in UTC+2 is still January in UTC.
		{time.Date(2026, 2, 1, 0, 30, 0, 0, time.FixedZone("EET", 2*3600)), "backup-activity-2026-01.log"},
	}
	for _, tt := range tests {
		if got := PartitionName(tt.ts); got != tt.want {
			t.Errorf("PartitionName(%v) = %s, want %s", tt.ts, got, tt.want)
		}
	}
}

func TestAppendAndReadAcrossPartitions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := New(dir)
	ctx := context.Background()

	entries := []Entry{
		{Timestamp: time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC), EventType: EventRestore, Actor: "bob"},
		{Timestamp: time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC), EventType: EventCreate, Actor: "alice"},
		{Timestamp: time.Date(2026, 2, 1, 1, 0, 0, 0, time.UTC), EventType: EventClean, Actor: "alice",
			Details: map[string]interface{}{"deletedCount": 3}},
	}
	for _, e := range entries {
		if err := log.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	for _, name := range []string{"backup-activity-2026-01.log", "backup-activity-2026-02.log"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected partition %s: %v", name, err)
		}
	}

	got, err := log.Read(ctx, Query{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Read returned %d entries, want 3", len(got))
	}
	wantOrder := []EventType{EventCreate, EventClean, EventRestore}
	for i, e := range got {
		if e.EventType != wantOrder[i] {
			t.Errorf("entry %d = %s, want %s", i, e.EventType, wantOrder[i])
		}
	}
	if got[1].Details["deletedCount"] != float64(3) {
		t.Errorf("details not preserved: %v", got[1].Details)
	}
}

func TestReadFilters(t *testing.T) {
	t.Parallel()

	log := New(t.TempDir())
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		et := EventCreate
		if i%2 == 1 {
			et = EventDownload
		}
		if err := log.Append(ctx, Entry{Timestamp: base.Add(time.Duration(i) * time.Hour), EventType: et, Actor: "ops"}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		q    Query
		want int
	}{
		{"all", Query{}, 6},
		{"by type", Query{EventType: EventDownload}, 3},
		{"since", Query{Since: base.Add(2 * time.Hour)}, 4},
		{"until", Query{Until: base.Add(2 * time.Hour)}, 2},
		{"limit keeps newest", Query{Limit: 2}, 2},
		{"actor", Query{Actor: "nobody"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := log.Read(ctx, tt.q)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}

	newest, err := log.Read(ctx, Query{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !newest[0].Timestamp.Equal(base.Add(5 * time.Hour)) {
		t.Errorf("limit kept %v, want newest entry", newest[0].Timestamp)
	}
}

func TestAppendUsesClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	log := New(t.TempDir(), WithClock(testclock.NewClock(now)))

	if err := log.Append(context.Background(), Entry{EventType: EventUpload, Actor: "carol"}); err != nil {
		t.Fatal(err)
	}
	got, err := log.Read(context.Background(), Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", got, now)
	}
}

func TestReadSkipsCorruptLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := New(dir)
	ctx := context.Background()
	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	if err := log.Append(ctx, Entry{Timestamp: ts, EventType: EventCreate}); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(filepath.Join(dir, PartitionName(ts)), os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{not json\n")
	f.Close()
	if err := log.Append(ctx, Entry{Timestamp: ts.Add(time.Minute), EventType: EventRestore}); err != nil {
		t.Fatal(err)
	}

	got, err := log.Read(ctx, Query{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d entries, want 2", len(got))
	}
}

func TestAppendRejectsUnknownEvent(t *testing.T) {
	t.Parallel()

	log := New(t.TempDir())
	if err := log.Append(context.Background(), Entry{EventType: "reboot"}); err == nil {
		t.Error("expected error for unknown event type")
	}
}

func TestRecordSwallowsFailures(t *testing.T) {
	t.Parallel()

	// A regular file where the directory should be makes every append fail.
	blocker := filepath.Join(t.TempDir(), "logs")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	log := New(blocker)

	before := testutil.ToFloat64(metrics.ActivityWriteFailures.WithLabelValues(string(EventClean)))
	log.Record(context.Background(), Entry{EventType: EventClean, Actor: "ops"})
	after := testutil.ToFloat64(metrics.ActivityWriteFailures.WithLabelValues(string(EventClean)))

	if after != before+1 {
		t.Errorf("failure counter = %v, want %v", after, before+1)
	}
}
