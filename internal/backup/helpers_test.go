// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/store"
	"github.com/MreRes/blackboxai-1745461143148/internal/store/storetest"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	t        *testing.T
	dir      string
	clock    *testclock.Clock
	store    store.CollectionStore
	activity *activity.Log
	engine   *Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, store.NewMemoryStore(), nil)
}

// newTestEnvWith builds an engine over st. tweak, when non-nil, adjusts the
// config before the engine is created.
func newTestEnvWith(t *testing.T, st store.CollectionStore, tweak func(*Config)) *testEnv {
	t.Helper()

	dir := t.TempDir()
	clk := testclock.NewClock(baseTime)
	log := activity.New(filepath.Join(dir, "logs"), activity.WithClock(clk))

	cfg := DefaultConfig()
	cfg.Dir = filepath.Join(dir, "backups")
	if tweak != nil {
		tweak(&cfg)
	}

	e, err := New(st, cfg, WithClock(clk), WithActivity(log))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return &testEnv{t: t, dir: dir, clock: clk, store: st, activity: log, engine: e}
}

// financeData is a small users/transactions/budgets data set with nested
// values, high-precision numbers and non-ASCII text.
func financeData() map[string][]store.Document {
	return map[string][]store.Document{
		"users": {
			storetest.Doc("_id", `{"$oid":"65f0c0ffee00000000000001"}`, "name", `"Ana Müller"`, "email", `"ana@example.com"`),
			storetest.Doc("_id", `{"$oid":"65f0c0ffee00000000000002"}`, "name", `"Budi"`, "settings", `{"currency":"IDR","locale":"id-ID"}`),
		},
		"transactions": {
			storetest.Doc("_id", `"t1"`, "amount", `1234567.891011`, "note", `"<coffee> & cake"`),
			storetest.Doc("_id", `"t2"`, "amount", `-42`, "tags", `["food","daily"]`),
			storetest.Doc("_id", `"t3"`, "amount", `0.1`, "date", `{"$date":"2026-02-28T08:00:00Z"}`),
		},
		"budgets": {
			storetest.Doc("_id", `"b1"`, "limit", `5000000`, "period", `"monthly"`),
		},
	}
}

func (env *testEnv) seed(data map[string][]store.Document) {
	env.t.Helper()
	storetest.Seed(env.t, env.store, data)
}

func (env *testEnv) dump() map[string][]store.Document {
	env.t.Helper()
	return storetest.Dump(env.t, env.store)
}

func (env *testEnv) create(typ Type) *Record {
	env.t.Helper()
	rec, err := env.engine.CreateBackup(context.Background(), CreateRequest{Type: typ, CreatedBy: "tester"})
	if err != nil {
		env.t.Fatalf("CreateBackup failed: %v", err)
	}
	return rec
}

// createSeries creates n backups of typ one minute apart and returns them
// oldest first.
func (env *testEnv) createSeries(n int, typ Type) []*Record {
	env.t.Helper()
	out := make([]*Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, env.create(typ))
		env.clock.Advance(time.Minute)
	}
	return out
}

func (env *testEnv) catalogIDs() []string {
	env.t.Helper()
	recs, err := env.engine.catalog.records()
	if err != nil {
		env.t.Fatalf("records failed: %v", err)
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

func (env *testEnv) activityOf(typ activity.EventType) []activity.Entry {
	env.t.Helper()
	got, err := env.activity.Read(context.Background(), activity.Query{EventType: typ})
	if err != nil {
		env.t.Fatalf("activity Read failed: %v", err)
	}
	return got
}

// flipByte inverts one byte in the middle of path.
func flipByte(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	data[len(data)/2] ^= 0x01
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if e.Kind != want {
		t.Fatalf("expected kind %s, got %s: %v", want, e.Kind, err)
	}
}
