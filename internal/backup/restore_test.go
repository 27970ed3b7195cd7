// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/store"
	"github.com/MreRes/blackboxai-1745461143148/internal/store/badgerstore"
	"github.com/MreRes/blackboxai-1745461143148/internal/store/storetest"
)

// TestRestoreFinanceScenario follows a restore of users, transactions and
// budgets after the live data drifted, with an unrelated collection that the
// backup does not carry.
func TestRestoreFinanceScenario(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seed(financeData())
	want := env.dump()
	rec := env.create(TypeManual)

	env.clock.Advance(2 * time.Hour)
	env.seed(map[string][]store.Document{
		"users": {
			storetest.Doc("_id", `{"$oid":"65f0c0ffee00000000000001"}`, "name", `"Ana M."`),
		},
		"transactions": append(financeData()["transactions"], storetest.Doc("_id", `"t4"`, "amount", `99`)),
		"budgets":      nil,
		"reports":      {storetest.Doc("_id", `"r1"`, "month", `"2026-02"`)},
	})

	out, err := env.engine.Restore(context.Background(), rec.ID, "alice")
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if out.SafetyBackupID == "" {
		t.Fatal("no safety backup recorded")
	}
	if out.Actor != "alice" || out.BackupID != rec.ID {
		t.Errorf("unexpected outcome identity: %+v", out)
	}

	got := env.dump()
	reports := got["reports"]
	delete(got, "reports")
	if diff := storetest.Diff(want, got); diff != "" {
		t.Errorf("restored collections differ: %s", diff)
	}
	if len(reports) != 1 {
		t.Errorf("collection outside the payload was touched: %d docs", len(reports))
	}

	safety, err := env.engine.Get(context.Background(), out.SafetyBackupID)
	if err != nil {
		t.Fatalf("safety backup missing: %v", err)
	}
	if safety.Type != TypeSafety || safety.CreatedBy != "alice" {
		t.Errorf("unexpected safety record: %+v", safety)
	}
	// The safety backup holds the drifted state, reports included.
	if safety.DocumentCount != 1+4+0+1 {
		t.Errorf("safety DocumentCount = %d, want 6", safety.DocumentCount)
	}

	entries := env.activityOf(activity.EventRestore)
	if len(entries) != 1 {
		t.Fatalf("expected 1 restore entry, got %d", len(entries))
	}
	if entries[0].Actor != "alice" || entries[0].Details["state"] != string(StateCommitted) {
		t.Errorf("unexpected restore entry: %+v", entries[0])
	}
}

// failOnce makes the first insert into collection fail, after the restore
// already rewrote the collections sorted before it.
func failOnce(collection string) (store.InsertHook, *atomic.Bool) {
	var fired atomic.Bool
	return func(c string, _ []store.Document) error {
		if c == collection && fired.CompareAndSwap(false, true) {
			return errors.New("injected insert failure")
		}
		return nil
	}, &fired
}

func TestRestoreRollsBackOnApplyFailure(t *testing.T) {
	t.Parallel()

	mem := store.NewMemoryStore()
	env := newTestEnvWith(t, mem, nil)
	env.seed(financeData())
	rec := env.create(TypeManual)

	env.clock.Advance(time.Hour)
	env.seed(map[string][]store.Document{
		"budgets": {storetest.Doc("_id", `"b9"`, "limit", `1`)},
		"users":   {storetest.Doc("_id", `"u9"`)},
	})
	before := env.dump()

	hook, fired := failOnce("transactions")
	mem.SetInsertHook(hook)

	out, err := env.engine.Restore(context.Background(), rec.ID, "bob")
	assertKind(t, err, KindInfrastructure)
	if !fired.Load() {
		t.Fatal("insert hook never fired")
	}

	if diff := storetest.Diff(before, env.dump()); diff != "" {
		t.Errorf("store changed by failed restore: %s", diff)
	}

	if out == nil || out.State != StateRolledBack {
		t.Fatalf("outcome = %+v, want rolled_back", out)
	}
	var e *Error
	if !errors.As(err, &e) || e.Reference == "" || e.Reference != out.SafetyBackupID {
		t.Errorf("error does not reference the safety backup: %v", err)
	}
	if msg := PublicMessage(err); msg != "internal backup failure; reference "+out.SafetyBackupID {
		t.Errorf("PublicMessage = %q", msg)
	}

	if _, err := env.engine.Validate(context.Background(), out.SafetyBackupID); err != nil {
		t.Errorf("safety backup is not valid: %v", err)
	}

	entries := env.activityOf(activity.EventRestore)
	if len(entries) != 1 || entries[0].Details["state"] != string(StateRolledBack) ||
		entries[0].Details["failedIn"] != string(StateApplying) {
		t.Errorf("unexpected restore activity: %+v", entries)
	}
	if env.engine.Restoring() {
		t.Error("restore lock still held")
	}
}

func TestRestoreInvalidBackupTouchesNothing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seed(financeData())
	rec := env.create(TypeManual)
	flipByte(t, env.engine.catalog.payloadPath(rec.ID))
	before := env.dump()

	out, err := env.engine.Restore(context.Background(), rec.ID, "bob")
	assertKind(t, err, KindIntegrity)
	if out.SafetyBackupID != "" {
		t.Errorf("safety backup taken for an invalid target: %s", out.SafetyBackupID)
	}
	if ids := env.catalogIDs(); len(ids) != 1 {
		t.Errorf("catalog = %v, want only the original", ids)
	}
	if diff := storetest.Diff(before, env.dump()); diff != "" {
		t.Errorf("store changed: %s", diff)
	}
	entries := env.activityOf(activity.EventRestore)
	if len(entries) != 1 || entries[0].Details["failedIn"] != string(StateValidating) {
		t.Errorf("unexpected restore activity: %+v", entries)
	}
}

func TestRestoreNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.engine.Restore(context.Background(), "backup-2026-01-01T00-00-00-000Z-00000000", "bob")
	assertKind(t, err, KindNotFound)
}

func TestRestoreCanceledBeforeStart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seed(financeData())
	rec := env.create(TypeManual)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := env.engine.Restore(ctx, rec.ID, "bob")
	assertKind(t, err, KindInfrastructure)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain: %v", err)
	}
	if out.SafetyBackupID != "" {
		t.Error("canceled restore took a safety backup")
	}
}

// TestRestoreIsExclusive blocks a restore inside its apply phase and checks
// that a second restore and a backup creation fail fast meanwhile.
func TestRestoreIsExclusive(t *testing.T) {
	t.Parallel()

	mem := store.NewMemoryStore()
	env := newTestEnvWith(t, mem, nil)
	env.seed(financeData())
	rec := env.create(TypeManual)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	mem.SetInsertHook(func(string, []store.Document) error {
		once.Do(func() {
			close(entered)
			<-release
		})
		return nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := env.engine.Restore(context.Background(), rec.ID, "first")
		done <- err
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first restore never reached apply")
	}

	if !env.engine.Restoring() {
		t.Error("Restoring() = false during apply")
	}
	_, err := env.engine.Restore(context.Background(), rec.ID, "second")
	assertKind(t, err, KindConcurrency)
	if !errors.Is(err, ErrConcurrency) {
		t.Error("errors.Is(err, ErrConcurrency) = false")
	}
	_, err = env.engine.CreateBackup(context.Background(), CreateRequest{Type: TypeManual})
	assertKind(t, err, KindConcurrency)

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first restore failed: %v", err)
	}
	if env.engine.Restoring() {
		t.Error("Restoring() = true after restore finished")
	}

	// Nothing is queued: the engine accepts work again right away.
	if _, err := env.engine.CreateBackup(context.Background(), CreateRequest{Type: TypeManual}); err != nil {
		t.Errorf("CreateBackup after restore failed: %v", err)
	}
}

func TestApplyContextKeepsDeadlineDropsCancel(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	ctx, release := applyContext(parent, 0)
	defer release()

	cancel()
	if ctx.Err() != nil {
		t.Error("apply context canceled with its parent")
	}
	pd, _ := parent.Deadline()
	if d, ok := ctx.Deadline(); !ok || !d.Equal(pd) {
		t.Errorf("deadline = %v/%v, want %v", d, ok, pd)
	}

	short, release2 := applyContext(context.Background(), time.Minute)
	defer release2()
	if d, ok := short.Deadline(); !ok || time.Until(d) > time.Minute {
		t.Errorf("timeout not applied: %v/%v", d, ok)
	}
}

func TestRestoreApplyTimeoutRollsBack(t *testing.T) {
	t.Parallel()

	mem := store.NewMemoryStore()
	env := newTestEnvWith(t, mem, func(c *Config) { c.ApplyTimeout = 50 * time.Millisecond })
	env.seed(financeData())
	rec := env.create(TypeManual)
	env.seed(map[string][]store.Document{"users": {storetest.Doc("_id", `"late"`)}})
	before := env.dump()

	var once sync.Once
	mem.SetInsertHook(func(string, []store.Document) error {
		once.Do(func() { time.Sleep(200 * time.Millisecond) })
		return nil
	})

	out, err := env.engine.Restore(context.Background(), rec.ID, "bob")
	assertKind(t, err, KindInfrastructure)
	if out.State != StateRolledBack {
		t.Errorf("State = %s, want rolled_back", out.State)
	}
	if diff := storetest.Diff(before, env.dump()); diff != "" {
		t.Errorf("store changed after timeout: %s", diff)
	}
}

// TestRestoreOversizedBadgerPayload restores a payload that does not fit
// into a single Badger transaction.
func TestRestoreOversizedBadgerPayload(t *testing.T) {
	t.Parallel()

	opts := badger.DefaultOptions(t.TempDir()).
		WithLogger(nil).
		WithMemTableSize(1 << 20).
		WithValueThreshold(1 << 10)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("badger open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := newTestEnvWith(t, badgerstore.New(db), nil)
	data := financeData()
	for i := 0; i < 3000; i++ {
		data["transactions"] = append(data["transactions"], storetest.Doc(
			"_id", fmt.Sprintf(`"bulk-%05d"`, i),
			"amount", fmt.Sprintf("%d.25", i),
			"note", `"`+strings.Repeat("monthly grocery run ", 6)+`"`,
		))
	}
	env.seed(data)
	want := env.dump()
	rec := env.create(TypeManual)

	env.clock.Advance(time.Hour)
	env.seed(map[string][]store.Document{
		"transactions": {storetest.Doc("_id", `"t9"`)},
		"users":        nil,
	})

	out, err := env.engine.Restore(context.Background(), rec.ID, "alice")
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if out.State != StateCommitted {
		t.Errorf("State = %s, want %s", out.State, StateCommitted)
	}
	if diff := storetest.Diff(want, env.dump()); diff != "" {
		t.Errorf("restored store differs: %s", diff)
	}
}

// flakyReadStore fails every read once failReads is set.
type flakyReadStore struct {
	store.CollectionStore
	failReads atomic.Bool
}

func (s *flakyReadStore) ReadAll(ctx context.Context, collection string) ([]store.Document, error) {
	if s.failReads.Load() {
		return nil, errors.New("injected read failure")
	}
	return s.CollectionStore.ReadAll(ctx, collection)
}

func TestRestoreSafetyBackupFailure(t *testing.T) {
	t.Parallel()

	st := &flakyReadStore{CollectionStore: store.NewMemoryStore()}
	env := newTestEnvWith(t, st, nil)
	env.seed(financeData())
	rec := env.create(TypeManual)

	env.clock.Advance(time.Hour)
	env.seed(map[string][]store.Document{"users": {storetest.Doc("_id", `"u9"`)}})
	before := env.dump()
	ids := env.catalogIDs()

	st.failReads.Store(true)
	out, err := env.engine.Restore(context.Background(), rec.ID, "bob")
	st.failReads.Store(false)

	assertKind(t, err, KindInfrastructure)
	if out == nil || out.State != StateRolledBack {
		t.Fatalf("outcome = %+v, want rolled_back", out)
	}
	if out.SafetyBackupID != "" {
		t.Errorf("SafetyBackupID = %q, want empty", out.SafetyBackupID)
	}
	if diff := storetest.Diff(before, env.dump()); diff != "" {
		t.Errorf("store changed by aborted restore: %s", diff)
	}
	if got := env.catalogIDs(); len(got) != len(ids) {
		t.Errorf("catalog has %d backups, want %d", len(got), len(ids))
	}
}

func TestRestoreRoundTripWhitespaceValues(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	data := financeData()
	data["users"] = append(data["users"], storetest.Doc("_id", `"u3"`, "prefs", `{ "b": 2, "a": [1, 2] }`))
	env.seed(data)
	want := env.dump()
	rec := env.create(TypeManual)

	env.clock.Advance(time.Hour)
	env.seed(map[string][]store.Document{"users": nil})

	if _, err := env.engine.Restore(context.Background(), rec.ID, "alice"); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if diff := storetest.Diff(want, env.dump()); diff != "" {
		t.Errorf("round trip differs: %s", diff)
	}
}
