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
	"reflect"
	"testing"

	"github.com/MreRes/blackboxai-1745461143148/internal/store"
)

func TestValidateDetectsByteFlip(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seed(financeData())
	rec := env.create(TypeManual)
	ctx := context.Background()

	res, err := env.engine.Validate(ctx, rec.ID)
	if err != nil || !res.Valid {
		t.Fatalf("fresh backup should be valid: %+v, %v", res, err)
	}

	flipByte(t, env.engine.catalog.payloadPath(rec.ID))

	res, err = env.engine.Validate(ctx, rec.ID)
	assertKind(t, err, KindIntegrity)
	if !errors.Is(err, ErrIntegrity) {
		t.Error("errors.Is(err, ErrIntegrity) = false")
	}
	if res.Valid {
		t.Error("flipped payload reported valid")
	}
	if res.ExpectedChecksum != rec.Checksum || res.ActualChecksum == rec.Checksum {
		t.Errorf("unexpected checksums: expected=%s actual=%s", res.ExpectedChecksum, res.ActualChecksum)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seed(financeData())
	good := env.create(TypeManual)
	bad := env.create(TypeManual)
	flipByte(t, env.engine.catalog.payloadPath(bad.ID))

	for _, id := range []string{good.ID, bad.ID} {
		r1, err1 := env.engine.Validate(context.Background(), id)
		r2, err2 := env.engine.Validate(context.Background(), id)
		if !reflect.DeepEqual(r1, r2) {
			t.Errorf("%s: results differ: %+v vs %+v", id, r1, r2)
		}
		if (err1 == nil) != (err2 == nil) || KindOf(err1) != KindOf(err2) {
			t.Errorf("%s: errors differ: %v vs %v", id, err1, err2)
		}
	}
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		prepare    func(env *testEnv) string
		wantKind   Kind
		wantReason string
	}{
		{
			name:       "malformed id",
			prepare:    func(*testEnv) string { return "../etc/passwd" },
			wantKind:   KindValidation,
			wantReason: "invalid backup id",
		},
		{
			name:       "unknown id",
			prepare:    func(*testEnv) string { return "backup-2020-01-01T00-00-00-000Z-deadbeef" },
			wantKind:   KindNotFound,
			wantReason: "metadata missing",
		},
		{
			name: "payload removed",
			prepare: func(env *testEnv) string {
				rec := env.create(TypeManual)
				if err := os.Remove(env.engine.catalog.payloadPath(rec.ID)); err != nil {
					env.t.Fatal(err)
				}
				return rec.ID
			},
			wantKind:   KindNotFound,
			wantReason: "payload missing",
		},
		{
			name: "corrupt metadata",
			prepare: func(env *testEnv) string {
				rec := env.create(TypeManual)
				if err := os.WriteFile(env.engine.catalog.metaPath(rec.ID), []byte("{not json"), 0o600); err != nil {
					env.t.Fatal(err)
				}
				return rec.ID
			},
			wantKind:   KindIntegrity,
			wantReason: "metadata corrupt",
		},
		{
			name: "payload not a snapshot",
			prepare: func(env *testEnv) string {
				rec := env.create(TypeManual)
				data := []byte(`["not","a","snapshot"]`)
				writeTampered(env, rec, data)
				return rec.ID
			},
			wantKind:   KindIntegrity,
			wantReason: "payload is not a valid snapshot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.seed(financeData())
			id := tt.prepare(env)

			res, err := env.engine.Validate(context.Background(), id)
			assertKind(t, err, tt.wantKind)
			if res == nil {
				t.Fatal("expected a result alongside the error")
			}
			if res.Valid || res.Reason != tt.wantReason {
				t.Errorf("result = %+v, want reason %q", res, tt.wantReason)
			}
		})
	}
}

func TestValidateMissingRequiredCollection(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	data := financeData()
	delete(data, "budgets")
	env.seed(data)
	rec := env.create(TypeManual)

	res, err := env.engine.Validate(context.Background(), rec.ID)
	assertKind(t, err, KindIntegrity)

	var e *Error
	if errors.As(err, &e) && e.Collection != "budgets" {
		t.Errorf("Collection = %q, want budgets", e.Collection)
	}
	if !reflect.DeepEqual(res.MissingCollections, []string{"budgets"}) {
		t.Errorf("MissingCollections = %v", res.MissingCollections)
	}
	if msg := PublicMessage(err); msg != "required collection missing (collection budgets)" {
		t.Errorf("PublicMessage = %q", msg)
	}
}

func TestValidateDoesNotModifyFiles(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seed(map[string][]store.Document{"users": nil})
	rec := env.create(TypeManual)

	dir := env.engine.Config().Dir
	before := snapshotDir(t, dir)
	_, _ = env.engine.Validate(context.Background(), rec.ID)
	if after := snapshotDir(t, dir); !reflect.DeepEqual(before, after) {
		t.Errorf("Validate changed the catalog: %v -> %v", before, after)
	}
}

// writeTampered replaces the payload of rec and fixes the checksum so only
// the structural checks can catch it.
func writeTampered(env *testEnv, rec *Record, data []byte) {
	env.t.Helper()
	if err := os.WriteFile(env.engine.catalog.payloadPath(rec.ID), data, 0o600); err != nil {
		env.t.Fatal(err)
	}
	rec.Checksum = Checksum(data)
	rec.SizeBytes = int64(len(data))
	if err := env.engine.catalog.writeMeta(rec); err != nil {
		env.t.Fatal(err)
	}
}

func snapshotDir(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		out[e.Name()] = Checksum(data)
	}
	return out
}
