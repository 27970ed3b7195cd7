// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

// Package storetest is a conformance suite shared by every CollectionStore
// driver, plus document helpers for tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/goccy/go-json"

	"github.com/MreRes/blackboxai-1745461143148/internal/store"
)

// Doc builds a document from field/raw-JSON pairs:
//
//	storetest.Doc("_id", `"u1"`, "name", `"Ana"`)
func Doc(kv ...string) store.Document {
	if len(kv)%2 != 0 {
		panic("storetest.Doc: odd number of arguments")
	}
	d := make(store.Document, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		d[kv[i]] = json.RawMessage(kv[i+1])
	}
	return d
}

// Seed inserts docs per collection and fails the test on error.
func Seed(t *testing.T, s store.Writer, data map[string][]store.Document) {
	t.Helper()
	ctx := context.Background()
	for name, docs := range data {
		if _, err := s.DeleteAll(ctx, name); err != nil {
			t.Fatalf("seed clear %s: %v", name, err)
		}
		if len(docs) == 0 {
			continue
		}
		if err := s.InsertMany(ctx, name, docs); err != nil {
			t.Fatalf("seed insert %s: %v", name, err)
		}
	}
}

// Dump reads every collection of s.
func Dump(t *testing.T, s store.Reader) map[string][]store.Document {
	t.Helper()
	ctx := context.Background()
	names, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("dump collections: %v", err)
	}
	out := make(map[string][]store.Document, len(names))
	for _, name := range names {
		docs, err := s.ReadAll(ctx, name)
		if err != nil {
			t.Fatalf("dump %s: %v", name, err)
		}
		out[name] = docs
	}
	return out
}

// Diff returns "" when a and b hold the same collections with the same
// documents in the same order, or a description of the first difference.
func Diff(a, b map[string][]store.Document) string {
	if len(a) != len(b) {
		return fmt.Sprintf("collection count %d != %d", len(a), len(b))
	}
	for name, docsA := range a {
		docsB, ok := b[name]
		if !ok {
			return fmt.Sprintf("collection %s missing", name)
		}
		if len(docsA) != len(docsB) {
			return fmt.Sprintf("%s: %d docs != %d docs", name, len(docsA), len(docsB))
		}
		for i := range docsA {
			if !docsA[i].Equal(docsB[i]) {
				return fmt.Sprintf("%s[%d]: documents differ", name, i)
			}
		}
	}
	return ""
}

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.CollectionStore

// Run exercises the CollectionStore contract against a driver.
func Run(t *testing.T, newStore Factory) {
	t.Run("EmptyStore", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		names, err := s.Collections(context.Background())
		if err != nil {
			t.Fatalf("Collections failed: %v", err)
		}
		if len(names) != 0 {
			t.Errorf("expected no collections, got %v", names)
		}
		docs, err := s.ReadAll(context.Background(), "users")
		if err != nil {
			t.Fatalf("ReadAll on missing collection failed: %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("expected empty read, got %d docs", len(docs))
		}
	})

	t.Run("InsertAndRead", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		docs := []store.Document{
			Doc("_id", `{"$oid":"65f0c0ffee0000000000000a"}`, "name", `"Ana"`, "balance", `12.50`),
			Doc("_id", `{"$oid":"65f0c0ffee0000000000000b"}`, "name", `"Ben"`, "tags", `["a","b"]`),
		}
		if err := s.InsertMany(ctx, "users", docs); err != nil {
			t.Fatalf("InsertMany failed: %v", err)
		}

		got, err := s.ReadAll(ctx, "users")
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if d := Diff(map[string][]store.Document{"users": docs}, map[string][]store.Document{"users": got}); d != "" {
			t.Errorf("round trip mismatch: %s", d)
		}

		n, err := s.Count(ctx, "users")
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 2 {
			t.Errorf("Count = %d, want 2", n)
		}
	})

	t.Run("WhitespaceValuesCompacted", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		in := []store.Document{Doc("_id", `"w1"`, "v", `{ "b": 2, "a": [1, 2] }`, "s", `"a  b"`)}
		if err := s.InsertMany(ctx, "users", in); err != nil {
			t.Fatalf("InsertMany failed: %v", err)
		}
		got, err := s.ReadAll(ctx, "users")
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		want := []store.Document{Doc("_id", `"w1"`, "v", `{"b":2,"a":[1,2]}`, "s", `"a  b"`)}
		if d := Diff(map[string][]store.Document{"users": want}, map[string][]store.Document{"users": got}); d != "" {
			t.Fatalf("stored values not compacted: %s", d)
		}

		// What the store holds must survive encoding unchanged.
		data, err := store.Marshal(got[0])
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var back store.Document
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if !back.Equal(got[0]) {
			t.Errorf("encoded document differs: %s", data)
		}
	})

	t.Run("DeleteAllKeepsCollection", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		Seed(t, s, map[string][]store.Document{"budgets": {Doc("_id", `"b1"`)}})

		n, err := s.DeleteAll(ctx, "budgets")
		if err != nil {
			t.Fatalf("DeleteAll failed: %v", err)
		}
		if n != 1 {
			t.Errorf("DeleteAll removed %d, want 1", n)
		}
		if _, err := s.DeleteAll(ctx, "reports"); err != nil {
			t.Fatalf("DeleteAll on missing collection failed: %v", err)
		}

		names, err := s.Collections(ctx)
		if err != nil {
			t.Fatalf("Collections failed: %v", err)
		}
		if !slices.Equal(names, []string{"budgets", "reports"}) {
			t.Errorf("Collections = %v, want [budgets reports]", names)
		}
	})

	t.Run("TransactionCommit", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		Seed(t, s, map[string][]store.Document{"users": {Doc("_id", `"u1"`)}})

		err := s.WithTransaction(ctx, func(ctx context.Context, w store.Writer) error {
			if _, err := w.DeleteAll(ctx, "users"); err != nil {
				return err
			}
			if err := w.InsertMany(ctx, "users", []store.Document{Doc("_id", `"u2"`)}); err != nil {
				return err
			}
			return w.InsertMany(ctx, "transactions", []store.Document{Doc("_id", `"t1"`)})
		})
		if err != nil {
			t.Fatalf("WithTransaction failed: %v", err)
		}

		want := map[string][]store.Document{
			"transactions": {Doc("_id", `"t1"`)},
			"users":        {Doc("_id", `"u2"`)},
		}
		if d := Diff(want, Dump(t, s)); d != "" {
			t.Errorf("after commit: %s", d)
		}
	})

	t.Run("TransactionRollback", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		Seed(t, s, map[string][]store.Document{
			"users":   {Doc("_id", `"u1"`), Doc("_id", `"u2"`)},
			"budgets": {},
		})
		before := Dump(t, s)

		boom := errors.New("boom")
		err := s.WithTransaction(ctx, func(ctx context.Context, w store.Writer) error {
			if _, err := w.DeleteAll(ctx, "users"); err != nil {
				return err
			}
			if err := w.InsertMany(ctx, "users", []store.Document{Doc("_id", `"x"`)}); err != nil {
				return err
			}
			if err := w.InsertMany(ctx, "transactions", []store.Document{Doc("_id", `"t9"`)}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("WithTransaction error = %v, want boom", err)
		}

		if d := Diff(before, Dump(t, s)); d != "" {
			t.Errorf("store changed after rollback: %s", d)
		}
	})

	t.Run("InvalidCollection", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		err := s.InsertMany(context.Background(), "../etc", []store.Document{Doc("_id", `"1"`)})
		if !errors.Is(err, store.ErrInvalidCollection) {
			t.Errorf("expected ErrInvalidCollection, got %v", err)
		}
	})
}
