// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InsertHook is called before every MemoryStore.InsertMany. A non-nil error
// aborts the insert. Tests use it to inject failures.
type InsertHook func(collection string, docs []Document) error

// MemoryStore is an in-memory CollectionStore. It has no native transactions
// and implements WithTransaction through Compensate.
// Suitable for development and testing. Data is lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
	insertHook  InsertHook
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]Document)}
}

// SetInsertHook installs h; nil removes it.
func (s *MemoryStore) SetInsertHook(h InsertHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertHook = h
}

// Collections implements Reader.
func (s *MemoryStore) Collections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ReadAll implements Reader.
func (s *MemoryStore) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckCollection(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneAll(s.collections[collection]), nil
}

// Count implements Reader.
func (s *MemoryStore) Count(ctx context.Context, collection string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.collections[collection])), nil
}

// DeleteAll implements Writer.
func (s *MemoryStore) DeleteAll(ctx context.Context, collection string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := CheckCollection(collection); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.collections[collection]))
	s.collections[collection] = []Document{}
	return n, nil
}

// InsertMany implements Writer. Values are stored compacted, matching what
// the encoding drivers read back.
func (s *MemoryStore) InsertMany(ctx context.Context, collection string, docs []Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := CheckCollection(collection); err != nil {
		return err
	}
	compact, err := CompactAll(docs)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertHook != nil {
		if err := s.insertHook(collection, docs); err != nil {
			return err
		}
	}
	s.collections[collection] = append(s.collections[collection], compact...)
	return nil
}

// DropCollection implements Dropper.
func (s *MemoryStore) DropCollection(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// WithTransaction implements CollectionStore using Compensate.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn TxFunc) error {
	return Compensate(ctx, s, fn)
}

// Close implements CollectionStore.
func (s *MemoryStore) Close() error {
	return nil
}
