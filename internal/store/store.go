// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

// Package store defines the collection store the backup engine snapshots and
// restores, plus an in-memory implementation.
//
// The engine has no driver knowledge: everything it needs is in the
// CollectionStore interface. Drivers live in sub-packages (badgerstore,
// sqlitestore). A driver without native transactions implements
// WithTransaction through Compensate.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

// IDField is the store-native identifier field of a document.
const IDField = "_id"

// ErrInvalidCollection is returned for names that are not valid collection
// names.
var ErrInvalidCollection = errors.New("invalid collection name")

// Document is one stored record. Field values are raw JSON in compact form:
// drivers drop insignificant whitespace on insert (see CompactAll), and from
// then on every field, including IDField, round-trips through a backup
// byte-for-byte.
type Document map[string]json.RawMessage

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = bytes.Clone(v)
	}
	return out
}

// ID returns the raw IDField value, or "" when absent.
func (d Document) ID() string {
	return string(d[IDField])
}

// Equal reports whether d and other hold the same fields with byte-identical
// values.
func (d Document) Equal(other Document) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		ov, ok := other[k]
		if !ok || !bytes.Equal(v, ov) {
			return false
		}
	}
	return true
}

// Marshal encodes v with map keys sorted and without HTML escaping or UTF-8
// normalization. Raw field values come out compacted, so a compact value is
// written exactly as held.
func Marshal(v interface{}) ([]byte, error) {
	return json.MarshalWithOption(v, json.DisableHTMLEscape(), json.DisableNormalizeUTF8())
}

// CompactAll returns deep copies of docs with every field value compacted.
// It fails on a value that is not valid JSON.
func CompactAll(docs []Document) ([]Document, error) {
	out := make([]Document, len(docs))
	var buf bytes.Buffer
	for i, d := range docs {
		c := make(Document, len(d))
		for k, v := range d {
			buf.Reset()
			if err := json.Compact(&buf, v); err != nil {
				return nil, fmt.Errorf("field %q of document %d: %w", k, i, err)
			}
			c[k] = bytes.Clone(buf.Bytes())
		}
		out[i] = c
	}
	return out, nil
}

// CloneAll deep-copies a document slice.
func CloneAll(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}

// Reader is the read side of a store.
type Reader interface {
	// Collections returns the names of all collections, sorted.
	Collections(ctx context.Context) ([]string, error)

	// ReadAll returns every document of collection in store order. A missing
	// collection reads as empty.
	ReadAll(ctx context.Context, collection string) ([]Document, error)

	// Count returns the number of documents in collection.
	Count(ctx context.Context, collection string) (int64, error)
}

// Writer is the write side of a store.
type Writer interface {
	// DeleteAll removes every document of collection and returns how many
	// were removed. The collection exists (empty) afterwards.
	DeleteAll(ctx context.Context, collection string) (int64, error)

	// InsertMany appends docs to collection, creating it if needed.
	InsertMany(ctx context.Context, collection string, docs []Document) error
}

// TxFunc is the body of a write scope. Writes must go through w.
type TxFunc func(ctx context.Context, w Writer) error

// CollectionStore is the persistent store seen by the backup engine.
type CollectionStore interface {
	Reader
	Writer

	// WithTransaction runs fn in an atomic multi-collection write scope. If
	// fn returns an error, or ctx expires before commit, none of the writes
	// made through w are visible afterwards. A driver may run fn more than
	// once; only the writes of the last run are kept.
	WithTransaction(ctx context.Context, fn TxFunc) error

	// Close releases driver resources.
	Close() error
}

// Dropper is implemented by stores that can remove a collection entirely.
// Compensate uses it to undo the creation of a collection.
type Dropper interface {
	DropCollection(ctx context.Context, collection string) error
}

// CheckCollection returns ErrInvalidCollection when name is not usable.
func CheckCollection(name string) error {
	if !validation.IsCollectionName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}
