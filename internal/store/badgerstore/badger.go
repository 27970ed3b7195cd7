// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

// Package badgerstore is a CollectionStore on BadgerDB.
//
// Key layout:
//
//	m\x00<collection>                 collection marker (empty value)
//	s\x00<collection>                 next document sequence (uint64, big endian)
//	d\x00<collection>\x00<seq:8 bytes> document JSON
//
// Documents of a collection iterate in sequence order, which is insertion
// order.
//
// WithTransaction maps onto a single Badger read-write transaction. A scope
// whose writes exceed Badger's batch limit (ErrTxnTooBig) is discarded and run
// again through store.Compensate, with plain writes going out through
// WriteBatch in as many flushes as needed.
package badgerstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/MreRes/blackboxai-1745461143148/internal/store"
)

const (
	markerPrefix = "m\x00"
	seqPrefix    = "s\x00"
	docPrefix    = "d\x00"
)

// Store implements store.CollectionStore.
type Store struct {
	db     *badger.DB
	ownsDB bool

	// writeMu serializes plain (non-transactional) writers so sequence
	// numbers are not handed out twice.
	writeMu sync.Mutex
}

// Open opens (or creates) a Badger database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db, ownsDB: true}, nil
}

// New wraps an already open database. Close does not close db.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

func markerKey(c string) []byte { return []byte(markerPrefix + c) }
func seqKey(c string) []byte    { return []byte(seqPrefix + c) }
func docsPrefix(c string) []byte {
	return []byte(docPrefix + c + "\x00")
}

func docKey(c string, seq uint64) []byte {
	p := docsPrefix(c)
	k := make([]byte, len(p)+8)
	copy(k, p)
	binary.BigEndian.PutUint64(k[len(p):], seq)
	return k
}

// Collections implements store.Reader.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(markerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, string(it.Item().Key()[len(markerPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// ReadAll implements store.Reader.
func (s *Store) ReadAll(ctx context.Context, collection string) ([]store.Document, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, err
	}
	var docs []store.Document
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = docsPrefix(collection)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var d store.Document
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &d)
			})
			if err != nil {
				return fmt.Errorf("decode document %x: %w", it.Item().Key(), err)
			}
			docs = append(docs, d)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	return docs, nil
}

// Count implements store.Reader.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = docsPrefix(collection)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// DeleteAll implements store.Writer. Large collections are removed over
// several write batches, so a failure can leave the collection partly
// cleared.
func (s *Store) DeleteAll(ctx context.Context, collection string) (int64, error) {
	if err := store.CheckCollection(collection); err != nil {
		return 0, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	keys, err := s.docKeys(collection)
	if err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("delete from %s: %w", collection, err)
		}
	}
	if err := wb.Set(markerKey(collection), nil); err != nil {
		return 0, fmt.Errorf("mark %s: %w", collection, err)
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush deletes of %s: %w", collection, err)
	}
	return int64(len(keys)), nil
}

// InsertMany implements store.Writer. Documents are written through a
// WriteBatch; the sequence counter is advanced in the same batch.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []store.Document) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var seq uint64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		seq, err = readSeq(txn, collection)
		return err
	})
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := store.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode document for %s: %w", collection, err)
		}
		if err := wb.Set(docKey(collection, seq), data); err != nil {
			return fmt.Errorf("insert into %s: %w", collection, err)
		}
		seq++
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := wb.Set(seqKey(collection), buf[:]); err != nil {
		return fmt.Errorf("advance sequence of %s: %w", collection, err)
	}
	if err := wb.Set(markerKey(collection), nil); err != nil {
		return fmt.Errorf("mark %s: %w", collection, err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush inserts into %s: %w", collection, err)
	}
	return nil
}

// DropCollection implements store.Dropper.
func (s *Store) DropCollection(ctx context.Context, collection string) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	keys, err := s.docKeys(collection)
	if err != nil {
		return err
	}
	keys = append(keys, seqKey(collection), markerKey(collection))

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("drop %s: %w", collection, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush drop of %s: %w", collection, err)
	}
	return nil
}

func (s *Store) docKeys(collection string) ([][]byte, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = docsPrefix(collection)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", collection, err)
	}
	return keys, nil
}

// WithTransaction implements store.CollectionStore. The Badger transaction is
// discarded unless fn succeeds and ctx is still live at commit time.
//
// When the scope outgrows a single Badger transaction, fn is run a second
// time under store.Compensate. fn must therefore be safe to repeat, which
// holds for scopes that clear a collection before filling it.
func (s *Store) WithTransaction(ctx context.Context, fn store.TxFunc) error {
	err := s.runTxn(ctx, fn)
	if !errors.Is(err, badger.ErrTxnTooBig) {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return store.Compensate(ctx, s, fn)
}

func (s *Store) runTxn(ctx context.Context, fn store.TxFunc) error {
	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(ctx, &txWriter{txn: txn}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close implements store.CollectionStore.
func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// txWriter applies writes to a single Badger transaction.
type txWriter struct {
	txn *badger.Txn
}

func (w *txWriter) DeleteAll(ctx context.Context, collection string) (int64, error) {
	if err := store.CheckCollection(collection); err != nil {
		return 0, err
	}

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = docsPrefix(collection)
	it := w.txn.NewIterator(opts)

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := w.txn.Delete(k); err != nil {
			return 0, fmt.Errorf("delete from %s: %w", collection, err)
		}
	}
	if err := w.txn.Set(markerKey(collection), nil); err != nil {
		return 0, fmt.Errorf("mark %s: %w", collection, err)
	}
	return int64(len(keys)), nil
}

func (w *txWriter) InsertMany(ctx context.Context, collection string, docs []store.Document) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}

	seq, err := readSeq(w.txn, collection)
	if err != nil {
		return err
	}

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := store.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode document for %s: %w", collection, err)
		}
		if err := w.txn.Set(docKey(collection, seq), data); err != nil {
			return fmt.Errorf("insert into %s: %w", collection, err)
		}
		seq++
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := w.txn.Set(seqKey(collection), buf[:]); err != nil {
		return fmt.Errorf("advance sequence of %s: %w", collection, err)
	}
	if err := w.txn.Set(markerKey(collection), nil); err != nil {
		return fmt.Errorf("mark %s: %w", collection, err)
	}
	return nil
}

func readSeq(txn *badger.Txn, collection string) (uint64, error) {
	item, err := txn.Get(seqKey(collection))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sequence of %s: %w", collection, err)
	}
	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt sequence for %s", collection)
		}
		seq = binary.BigEndian.Uint64(val)
		return nil
	})
	return seq, err
}
