// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

// Package sqlitestore is a CollectionStore on SQLite (modernc.org/sqlite,
// pure Go). The schema is managed with goose migrations embedded in the
// binary. Documents are stored as JSON text, one row each, ordered by an
// autoincrement sequence.
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its FS and dialect in package globals.
var migrateMu sync.Mutex

// Store implements store.CollectionStore.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and runs migrations.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY on
	// transaction upgrades.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// gooseLogger routes goose output to the debug log.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	logging.Debug().Str("component", "migrations").Msgf(format, v...)
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	logging.Fatal().Str("component", "migrations").Msgf(format, v...)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Collections implements store.Reader.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ReadAll implements store.Reader.
func (s *Store) ReadAll(ctx context.Context, collection string) ([]store.Document, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		var d store.Document
		if err := json.Unmarshal([]byte(body), &d); err != nil {
			return nil, fmt.Errorf("decode document in %s: %w", collection, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Count implements store.Reader.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// DeleteAll implements store.Writer.
func (s *Store) DeleteAll(ctx context.Context, collection string) (int64, error) {
	return deleteAll(ctx, s.db, collection)
}

// InsertMany implements store.Writer. The batch is applied in its own
// transaction so a failure leaves no partial insert.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []store.Document) error {
	return s.WithTransaction(ctx, func(ctx context.Context, w store.Writer) error {
		return w.InsertMany(ctx, collection, docs)
	})
}

// DropCollection implements store.Dropper.
func (s *Store) DropCollection(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, collection); err != nil {
		return fmt.Errorf("drop %s: %w", collection, err)
	}
	return nil
}

// WithTransaction implements store.CollectionStore.
func (s *Store) WithTransaction(ctx context.Context, fn store.TxFunc) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err = fn(ctx, txWriter{q: tx}); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close implements store.CollectionStore.
func (s *Store) Close() error {
	return s.db.Close()
}

type txWriter struct {
	q querier
}

func (w txWriter) DeleteAll(ctx context.Context, collection string) (int64, error) {
	return deleteAll(ctx, w.q, collection)
}

func (w txWriter) InsertMany(ctx context.Context, collection string, docs []store.Document) error {
	if err := ensureCollection(ctx, w.q, collection); err != nil {
		return err
	}
	for _, d := range docs {
		body, err := store.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode document for %s: %w", collection, err)
		}
		if _, err := w.q.ExecContext(ctx,
			`INSERT INTO documents (collection, body) VALUES (?, ?)`, collection, string(body)); err != nil {
			return fmt.Errorf("insert into %s: %w", collection, err)
		}
	}
	return nil
}

func ensureCollection(ctx context.Context, q querier, collection string) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO collections (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, collection); err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}
	return nil
}

func deleteAll(ctx context.Context, q querier, collection string) (int64, error) {
	if err := ensureCollection(ctx, q, collection); err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
