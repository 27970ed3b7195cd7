// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

/*
catalog.go - On-disk Backup Catalog

The catalog is the backup directory. Each backup is a pair of files:

	<id>.json       payload, written first
	<id>.meta.json  metadata, written second (commit point)

Both are written with fsutil.WriteFileAtomic, so a reader sees a complete
file or no file. Listing is driven only by metadata files; a payload without
metadata is an orphan and is invisible.

Deletion renames the metadata to a hidden tombstone first. From that moment
the backup is gone for every reader. The payload is then removed, and the
tombstone last. If the payload cannot be removed the tombstone is renamed
back, so callers never observe a metadata file without its payload because
of a delete. Leftover tombstones from a crash are finished by sweep.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/MreRes/blackboxai-1745461143148/internal/fsutil"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

const (
	payloadExt   = ".json"
	metaExt      = ".meta.json"
	tombstoneExt = ".deleted"

	filePerm = 0o640
)

var idReplacer = strings.NewReplacer(":", "-", ".", "-")

// errCorruptMetadata marks a metadata file that exists but cannot be decoded.
var errCorruptMetadata = errors.New("corrupt metadata")

// newBackupID returns backup-<UTC ISO-8601 with ':' and '.' replaced>-<8 hex>.
func newBackupID(now time.Time) string {
	ts := idReplacer.Replace(now.UTC().Format("2006-01-02T15:04:05.000Z"))
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return "backup-" + ts + "-" + suffix
}

type catalog struct {
	dir string
}

func (c *catalog) payloadPath(id string) string {
	return filepath.Join(c.dir, id+payloadExt)
}

func (c *catalog) metaPath(id string) string {
	return filepath.Join(c.dir, id+metaExt)
}

func (c *catalog) tombstonePath(id string) string {
	return filepath.Join(c.dir, "."+id+metaExt+tombstoneExt)
}

func (c *catalog) ensureDir() error {
	return os.MkdirAll(c.dir, 0o750)
}

func (c *catalog) writePayload(id string, data []byte) error {
	return fsutil.WriteFileAtomic(c.payloadPath(id), data, filePerm)
}

func (c *catalog) writeMeta(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return fsutil.WriteFileAtomic(c.metaPath(rec.ID), data, filePerm)
}

// readMeta loads the metadata of id. A missing file yields an error wrapping
// fs.ErrNotExist.
//
//nolint:gosec // G304: id is checked by validation.IsBackupID before use
func (c *catalog) readMeta(id string) (*Record, error) {
	data, err := os.ReadFile(c.metaPath(id))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptMetadata, err)
	}
	rec.ID = id
	rec.Filename = id + payloadExt
	return &rec, nil
}

//nolint:gosec // G304: id is checked by validation.IsBackupID before use
func (c *catalog) readPayload(id string) ([]byte, error) {
	return os.ReadFile(c.payloadPath(id))
}

// records returns every committed backup, newest first. Unreadable metadata
// files are skipped with a warning.
func (c *catalog) records() ([]Record, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list backup directory: %w", err)
	}

	out := make([]Record, 0, len(entries)/2)
	for _, e := range entries {
		id, ok := metaID(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		rec, err := c.readMeta(id)
		if errors.Is(err, fs.ErrNotExist) {
			// Deleted between ReadDir and ReadFile.
			continue
		}
		if err != nil {
			logging.Warn().Err(err).Str("backup_id", id).Msg("Skipping unreadable backup metadata")
			continue
		}
		out = append(out, *rec)
	}

	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID > recs[j].ID
	})
}

// metaID extracts the backup id from a metadata file name.
func metaID(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, metaExt) {
		return "", false
	}
	id := strings.TrimSuffix(name, metaExt)
	return id, validation.IsBackupID(id)
}

// payloadID extracts the backup id from a payload file name.
func payloadID(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, metaExt) || !strings.HasSuffix(name, payloadExt) {
		return "", false
	}
	id := strings.TrimSuffix(name, payloadExt)
	return id, validation.IsBackupID(id)
}

// remove deletes the pair of id as one logical operation.
func (c *catalog) remove(id string) error {
	meta, tomb := c.metaPath(id), c.tombstonePath(id)

	if err := os.Rename(meta, tomb); err != nil {
		return fmt.Errorf("retire metadata: %w", err)
	}
	if err := fsutil.RemoveIfExists(c.payloadPath(id)); err != nil {
		if rbErr := os.Rename(tomb, meta); rbErr != nil {
			return errors.Join(
				fmt.Errorf("remove payload: %w", err),
				fmt.Errorf("reinstate metadata: %w", rbErr),
			)
		}
		return fmt.Errorf("remove payload: %w", err)
	}
	if err := fsutil.RemoveIfExists(tomb); err != nil {
		// The backup is already gone for readers; sweep will retry.
		logging.Warn().Err(err).Str("backup_id", id).Msg("Failed to remove backup tombstone")
	}
	return nil
}

// SweepResult reports what Recover cleaned up.
type SweepResult struct {
	TempFiles      int   `json:"tempFiles"`
	Tombstones     int   `json:"tombstones"`
	OrphanPayloads int   `json:"orphanPayloads"`
	FreedBytes     int64 `json:"freedBytes"`
}

// sweep removes leftovers of interrupted writes and deletes. Temp files and
// orphan payloads are removed only when their modification time is older
// than grace.
func (c *catalog) sweep(now time.Time, grace time.Duration) (SweepResult, error) {
	var res SweepResult

	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("list backup directory: %w", err)
	}

	metas := make(map[string]bool, len(entries)/2)
	for _, e := range entries {
		if id, ok := metaID(e.Name()); ok {
			metas[id] = true
		}
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		path := filepath.Join(c.dir, name)

		info, err := e.Info()
		if err != nil {
			continue
		}
		stale := now.Sub(info.ModTime()) >= grace

		switch {
		case fsutil.IsTemp(name):
			if !stale {
				continue
			}
			if err := fsutil.RemoveIfExists(path); err != nil {
				errs = append(errs, err)
				continue
			}
			res.TempFiles++

		case strings.HasPrefix(name, ".") && strings.HasSuffix(name, metaExt+tombstoneExt):
			id := strings.TrimSuffix(strings.TrimPrefix(name, "."), metaExt+tombstoneExt)
			if !validation.IsBackupID(id) {
				continue
			}
			size := fileSize(c.payloadPath(id))
			if err := fsutil.RemoveIfExists(c.payloadPath(id)); err != nil {
				errs = append(errs, err)
				continue
			}
			if err := fsutil.RemoveIfExists(path); err != nil {
				errs = append(errs, err)
				continue
			}
			res.Tombstones++
			res.FreedBytes += size

		default:
			id, ok := payloadID(name)
			if !ok || metas[id] || !stale {
				continue
			}
			if err := fsutil.RemoveIfExists(path); err != nil {
				errs = append(errs, err)
				continue
			}
			res.OrphanPayloads++
			res.FreedBytes += info.Size()
		}
	}
	return res, errors.Join(errs...)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
