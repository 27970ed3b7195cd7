// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ReadWriter is a store without its own transaction primitive.
type ReadWriter interface {
	Reader
	Writer
}

// Compensate runs fn as an all-or-nothing write scope on a store that has no
// native transactions.
//
// Before the first write to a collection its current documents are captured.
// If fn fails, every touched collection is rewritten from its pre-image in
// reverse order of first touch. Compensation runs even when ctx has expired.
// Concurrent writers to the same collections during fn are not isolated.
func Compensate(ctx context.Context, s ReadWriter, fn TxFunc) error {
	existing, err := s.Collections(ctx)
	if err != nil {
		return fmt.Errorf("capture collection list: %w", err)
	}

	cw := &compensatingWriter{
		base:     s,
		existed:  existing,
		preimage: make(map[string][]Document),
	}

	if err := fn(ctx, cw); err != nil {
		if rbErr := cw.rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return errors.Join(err, fmt.Errorf("compensation failed: %w", rbErr))
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		if rbErr := cw.rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return errors.Join(err, fmt.Errorf("compensation failed: %w", rbErr))
		}
		return err
	}
	return nil
}

type compensatingWriter struct {
	base     ReadWriter
	existed  []string
	preimage map[string][]Document
	touched  []string
}

func (w *compensatingWriter) capture(ctx context.Context, collection string) error {
	if _, ok := w.preimage[collection]; ok {
		return nil
	}
	docs, err := w.base.ReadAll(ctx, collection)
	if err != nil {
		return fmt.Errorf("capture pre-image of %s: %w", collection, err)
	}
	if docs == nil {
		docs = []Document{}
	}
	w.preimage[collection] = docs
	w.touched = append(w.touched, collection)
	return nil
}

func (w *compensatingWriter) DeleteAll(ctx context.Context, collection string) (int64, error) {
	if err := w.capture(ctx, collection); err != nil {
		return 0, err
	}
	return w.base.DeleteAll(ctx, collection)
}

func (w *compensatingWriter) InsertMany(ctx context.Context, collection string, docs []Document) error {
	if err := w.capture(ctx, collection); err != nil {
		return err
	}
	return w.base.InsertMany(ctx, collection, docs)
}

func (w *compensatingWriter) rollback(ctx context.Context) error {
	var errs []error
	for i := len(w.touched) - 1; i >= 0; i-- {
		name := w.touched[i]

		if !slices.Contains(w.existed, name) {
			if d, ok := w.base.(Dropper); ok {
				if err := d.DropCollection(ctx, name); err != nil {
					errs = append(errs, fmt.Errorf("drop %s: %w", name, err))
				}
				continue
			}
		}

		if _, err := w.base.DeleteAll(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", name, err))
			continue
		}
		if pre := w.preimage[name]; len(pre) > 0 {
			if err := w.base.InsertMany(ctx, name, pre); err != nil {
				errs = append(errs, fmt.Errorf("re-insert %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
