// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"context"

	"github.com/dustin/go-humanize"

	"github.com/MreRes/blackboxai-1745461143148/internal/metrics"
)

// Stats reports live store counts and catalog totals.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	const op = "backup stats"

	names, err := e.store.Collections(ctx)
	if err != nil {
		return nil, infraErr(op, "", "store read failed", err)
	}

	st := &Stats{
		Store: StoreStats{
			Collections:   len(names),
			PerCollection: make(map[string]int64, len(names)),
		},
	}
	for _, name := range names {
		n, err := e.store.Count(ctx, name)
		if err != nil {
			return nil, infraErr(op, "", "store read failed", err)
		}
		st.Store.PerCollection[name] = n
		st.Store.Documents += n
	}

	recs, err := e.catalog.records()
	if err != nil {
		return nil, infraErr(op, "", "catalog read failed", err)
	}
	metrics.CatalogSize.Set(float64(len(recs)))

	cs := CatalogStats{
		Count:       len(recs),
		CountByType: make(map[Type]int),
	}
	for _, r := range recs {
		cs.TotalSizeBytes += r.SizeBytes
		cs.CountByType[r.Type]++
	}
	if len(recs) > 0 {
		cs.AverageSizeBytes = cs.TotalSizeBytes / int64(len(recs))
		latest, oldest := recs[0], recs[len(recs)-1]
		cs.Latest, cs.Oldest = &latest, &oldest
	}
	cs.TotalSizeHuman = humanize.IBytes(uint64(cs.TotalSizeBytes))
	cs.AverageSizeHuman = humanize.IBytes(uint64(cs.AverageSizeBytes))
	st.Backups = cs

	return st, nil
}
