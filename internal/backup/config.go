// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"fmt"
	"time"

	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

// Config holds engine settings. It is filled by internal/config.
type Config struct {
	// Dir is the catalog directory.
	Dir string

	// RequiredCollections must be present in every valid payload.
	RequiredCollections []string

	// RecentGuard is the age below which deletion needs force.
	RecentGuard time.Duration

	// OrphanGrace is how old an orphan payload must be before Recover
	// removes it. Younger orphans may belong to a backup still being written.
	OrphanGrace time.Duration

	// ApplyTimeout bounds the Applying phase of a restore. Zero means only
	// the caller's deadline applies.
	ApplyTimeout time.Duration

	// MaxUploadBytes caps Upload payloads.
	MaxUploadBytes int64

	// ReadConcurrency is how many collections are read in parallel while
	// snapshotting.
	ReadConcurrency int
}

// DefaultRequiredCollections are the collections every payload must carry.
var DefaultRequiredCollections = []string{"users", "transactions", "budgets"}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Dir:                 "backups",
		RequiredCollections: append([]string(nil), DefaultRequiredCollections...),
		RecentGuard:         24 * time.Hour,
		OrphanGrace:         time.Hour,
		ApplyTimeout:        5 * time.Minute,
		MaxUploadBytes:      100 << 20,
		ReadConcurrency:     4,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("backup directory is required")
	}
	for _, name := range c.RequiredCollections {
		if !validation.IsCollectionName(name) {
			return fmt.Errorf("invalid required collection name %q", name)
		}
	}
	if c.RecentGuard < 0 {
		return fmt.Errorf("recent guard must not be negative")
	}
	if c.OrphanGrace < 0 {
		return fmt.Errorf("orphan grace must not be negative")
	}
	if c.ApplyTimeout < 0 {
		return fmt.Errorf("apply timeout must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if c.ReadConcurrency < 1 {
		return fmt.Errorf("read concurrency must be at least 1")
	}
	return nil
}
