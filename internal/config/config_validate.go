// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package config

import (
	"fmt"

	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

// Validate checks field constraints and the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateBackup(); err != nil {
		return err
	}
	if err := c.InitialSchedule().Validate(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.Driver != "memory" && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required for the %s driver", c.Store.Driver)
	}
	return nil
}

func (c *Config) validateBackup() error {
	engine := c.BackupEngine()
	if err := engine.Validate(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	if len(c.Backup.RequiredCollections) == 0 {
		return fmt.Errorf("BACKUP_REQUIRED_COLLECTIONS must name at least one collection")
	}
	return nil
}
