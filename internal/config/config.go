// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package config

import (
	"os"
	"time"

	"github.com/MreRes/blackboxai-1745461143148/internal/api"
	"github.com/MreRes/blackboxai-1745461143148/internal/backup"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/notify"
	"github.com/MreRes/blackboxai-1745461143148/internal/schedule"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Backup   BackupConfig   `koanf:"backup"`
	Schedule ScheduleConfig `koanf:"schedule"`
	Notify   notify.Config  `koanf:"notify"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`

	// RateLimit is the number of requests per minute allowed per client IP
	// on the backup routes. Zero disables limiting.
	RateLimit int `koanf:"rate_limit" validate:"gte=0"`

	// RestoreConfirmationCode, when set, must accompany every restore request.
	RestoreConfirmationCode string `koanf:"restore_confirmation_code"`

	// CORSOrigins enables CORS for browser clients served from these origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// StoreConfig selects the collection store driver.
type StoreConfig struct {
	Driver string `koanf:"driver" validate:"oneof=memory badger sqlite"`
	// Path is the badger directory or the sqlite file.
	Path string `koanf:"path"`
}

// BackupConfig holds engine and catalog settings.
type BackupConfig struct {
	Dir                 string        `koanf:"dir" validate:"required"`
	ActivityDir         string        `koanf:"activity_dir" validate:"required"`
	RequiredCollections []string      `koanf:"required_collections"`
	RecentGuard         time.Duration `koanf:"recent_guard"`
	OrphanGrace         time.Duration `koanf:"orphan_grace"`
	ApplyTimeout        time.Duration `koanf:"apply_timeout"`
	MaxUploadBytes      int64         `koanf:"max_upload_bytes" validate:"gt=0"`
	ReadConcurrency     int           `koanf:"read_concurrency" validate:"gte=1,lte=64"`
	OnStartup           bool          `koanf:"on_startup"`
	OnShutdown          bool          `koanf:"on_shutdown"`
}

// ScheduleConfig is the initial backup schedule. A schedule persisted at
// Path takes precedence at start-up.
type ScheduleConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Interval       string `koanf:"interval"`
	RetentionCount int    `koanf:"retention_count"`
	RetentionDays  int    `koanf:"retention_days"`
	NotifySuccess  bool   `koanf:"notify_success"`
	NotifyFailure  bool   `koanf:"notify_failure"`
	NotifyTarget   string `koanf:"notify_target"`
	Path           string `koanf:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	b := backup.DefaultConfig()
	s := schedule.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       60,
		},
		Store: StoreConfig{
			Driver: "badger",
			Path:   "data/fintrack",
		},
		Backup: BackupConfig{
			Dir:                 b.Dir,
			ActivityDir:         "logs",
			RequiredCollections: b.RequiredCollections,
			RecentGuard:         b.RecentGuard,
			OrphanGrace:         b.OrphanGrace,
			ApplyTimeout:        b.ApplyTimeout,
			MaxUploadBytes:      b.MaxUploadBytes,
			ReadConcurrency:     b.ReadConcurrency,
			OnStartup:           true,
			OnShutdown:          true,
		},
		Schedule: ScheduleConfig{
			Enabled:        s.Enabled,
			Interval:       s.Interval,
			RetentionCount: s.Retention.Count,
			RetentionDays:  s.Retention.Days,
			NotifySuccess:  s.Notification.OnSuccess,
			NotifyFailure:  s.Notification.OnFailure,
			Path:           "backups/schedule.json",
		},
		Notify: notify.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// BackupEngine returns the backup engine configuration.
func (c *Config) BackupEngine() backup.Config {
	return backup.Config{
		Dir:                 c.Backup.Dir,
		RequiredCollections: append([]string(nil), c.Backup.RequiredCollections...),
		RecentGuard:         c.Backup.RecentGuard,
		OrphanGrace:         c.Backup.OrphanGrace,
		ApplyTimeout:        c.Backup.ApplyTimeout,
		MaxUploadBytes:      c.Backup.MaxUploadBytes,
		ReadConcurrency:     c.Backup.ReadConcurrency,
	}
}

// API returns the HTTP layer configuration.
func (c *Config) API() api.Config {
	return api.Config{
		RestoreConfirmationCode: c.Server.RestoreConfirmationCode,
		MaxUploadBytes:          c.Backup.MaxUploadBytes,
		RateLimit:               c.Server.RateLimit,
		RateLimitWindow:         time.Minute,
		CORSOrigins:             append([]string(nil), c.Server.CORSOrigins...),
	}
}

// InitialSchedule returns the schedule the process starts with.
func (c *Config) InitialSchedule() schedule.Config {
	return schedule.Config{
		Enabled:  c.Schedule.Enabled,
		Interval: c.Schedule.Interval,
		Retention: schedule.Retention{
			Count: c.Schedule.RetentionCount,
			Days:  c.Schedule.RetentionDays,
		},
		Notification: schedule.Notification{
			OnSuccess: c.Schedule.NotifySuccess,
			OnFailure: c.Schedule.NotifyFailure,
			Target:    c.Schedule.NotifyTarget,
		},
	}
}

// LoggingSetup returns the logger configuration.
func (c *Config) LoggingSetup() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		Caller:    c.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	}
}
