// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config files searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fintrack/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from defaults, the optional config file and
// the environment, then validates it.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// BACKUP_PATH -> backup.dir, LOG_LEVEL -> logging.level, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they come from
// the environment.
var sliceConfigPaths = []string{
	"backup.required_collections",
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to config keys.
var envMappings = map[string]string{
	// Backup engine
	"backup_path":                 "backup.dir",
	"backup_activity_path":        "backup.activity_dir",
	"backup_required_collections": "backup.required_collections",
	"backup_recent_guard":         "backup.recent_guard",
	"backup_orphan_grace":         "backup.orphan_grace",
	"backup_apply_timeout":        "backup.apply_timeout",
	"backup_max_upload_bytes":     "backup.max_upload_bytes",
	"backup_read_concurrency":     "backup.read_concurrency",
	"backup_on_startup":           "backup.on_startup",
	"backup_on_shutdown":          "backup.on_shutdown",

	// Schedule
	"backup_schedule_enabled": "schedule.enabled",
	"backup_interval":         "schedule.interval",
	"backup_retention_count":  "schedule.retention_count",
	"backup_retention_days":   "schedule.retention_days",
	"backup_notify_success":   "schedule.notify_success",
	"backup_notify_failure":   "schedule.notify_failure",
	"backup_notify_target":    "schedule.notify_target",
	"backup_schedule_path":    "schedule.path",

	// Notifications
	"notify_timeout":          "notify.timeout",
	"notify_rate_per_minute":  "notify.rate_per_minute",
	"notify_burst":            "notify.burst",
	"notify_breaker_failures": "notify.breaker_failures",
	"notify_breaker_timeout":  "notify.breaker_timeout",

	// Store
	"store_driver": "store.driver",
	"store_path":   "store.path",

	// Server
	"http_addr":                 "server.addr",
	"http_read_timeout":         "server.read_timeout",
	"http_write_timeout":        "server.write_timeout",
	"http_shutdown_timeout":     "server.shutdown_timeout",
	"http_rate_limit":           "server.rate_limit",
	"restore_confirmation_code": "server.restore_confirmation_code",
	"cors_origins":              "server.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to its config key. Unmapped
// variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
