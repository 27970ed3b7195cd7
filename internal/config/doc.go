// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

/*
Package config loads the configuration of the FinTrack backup service.

# Configuration Sources

Configuration is layered with koanf, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file: CONFIG_PATH, then config.yaml / config.yml, then
    /etc/fintrack/config.yaml
 3. Environment variables, mapped explicitly in envTransformFunc

Unmapped environment variables are ignored.

# Environment Variables

	BACKUP_PATH                   backup.dir
	BACKUP_ACTIVITY_PATH          backup.activity_dir
	BACKUP_REQUIRED_COLLECTIONS   backup.required_collections (comma separated)
	BACKUP_RECENT_GUARD           backup.recent_guard
	BACKUP_APPLY_TIMEOUT          backup.apply_timeout
	BACKUP_MAX_UPLOAD_BYTES       backup.max_upload_bytes
	BACKUP_ON_STARTUP             backup.on_startup
	BACKUP_ON_SHUTDOWN            backup.on_shutdown
	BACKUP_INTERVAL               schedule.interval
	BACKUP_SCHEDULE_ENABLED       schedule.enabled
	BACKUP_RETENTION_COUNT        schedule.retention_count
	BACKUP_RETENTION_DAYS         schedule.retention_days
	BACKUP_NOTIFY_TARGET          schedule.notify_target
	STORE_DRIVER                  store.driver (memory, badger, sqlite)
	STORE_PATH                    store.path
	HTTP_ADDR                     server.addr
	RESTORE_CONFIRMATION_CODE     server.restore_confirmation_code
	CORS_ORIGINS                  server.cors_origins (comma separated)
	LOG_LEVEL / LOG_FORMAT        logging.level / logging.format

See envTransformFunc for the complete list.

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	engine, err := backup.New(st, cfg.BackupEngine())
*/
package config
