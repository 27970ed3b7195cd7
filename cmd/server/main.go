// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

// Package main is the entry point of the FinTrack backup service.
//
// The service protects the financial collections (users, transactions,
// budgets, ...) of a FinTrack deployment with point-in-time backups that can
// be listed, verified, downloaded, uploaded and restored over a REST API.
//
// # Start-up Order
//
//  1. Configuration (koanf: defaults, YAML file, environment)
//  2. Logging (zerolog)
//  3. Collection store (memory, badger or sqlite)
//  4. Backup engine, then crash recovery of the catalog
//  5. Start-up backup when BACKUP_ON_STARTUP is set
//  6. Schedule store and scheduler
//  7. HTTP server
//
// Steps 6 and 7 run under a suture supervisor tree.
//
// # Signal Handling
//
// On SIGINT or SIGTERM the HTTP server drains in-flight requests, the
// scheduler stops, a shutdown backup is taken when BACKUP_ON_SHUTDOWN is set,
// and the store is closed.
//
// # Example
//
//	export STORE_DRIVER=sqlite
//	export STORE_PATH=data/fintrack.db
//	export BACKUP_PATH=backups
//	export RESTORE_CONFIRMATION_CODE=change-me
//	./fintrack-backup
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/api"
	"github.com/MreRes/blackboxai-1745461143148/internal/backup"
	"github.com/MreRes/blackboxai-1745461143148/internal/config"
	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/notify"
	"github.com/MreRes/blackboxai-1745461143148/internal/schedule"
	"github.com/MreRes/blackboxai-1745461143148/internal/store"
	"github.com/MreRes/blackboxai-1745461143148/internal/store/badgerstore"
	"github.com/MreRes/blackboxai-1745461143148/internal/store/sqlitestore"
	"github.com/MreRes/blackboxai-1745461143148/internal/supervisor"
	"github.com/MreRes/blackboxai-1745461143148/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LoggingSetup())

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	logging.Info().
		Str("store_driver", cfg.Store.Driver).
		Str("backup_dir", cfg.Backup.Dir).
		Str("addr", cfg.Server.Addr).
		Msg("Starting FinTrack backup service")

	st, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	act := activity.New(cfg.Backup.ActivityDir)

	engine, err := backup.New(st, cfg.BackupEngine(), backup.WithActivity(act))
	if err != nil {
		return fmt.Errorf("backup engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweep, err := engine.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover backup catalog: %w", err)
	}
	logging.Info().
		Int("temp_files", sweep.TempFiles).
		Int("tombstones", sweep.Tombstones).
		Int("orphan_payloads", sweep.OrphanPayloads).
		Msg("Backup catalog recovered")

	if cfg.Backup.OnStartup {
		takeLifecycleBackup(ctx, engine, backup.TypeStartup, "Automatic backup on server start")
	}

	schedStore, err := schedule.NewStore(cfg.InitialSchedule(),
		schedule.WithPath(cfg.Schedule.Path),
		schedule.WithActivity(act),
	)
	if err != nil {
		return fmt.Errorf("schedule store: %w", err)
	}
	runner := schedule.NewRunner(engine, schedStore, notify.NewWebhook(cfg.Notify))

	handler := api.NewHandler(engine, schedStore, runner, act, cfg.API())
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddEngineService(runner)
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server listening")
	serveErr := tree.Serve(ctx)
	if errors.Is(serveErr, context.Canceled) {
		serveErr = nil
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	if cfg.Backup.OnShutdown {
		takeLifecycleBackup(context.WithoutCancel(ctx), engine, backup.TypeShutdown, "Automatic backup on server shutdown")
	}
	return serveErr
}

func openStore(cfg config.StoreConfig) (store.CollectionStore, error) {
	switch cfg.Driver {
	case "memory":
		logging.Warn().Msg("Using in-memory store, data is lost on exit")
		return store.NewMemoryStore(), nil
	case "badger":
		st, err := badgerstore.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return st, nil
	case "sqlite":
		st, err := sqlitestore.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// takeLifecycleBackup logs failures instead of aborting; a missed start-up
// or shutdown backup must not keep the service down.
func takeLifecycleBackup(ctx context.Context, engine *backup.Engine, typ backup.Type, description string) {
	rec, err := engine.CreateBackup(ctx, backup.CreateRequest{
		Type:        typ,
		CreatedBy:   "system",
		Description: description,
	})
	if err != nil {
		logging.Error().Err(err).Str("type", string(typ)).Msg("Lifecycle backup failed")
		return
	}
	logging.Info().Str("backup_id", rec.ID).Str("type", string(typ)).Msg("Lifecycle backup created")
}
