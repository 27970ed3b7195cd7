// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

/*
Package supervisor runs the long-lived parts of the backup service under a
suture v4 supervisor tree.

Tree layout:

	fintrack-backup (root)
	├── engine-layer
	│   └── backup-scheduler (schedule.Runner)
	└── api-layer
	    └── http-server (services.HTTPServerService)

Each layer restarts its own children with exponential backoff. Supervisor
events (restarts, backoff, stop timeouts) are logged through sutureslog into
the zerolog logger via logging.NewSlogLogger.

Usage:

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddEngineService(runner)
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	err := tree.Serve(ctx)

Start-up and shutdown backups are taken by the caller before Serve and after
it returns, so they never race the HTTP listener.
*/
package supervisor
