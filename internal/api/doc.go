// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

/*
Package api exposes the backup engine over HTTP.

Routes are mounted with chi under /api/backup:

	POST   /api/backup/create          create a manual backup
	GET    /api/backup/list            list backups (type, page, limit)
	GET    /api/backup/stats           store, catalog and schedule figures
	POST   /api/backup/clean           prune backups (keep, olderThan, type, force)
	GET    /api/backup/download/{id}   stream a payload
	POST   /api/backup/upload          multipart upload, field "backup"
	GET    /api/backup/schedule        current schedule
	POST   /api/backup/schedule        replace the schedule
	POST   /api/backup/verify/{id}     checksum and structure check
	POST   /api/backup/restore         restore (backupId, confirmationCode)
	GET    /api/backup/activity        activity log (since, until, type, actor, limit)
	GET    /api/backup/{id}            one backup record
	DELETE /api/backup/{id}            delete one backup (force)

plus GET /healthz and GET /metrics.

Every JSON response uses the models.APIResponse envelope. Engine errors are
mapped by kind:

	validation       400 VALIDATION_ERROR
	not found        404 NOT_FOUND
	integrity        422 INTEGRITY_ERROR
	concurrency      409 CONCURRENCY_ERROR
	retention guard  400 RETENTION_GUARD
	infrastructure   500 INTERNAL_ERROR

Infrastructure failures never leak their cause to the caller; the full error
is logged with the request's correlation id.

Authentication happens upstream. The gateway forwards the authenticated user
in X-Actor, which is recorded in the activity log.
*/
package api
