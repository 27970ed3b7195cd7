// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

// Package metrics holds the prometheus collectors of the backup service.
// Collectors are registered on the default registry through promauto and
// exposed by the HTTP layer at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backup creation
	BackupsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_created_total",
			Help: "Total number of backups written to the catalog",
		},
		[]string{"type"},
	)

	BackupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_failures_total",
			Help: "Total number of failed backup creations",
		},
		[]string{"type", "reason"}, // reason: store_read, io, concurrency
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_duration_seconds",
			Help:    "Time spent capturing and writing a snapshot",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	BackupSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_size_bytes",
			Help:    "Size of snapshot payloads",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. 256MiB
		},
	)

	BackupDocuments = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_documents",
			Help:    "Documents captured per snapshot",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7),
		},
	)

	// Validation
	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_validation_failures_total",
			Help: "Total number of failed backup validations",
		},
		[]string{"reason"}, // missing_metadata, missing_payload, checksum, decode, missing_collection
	)

	// Restore
	Restores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_restores_total",
			Help: "Total number of restore attempts by terminal state",
		},
		[]string{"outcome"}, // committed, rolled_back, rejected
	)

	RestoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_restore_duration_seconds",
			Help:    "Duration of restore operations including the safety snapshot",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	RestoreInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_restore_in_progress",
			Help: "1 while a restore holds the store lock",
		},
	)

	// Retention
	RetentionDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_retention_deleted_total",
			Help: "Total number of backups deleted by clean or delete",
		},
		[]string{"type"},
	)

	RetentionFreedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_retention_freed_bytes_total",
			Help: "Bytes of payload freed by retention",
		},
	)

	RetentionGuardRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_retention_guard_rejections_total",
			Help: "Deletions rejected because the backup was too recent",
		},
	)

	CatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_catalog_entries",
			Help: "Number of backups in the catalog at last listing",
		},
	)

	// Activity log
	ActivityWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_activity_write_failures_total",
			Help: "Activity log appends that failed and were dropped",
		},
		[]string{"event_type"},
	)

	// Scheduler
	ScheduledRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_scheduled_runs_total",
			Help: "Scheduled backup runs by result",
		},
		[]string{"result"}, // success, failure
	)

	NextScheduledRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_next_scheduled_run_timestamp_seconds",
			Help: "Unix time of the next scheduled backup (0 when disabled)",
		},
	)

	// Notifications
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_notifications_total",
			Help: "Notification deliveries by result",
		},
		[]string{"channel", "result"}, // result: sent, failed, skipped, breaker_open, rate_limited
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backup_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_api_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backup_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordBackupCreated records a committed snapshot.
func RecordBackupCreated(backupType string, duration time.Duration, sizeBytes, documents int64) {
	BackupsCreated.WithLabelValues(backupType).Inc()
	BackupDuration.Observe(duration.Seconds())
	BackupSizeBytes.Observe(float64(sizeBytes))
	BackupDocuments.Observe(float64(documents))
}

// RecordBackupFailure records a snapshot that did not commit.
func RecordBackupFailure(backupType, reason string) {
	BackupFailures.WithLabelValues(backupType, reason).Inc()
}

// RecordRestore records a finished restore attempt.
func RecordRestore(outcome string, duration time.Duration) {
	Restores.WithLabelValues(outcome).Inc()
	RestoreDuration.Observe(duration.Seconds())
}

// RecordRetentionDelete records one deleted backup.
func RecordRetentionDelete(backupType string, freedBytes int64) {
	RetentionDeleted.WithLabelValues(backupType).Inc()
	RetentionFreedBytes.Add(float64(freedBytes))
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetNextScheduledRun publishes the next trigger time; zero clears it.
func SetNextScheduledRun(t time.Time) {
	if t.IsZero() {
		NextScheduledRun.Set(0)
		return
	}
	NextScheduledRun.Set(float64(t.Unix()))
}
