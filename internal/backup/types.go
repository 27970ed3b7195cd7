// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"time"
)

// Type records why a backup was taken.
type Type string

const (
	TypeManual   Type = "manual"
	TypeStartup  Type = "startup"
	TypeShutdown Type = "shutdown"
	// TypeSafety is taken by Restore immediately before applying a payload.
	TypeSafety Type = "safety"
	// TypeUpload is a payload received through Upload.
	TypeUpload Type = "upload"
	// TypeScheduled is taken by the periodic trigger.
	TypeScheduled Type = "scheduled"
)

// AllTypes lists every backup type.
var AllTypes = []Type{TypeManual, TypeStartup, TypeShutdown, TypeSafety, TypeUpload, TypeScheduled}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	for _, v := range AllTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Record is the metadata of one backup, stored in the .meta.json sidecar.
type Record struct {
	// ID is the payload file name without extension.
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	CreatedAt     time.Time `json:"timestamp"`
	Checksum      string    `json:"checksum"`
	Collections   []string  `json:"collections"`
	DocumentCount int64     `json:"documentsCount"`
	SizeBytes     int64     `json:"size"`
	Type          Type      `json:"type"`
	// CreatedBy is empty for backups taken by the system itself.
	CreatedBy    string `json:"createdBy"`
	Description  string `json:"description"`
	OriginalName string `json:"originalName,omitempty"`
}

// Age returns how old the record is at now.
func (r *Record) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// CreateRequest describes a backup requested by a caller.
type CreateRequest struct {
	Type        Type   `json:"type" validate:"required,oneof=manual startup shutdown scheduled"`
	CreatedBy   string `json:"createdBy" validate:"max=200"`
	Description string `json:"description" validate:"max=500"`
}

// ValidationResult is the outcome of Validate. Two calls on an unchanged
// backup produce equal results.
type ValidationResult struct {
	BackupID           string   `json:"backupId"`
	Valid              bool     `json:"isValid"`
	Reason             string   `json:"reason,omitempty"`
	Record             *Record  `json:"metadata,omitempty"`
	ExpectedChecksum   string   `json:"expectedChecksum,omitempty"`
	ActualChecksum     string   `json:"actualChecksum,omitempty"`
	MissingCollections []string `json:"missingCollections,omitempty"`
}

// RestoreState is a state of the restore protocol.
type RestoreState string

const (
	StateIdle         RestoreState = "idle"
	StateValidating   RestoreState = "validating"
	StateSafetyBackup RestoreState = "safety_backup"
	StateApplying     RestoreState = "applying"
	StateCommitted    RestoreState = "committed"
	StateRolledBack   RestoreState = "rolled_back"
)

// RestoreOutcome reports a finished restore, successful or not.
type RestoreOutcome struct {
	BackupID          string        `json:"backupId"`
	SafetyBackupID    string        `json:"safetyBackupId,omitempty"`
	State             RestoreState  `json:"state"`
	Collections       []string      `json:"collections,omitempty"`
	DocumentsRestored int64         `json:"documentsRestored"`
	StartedAt         time.Time     `json:"startedAt"`
	FinishedAt        time.Time     `json:"finishedAt"`
	Duration          time.Duration `json:"duration"`
	Actor             string        `json:"actor"`
}

// ListOptions filters and paginates List.
type ListOptions struct {
	Type  Type `json:"type" validate:"omitempty,oneof=manual startup shutdown safety upload scheduled"`
	Page  int  `json:"page" validate:"gte=0"`
	Limit int  `json:"limit" validate:"gte=0,lte=100"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ListResult is one page of backups, newest first.
type ListResult struct {
	Items      []Record   `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// CleanPolicy selects backups to prune. OlderThan wins over Keep.
type CleanPolicy struct {
	// Keep is how many of the newest (type-filtered) backups survive.
	// Nil means DefaultKeep.
	Keep *int `json:"keep,omitempty"`
	// OlderThan deletes every backup created before now-OlderThan.
	OlderThan time.Duration `json:"olderThan,omitempty"`
	// Type restricts the policy to one backup type.
	Type Type `json:"type,omitempty"`
	// Force bypasses the recent-backup guard.
	Force bool `json:"force,omitempty"`
}

// DefaultKeep is the number of backups Clean keeps when no policy field is set.
const DefaultKeep = 5

// CleanResult summarizes a Clean call.
type CleanResult struct {
	DeletedCount   int      `json:"deletedCount"`
	FreedBytes     int64    `json:"freedBytes"`
	RemainingCount int      `json:"remainingCount"`
	Deleted        []string `json:"deleted"`
}

// UploadRequest describes an uploaded payload.
type UploadRequest struct {
	OriginalName string `json:"originalName" validate:"max=255"`
	UploadedBy   string `json:"uploadedBy" validate:"max=200"`
	Description  string `json:"description" validate:"max=500"`
}

// StoreStats describes the live store.
type StoreStats struct {
	Collections   int              `json:"collections"`
	Documents     int64            `json:"documents"`
	PerCollection map[string]int64 `json:"perCollection"`
}

// CatalogStats describes the backup catalog.
type CatalogStats struct {
	Count            int          `json:"count"`
	TotalSizeBytes   int64        `json:"totalSize"`
	TotalSizeHuman   string       `json:"totalSizeHuman"`
	AverageSizeBytes int64        `json:"averageSize"`
	AverageSizeHuman string       `json:"averageSizeHuman"`
	CountByType      map[Type]int `json:"countByType"`
	Latest           *Record      `json:"latest,omitempty"`
	Oldest           *Record      `json:"oldest,omitempty"`
}

// Stats aggregates store and catalog figures.
type Stats struct {
	Store   StoreStats   `json:"database"`
	Backups CatalogStats `json:"backups"`
}
