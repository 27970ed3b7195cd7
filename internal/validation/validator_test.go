// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	ID          string   `json:"id" validate:"required,backupid"`
	Limit       int      `json:"limit" validate:"min=1,max=100"`
	Type        string   `json:"type" validate:"omitempty,oneof=manual startup shutdown"`
	Target      string   `json:"target" validate:"omitempty,email|url"`
	Collections []string `json:"collections" validate:"dive,collection"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       sampleRequest
		wantField string
	}{
		{
			name: "valid",
			req:  sampleRequest{ID: "backup-2026-01-02T03-04-05-678Z-1a2b3c4d", Limit: 10, Target: "ops@example.com"},
		},
		{
			name:      "missing id",
			req:       sampleRequest{Limit: 10},
			wantField: "id",
		},
		{
			name:      "path traversal id",
			req:       sampleRequest{ID: "backup-../../etc/passwd", Limit: 10},
			wantField: "id",
		},
		{
			name:      "limit too large",
			req:       sampleRequest{ID: "backup-x", Limit: 1000},
			wantField: "limit",
		},
		{
			name:      "bad type",
			req:       sampleRequest{ID: "backup-x", Limit: 1, Type: "hourly"},
			wantField: "type",
		},
		{
			name:      "bad target",
			req:       sampleRequest{ID: "backup-x", Limit: 1, Target: "not a target"},
			wantField: "target",
		},
		{
			name:      "bad collection",
			req:       sampleRequest{ID: "backup-x", Limit: 1, Collections: []string{"users", "a/b"}},
			wantField: "collections[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error on %s", tt.wantField)
			}
			if got := err.Errors()[0].Field(); got != tt.wantField {
				t.Errorf("field = %q, want %q", got, tt.wantField)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&sampleRequest{Limit: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}
	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %s", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "id is required") {
		t.Errorf("message = %s", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected fields detail for multiple errors")
	}
}

func TestIsBackupID(t *testing.T) {
	t.Parallel()

	valid := []string{"backup-2026-01-02T03-04-05-678Z-1a2b3c4d", "backup-a"}
	invalid := []string{"", "backup-", "restore-1", "backup-a/b", "backup-a.json", "../backup-a"}

	for _, s := range valid {
		if !IsBackupID(s) {
			t.Errorf("IsBackupID(%q) = false", s)
		}
	}
	for _, s := range invalid {
		if IsBackupID(s) {
			t.Errorf("IsBackupID(%q) = true", s)
		}
	}
}
