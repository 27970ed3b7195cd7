// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/backup"
	"github.com/MreRes/blackboxai-1745461143148/internal/schedule"
)

func TestSchedule_GetAndUpdate(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{})

	var cfg schedule.Config
	decodeData(t, s.do(http.MethodGet, "/api/backup/schedule", nil), &cfg)
	if cfg.Interval != "24h" || !cfg.Enabled {
		t.Errorf("default schedule = %+v", cfg)
	}

	resp := s.do(http.MethodPost, "/api/backup/schedule", strings.NewReader(
		`{"interval":"7d","retention":{"count":3},"notification":{"target":"https://hooks.example.com/b"}}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", resp.Code, resp.Body.String())
	}
	cfg = schedule.Config{}
	decodeData(t, resp, &cfg)
	if cfg.Interval != "7d" || cfg.Retention.Count != 3 || cfg.Retention.Days != 30 {
		t.Errorf("stored schedule = %+v", cfg)
	}
	if cfg.UpdatedBy != "alice" || cfg.UpdatedAt == nil {
		t.Errorf("UpdatedBy/UpdatedAt = %q/%v", cfg.UpdatedBy, cfg.UpdatedAt)
	}
	if got := s.schedule.Get(); got.Interval != "7d" {
		t.Errorf("store interval = %q", got.Interval)
	}
}

func TestSchedule_UpdateRejected(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{})

	tests := []struct {
		name string
		body string
	}{
		{"interval too short", `{"interval":"10m"}`},
		{"interval too long", `{"interval":"45d"}`},
		{"retention count", `{"retention":{"count":0}}`},
		{"bad target", `{"notification":{"target":"not-a-target"}}`},
		{"malformed", `{"interval":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(http.MethodPost, "/api/backup/schedule", strings.NewReader(tt.body))
			assertError(t, resp, http.StatusBadRequest, codeValidation)
		})
	}
	if got := s.schedule.Get(); got.Interval != "24h" {
		t.Errorf("rejected updates changed the schedule: %+v", got)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{})
	s.seed()
	s.createBackup()

	var st StatsResponse
	decodeData(t, s.do(http.MethodGet, "/api/backup/stats", nil), &st)
	if st.Database.Documents != 4 {
		t.Errorf("Database.Documents = %d, want 4", st.Database.Documents)
	}
	if st.Backups.Count != 1 || st.Backups.CountByType[backup.TypeManual] != 1 {
		t.Errorf("Backups = %+v", st.Backups)
	}
	if !st.Schedule.Enabled || st.Schedule.Interval != "24h" {
		t.Errorf("Schedule = %+v", st.Schedule)
	}
}

func TestCleanBackups(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{})
	for i := 0; i < 4; i++ {
		s.createBackup()
		s.clock.Advance(time.Minute)
	}

	resp := s.doJSON(http.MethodPost, "/api/backup/clean", map[string]interface{}{"keep": 1})
	assertError(t, resp, http.StatusBadRequest, codeRetentionGuard)
	var items []backup.Record
	decodeData(t, s.do(http.MethodGet, "/api/backup/list", nil), &items)
	if len(items) != 4 {
		t.Fatalf("guarded clean deleted backups: %d left", len(items))
	}

	resp = s.doJSON(http.MethodPost, "/api/backup/clean", map[string]interface{}{"keep": 1, "force": true})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", resp.Code, resp.Body.String())
	}
	var res backup.CleanResult
	decodeData(t, resp, &res)
	if res.DeletedCount != 3 || res.RemainingCount != 1 {
		t.Errorf("result = %+v, want 3 deleted, 1 remaining", res)
	}
}

func TestCleanBackups_OlderThan(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{})
	s.createBackup()
	s.clock.Advance(10 * 24 * time.Hour)
	s.createBackup()

	resp := s.doJSON(http.MethodPost, "/api/backup/clean", CleanRequest{OlderThan: "7d"})
	var res backup.CleanResult
	decodeData(t, resp, &res)
	if res.DeletedCount != 1 || res.RemainingCount != 1 {
		t.Errorf("result = %+v, want 1 deleted, 1 remaining", res)
	}

	for _, bad := range []string{"soon", "-3d", "0d", "-1h", "213515d"} {
		resp := s.doJSON(http.MethodPost, "/api/backup/clean", CleanRequest{OlderThan: bad})
		assertError(t, resp, http.StatusBadRequest, codeValidation)
	}
}

func TestParseAge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"36h", 36 * time.Hour},
		{" 1d ", 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := parseAge(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseAge(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}

	for _, in := range []string{"213515d", "106752d", "0d", "-3h", "soon"} {
		if d, err := parseAge(in); err == nil {
			t.Errorf("parseAge(%q) = %v, want error", in, d)
		}
	}
}

func TestActivity(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{})
	created := s.createBackup()
	s.clock.Advance(time.Minute)
	s.do(http.MethodGet, "/api/backup/download/"+created.ID, nil)

	var entries []activity.Entry
	decodeData(t, s.do(http.MethodGet, "/api/backup/activity", nil), &entries)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2: %+v", len(entries), entries)
	}
	if entries[0].EventType != activity.EventCreate || entries[1].EventType != activity.EventDownload {
		t.Errorf("event order = %s, %s", entries[0].EventType, entries[1].EventType)
	}
	if entries[1].Actor != "alice" {
		t.Errorf("download actor = %q", entries[1].Actor)
	}

	entries = nil
	decodeData(t, s.do(http.MethodGet, "/api/backup/activity?type=download", nil), &entries)
	if len(entries) != 1 {
		t.Errorf("filtered len = %d, want 1", len(entries))
	}

	since := baseTime.Add(30 * time.Second).Format(time.RFC3339)
	entries = nil
	decodeData(t, s.do(http.MethodGet, "/api/backup/activity?since="+since, nil), &entries)
	if len(entries) != 1 {
		t.Errorf("since len = %d, want 1", len(entries))
	}

	for _, target := range []string{
		"/api/backup/activity?type=explode",
		"/api/backup/activity?since=yesterday",
		"/api/backup/activity?limit=5000",
	} {
		assertError(t, s.do(http.MethodGet, target, nil), http.StatusBadRequest, codeValidation)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{})

	resp := s.do(http.MethodGet, "/healthz", nil)
	var body map[string]interface{}
	decodeData(t, resp, &body)
	if body["status"] != "ok" || body["restoring"] != false {
		t.Errorf("health = %v", body)
	}
	if resp.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	resp = s.do(http.MethodGet, "/metrics", nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "backup_") {
		t.Errorf("metrics status = %d", resp.Code)
	}

	assertError(t, s.do(http.MethodGet, "/nowhere", nil), http.StatusNotFound, codeNotFound)
	assertError(t, s.do(http.MethodPut, "/api/backup/create", nil), http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{RateLimit: 2, RateLimitWindow: time.Hour})

	for i := 0; i < 2; i++ {
		if resp := s.do(http.MethodGet, "/api/backup/list", nil); resp.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, resp.Code)
		}
	}
	assertError(t, s.do(http.MethodGet, "/api/backup/list", nil), http.StatusTooManyRequests, codeRateLimited)

	if resp := s.do(http.MethodGet, "/healthz", nil); resp.Code != http.StatusOK {
		t.Errorf("healthz should not be rate limited, got %d", resp.Code)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{CORSOrigins: []string{"https://app.fintrack.example"}})

	resp := s.do(http.MethodOptions, "/api/backup/list", nil,
		"Origin", "https://app.fintrack.example",
		"Access-Control-Request-Method", http.MethodGet)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://app.fintrack.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestStatusForKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&backup.Error{Kind: backup.KindValidation}, http.StatusBadRequest, codeValidation},
		{&backup.Error{Kind: backup.KindNotFound}, http.StatusNotFound, codeNotFound},
		{&backup.Error{Kind: backup.KindIntegrity}, http.StatusUnprocessableEntity, codeIntegrity},
		{&backup.Error{Kind: backup.KindConcurrency}, http.StatusConflict, codeConcurrency},
		{&backup.Error{Kind: backup.KindRetentionGuard}, http.StatusBadRequest, codeRetentionGuard},
		{&backup.Error{Kind: backup.KindInfrastructure}, http.StatusInternalServerError, codeInternal},
		{errors.New("disk on fire"), http.StatusInternalServerError, codeInternal},
		{fmt.Errorf("wrapped: %w", &backup.Error{Kind: backup.KindConcurrency}), http.StatusConflict, codeConcurrency},
	}
	for _, tt := range tests {
		status, code := statusForKind(backup.KindOf(tt.err))
		if status != tt.status || code != tt.code {
			t.Errorf("%v: got %d/%s, want %d/%s", tt.err, status, code, tt.status, tt.code)
		}
	}
}

func TestBackupIDParam(t *testing.T) {
	t.Parallel()

	if got := backupIDParam("backup-x.json"); got != "backup-x" {
		t.Errorf("backupIDParam = %q", got)
	}
	if got := backupIDParam("backup-x"); got != "backup-x" {
		t.Errorf("backupIDParam = %q", got)
	}
}
