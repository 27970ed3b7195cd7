// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/juju/clock/testclock"

	"github.com/MreRes/blackboxai-1745461143148/internal/activity"
	"github.com/MreRes/blackboxai-1745461143148/internal/backup"
	"github.com/MreRes/blackboxai-1745461143148/internal/middleware"
	"github.com/MreRes/blackboxai-1745461143148/internal/models"
	"github.com/MreRes/blackboxai-1745461143148/internal/schedule"
	"github.com/MreRes/blackboxai-1745461143148/internal/store"
	"github.com/MreRes/blackboxai-1745461143148/internal/store/storetest"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	t        *testing.T
	dir      string
	clock    *testclock.Clock
	store    *store.MemoryStore
	engine   *backup.Engine
	schedule *schedule.Store
	activity *activity.Log
	router   http.Handler
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()

	dir := t.TempDir()
	clk := testclock.NewClock(baseTime)
	st := store.NewMemoryStore()
	act := activity.New(filepath.Join(dir, "logs"), activity.WithClock(clk))

	bcfg := backup.DefaultConfig()
	bcfg.Dir = filepath.Join(dir, "backups")
	bcfg.MaxUploadBytes = 64 << 10
	engine, err := backup.New(st, bcfg, backup.WithClock(clk), backup.WithActivity(act))
	if err != nil {
		t.Fatalf("backup.New failed: %v", err)
	}
	sched, err := schedule.NewStore(schedule.DefaultConfig(), schedule.WithClock(clk), schedule.WithActivity(act))
	if err != nil {
		t.Fatalf("schedule.NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	h := NewHandler(engine, sched, nil, act, cfg)
	return &testServer{
		t:        t,
		dir:      dir,
		clock:    clk,
		store:    st,
		engine:   engine,
		schedule: sched,
		activity: act,
		router:   NewRouter(h),
	}
}

func (s *testServer) seed() {
	s.t.Helper()
	storetest.Seed(s.t, s.store, map[string][]store.Document{
		"users":        {storetest.Doc("_id", `"u1"`, "name", `"Ana"`)},
		"transactions": {storetest.Doc("_id", `"t1"`, "amount", `12.5`), storetest.Doc("_id", `"t2"`, "amount", `-3`)},
		"budgets":      {storetest.Doc("_id", `"b1"`, "limit", `500`)},
	})
}

// do sends a request as actor "alice" and returns the recorder.
func (s *testServer) do(method, target string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(middleware.HeaderActor, "alice")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(method, target string, v interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		s.t.Fatalf("marshal: %v", err)
	}
	return s.do(method, target, bytes.NewReader(data), "Content-Type", "application/json")
}

func (s *testServer) createBackup() *backup.Record {
	s.t.Helper()
	rec := s.doJSON(http.MethodPost, "/api/backup/create", CreateBackupRequest{Description: "test"})
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	var out backup.Record
	decodeData(s.t, rec, &out)
	return &out
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v; body %s", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) envelope {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if env.Status != models.StatusSuccess {
		t.Fatalf("status = %q, error = %+v", env.Status, env.Error)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v; data %s", err, env.Data)
	}
	return env
}

// assertError checks status code and error code of an error response.
func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, status, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Status != models.StatusError || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	if env.Error.Code != code {
		t.Errorf("error code = %q, want %q (message %q)", env.Error.Code, code, env.Error.Message)
	}
	return env
}
