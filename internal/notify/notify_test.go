// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target  string
		want    TargetKind
		wantErr bool
	}{
		{"", TargetNone, false},
		{"   ", TargetNone, false},
		{"ops@example.com", TargetEmail, false},
		{"https://hooks.example.com/backup", TargetWebhook, false},
		{"http://10.0.0.5:8080/notify", TargetWebhook, false},
		{"https://", TargetNone, true},
		{"ftp://example.com", TargetNone, true},
		{"not an address", TargetNone, true},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.target)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTarget(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTarget(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}
}

func TestWebhookDelivers(t *testing.T) {
	t.Parallel()

	type delivery struct {
		header string
		event  Event
	}
	received := make(chan delivery, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var d delivery
		d.header = r.Header.Get("X-FinTrack-Event")
		if err := json.NewDecoder(r.Body).Decode(&d.event); err != nil {
			t.Errorf("decode body: %v", err)
		}
		received <- d
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(Config{}, WithHTTPClient(srv.Client()))
	ev := Event{
		Kind:     EventBackupSucceeded,
		Time:     time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC),
		BackupID: "backup-2026-03-01T02-00-00-000Z-0a1b2c3d",
		Size:     2048,
	}
	if err := w.Notify(context.Background(), srv.URL+"/hook", ev); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	d := <-received
	if d.header != string(EventBackupSucceeded) {
		t.Errorf("event header = %q", d.header)
	}
	if got := d.event; got.BackupID != ev.BackupID || !got.Time.Equal(ev.Time) || got.Size != 2048 {
		t.Errorf("received %+v, want %+v", d.event, ev)
	}
}

func TestWebhookNonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(Config{}, WithHTTPClient(srv.Client()))
	if err := w.Notify(context.Background(), srv.URL, Event{Kind: EventBackupFailed}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestWebhookBreakerOpens(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(Config{BreakerFailures: 2, BreakerTimeout: time.Hour, RatePerMinute: 600, Burst: 10},
		WithHTTPClient(srv.Client()))

	for i := 0; i < 2; i++ {
		if err := w.Notify(context.Background(), srv.URL, Event{Kind: EventBackupFailed}); err == nil {
			t.Fatalf("delivery %d unexpectedly succeeded", i)
		}
	}
	if w.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %s, want open", w.State())
	}

	err := w.Notify(context.Background(), srv.URL, Event{Kind: EventBackupFailed})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("endpoint hit %d times, want 2", hits.Load())
	}
}

func TestWebhookRateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(Config{RatePerMinute: 1, Burst: 1}, WithHTTPClient(srv.Client()))
	if err := w.Notify(context.Background(), srv.URL, Event{Kind: EventBackupSucceeded}); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := w.Notify(context.Background(), srv.URL, Event{Kind: EventBackupSucceeded}); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestNotifyEmailAndEmptyTargets(t *testing.T) {
	t.Parallel()

	w := NewWebhook(DefaultConfig())
	if err := w.Notify(context.Background(), "", Event{Kind: EventBackupSucceeded}); err != nil {
		t.Errorf("empty target: %v", err)
	}
	if err := w.Notify(context.Background(), "ops@example.com", Event{Kind: EventBackupSucceeded}); err != nil {
		t.Errorf("email target: %v", err)
	}
	if err := w.Notify(context.Background(), "nonsense", Event{}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}
}
