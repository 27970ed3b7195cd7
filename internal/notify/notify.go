// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

/*
notify.go - Scheduled Backup Notifications

The scheduler reports the outcome of each run to the target configured in the
schedule's notification block. A target is either an http(s) URL, which
receives the event as a JSON POST, or an e-mail address.

Webhook deliveries go through a token-bucket limiter and a circuit breaker so
a dead endpoint cannot slow the scheduler down:

  - the limiter drops deliveries beyond Config.RatePerMinute
  - the breaker opens after Config.BreakerFailures consecutive failures and
    rejects deliveries until Config.BreakerTimeout has passed

There is no mail transport in this service. E-mail targets are accepted by
the schedule so the setting survives, and each delivery to one is logged and
counted as skipped.
*/

//nolint:staticcheck // File documentation, not package doc
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/MreRes/blackboxai-1745461143148/internal/logging"
	"github.com/MreRes/blackboxai-1745461143148/internal/metrics"
	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

// EventKind names a notification event.
type EventKind string

const (
	EventBackupSucceeded EventKind = "backup.succeeded"
	EventBackupFailed    EventKind = "backup.failed"
)

// Event is the body of a notification.
type Event struct {
	Kind           EventKind `json:"event"`
	Time           time.Time `json:"timestamp"`
	BackupID       string    `json:"backupId,omitempty"`
	Type           string    `json:"type,omitempty"`
	DocumentsCount int64     `json:"documentsCount,omitempty"`
	Size           int64     `json:"size,omitempty"`
	Pruned         int       `json:"pruned,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Notifier delivers events to a target.
type Notifier interface {
	Notify(ctx context.Context, target string, ev Event) error
}

// TargetKind classifies a notification target.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetWebhook
	TargetEmail
)

// Errors returned by Notify.
var (
	ErrInvalidTarget = errors.New("notification target must be an e-mail address or an http(s) URL")
	ErrRateLimited   = errors.New("notification rate limit exceeded")
	ErrBreakerOpen   = errors.New("notification endpoint unavailable")
)

// ParseTarget classifies target. An empty target is TargetNone.
func ParseTarget(target string) (TargetKind, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return TargetNone, nil
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		u, err := url.Parse(target)
		if err != nil || u.Host == "" {
			return TargetNone, ErrInvalidTarget
		}
		return TargetWebhook, nil
	}
	if err := validation.GetValidator().Var(target, "email"); err == nil {
		return TargetEmail, nil
	}
	return TargetNone, ErrInvalidTarget
}

// Config holds webhook delivery settings.
type Config struct {
	Timeout         time.Duration `koanf:"timeout"`
	RatePerMinute   int           `koanf:"rate_per_minute"`
	Burst           int           `koanf:"burst"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
	UserAgent       string        `koanf:"user_agent"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		RatePerMinute:   30,
		Burst:           5,
		BreakerFailures: 5,
		BreakerTimeout:  time.Minute,
		UserAgent:       "FinTrack-Backup/1.0",
	}
}

const breakerName = "backup-webhook"

// Webhook is the production Notifier.
type Webhook struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[struct{}]
}

// Option configures a Webhook.
type Option func(*Webhook)

// WithHTTPClient replaces the HTTP client. Its timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Webhook) { w.client = c }
}

// NewWebhook creates a Webhook notifier.
func NewWebhook(cfg Config, opts ...Option) *Webhook {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = def.RatePerMinute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	w := &Webhook{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.Burst),
	}
	for _, opt := range opts {
		opt(w)
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	failures := cfg.BreakerFailures
	w.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Notification circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
	return w
}

// Notify delivers ev to target. An empty target is a no-op.
func (w *Webhook) Notify(ctx context.Context, target string, ev Event) error {
	kind, err := ParseTarget(target)
	if err != nil {
		return err
	}

	switch kind {
	case TargetNone:
		return nil
	case TargetEmail:
		metrics.NotificationsSent.WithLabelValues("email", "skipped").Inc()
		logging.Ctx(ctx).Info().
			Str("target", target).
			Str("event", string(ev.Kind)).
			Msg("E-mail notification skipped: no mail transport configured")
		return nil
	}

	if !w.limiter.Allow() {
		metrics.NotificationsSent.WithLabelValues("webhook", "rate_limited").Inc()
		return ErrRateLimited
	}

	_, err = w.cb.Execute(func() (struct{}, error) {
		return struct{}{}, w.post(ctx, target, ev)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.NotificationsSent.WithLabelValues("webhook", "breaker_open").Inc()
		return fmt.Errorf("%w: %v", ErrBreakerOpen, err)
	case err != nil:
		metrics.NotificationsSent.WithLabelValues("webhook", "failed").Inc()
		return err
	}
	metrics.NotificationsSent.WithLabelValues("webhook", "sent").Inc()
	return nil
}

func (w *Webhook) post(ctx context.Context, target string, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", w.cfg.UserAgent)
	req.Header.Set("X-FinTrack-Event", string(ev.Kind))
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification endpoint returned %s", resp.Status)
	}
	return nil
}

// State reports the breaker state, for status endpoints and tests.
func (w *Webhook) State() gobreaker.State {
	return w.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, string, Event) error { return nil }
