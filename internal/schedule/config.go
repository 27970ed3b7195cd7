// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package schedule

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/MreRes/blackboxai-1745461143148/internal/notify"
	"github.com/MreRes/blackboxai-1745461143148/internal/validation"
)

// Interval bounds.
const (
	MinInterval = time.Hour
	MaxInterval = 30 * 24 * time.Hour
)

// ErrInvalid marks a rejected schedule update.
var ErrInvalid = errors.New("invalid schedule")

// Retention bounds scheduled backups.
type Retention struct {
	// Count is how many scheduled backups to keep.
	Count int `json:"count" koanf:"count" validate:"gte=1,lte=1000"`
	// Days is how long scheduled backups are kept.
	Days int `json:"days" koanf:"days" validate:"gte=1,lte=3650"`
}

// Notification selects which run outcomes are reported and where.
type Notification struct {
	OnSuccess bool   `json:"success" koanf:"success"`
	OnFailure bool   `json:"failure" koanf:"failure"`
	Target    string `json:"target,omitempty" koanf:"target" validate:"max=500"`
}

// Config is the backup schedule.
type Config struct {
	Enabled      bool         `json:"enabled" koanf:"enabled"`
	Interval     string       `json:"interval" koanf:"interval" validate:"required"`
	Retention    Retention    `json:"retention" koanf:"retention"`
	Notification Notification `json:"notification" koanf:"notification"`
	UpdatedBy    string       `json:"updatedBy,omitempty" koanf:"-"`
	UpdatedAt    *time.Time   `json:"updatedAt,omitempty" koanf:"-"`
}

// DefaultConfig is the schedule a fresh process starts with.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Interval:     "24h",
		Retention:    Retention{Count: 10, Days: 30},
		Notification: Notification{OnSuccess: true, OnFailure: true},
	}
}

// ParseInterval accepts a Go duration ("12h", "90m") or a whole number of
// days ("7d"). The result must lie within MinInterval and MaxInterval.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("interval is required")
	}

	var d time.Duration
	if strings.HasSuffix(s, "d") {
		var err error
		if d, err = ParseDays(s); err != nil {
			return 0, fmt.Errorf("invalid interval %q", s)
		}
	} else {
		var err error
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid interval %q", s)
		}
	}

	if d < MinInterval {
		return 0, fmt.Errorf("interval %s is shorter than %s", s, MinInterval)
	}
	if d > MaxInterval {
		return 0, fmt.Errorf("interval %s is longer than 30 days", s)
	}
	return d, nil
}

// maxDays is the largest day count a time.Duration can hold.
const maxDays = int64(math.MaxInt64 / (24 * time.Hour))

// ParseDays parses a positive whole number of days written as "<n>d".
func ParseDays(s string) (time.Duration, error) {
	days, ok := strings.CutSuffix(strings.TrimSpace(s), "d")
	if !ok {
		return 0, fmt.Errorf("%q is not a day count", s)
	}
	n, err := strconv.ParseInt(days, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%q is not a positive day count", s)
	}
	if n > maxDays {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return time.Duration(n) * 24 * time.Hour, nil
}

// IntervalDuration returns the parsed interval. Call it on validated configs
// only; an invalid interval yields MaxInterval.
func (c Config) IntervalDuration() time.Duration {
	d, err := ParseInterval(c.Interval)
	if err != nil {
		return MaxInterval
	}
	return d
}

// MaxAge returns Retention.Days as a duration.
func (c Config) MaxAge() time.Duration {
	return time.Duration(c.Retention.Days) * 24 * time.Hour
}

// Validate checks c. Failures wrap ErrInvalid.
func (c Config) Validate() error {
	if verr := validation.ValidateStruct(&c); verr != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, verr.Error())
	}
	if _, err := ParseInterval(c.Interval); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := notify.ParseTarget(c.Notification.Target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
