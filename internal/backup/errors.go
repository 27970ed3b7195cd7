// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies engine errors.
type Kind uint8

const (
	// KindValidation is bad caller input. Shown to the caller verbatim.
	KindValidation Kind = iota + 1
	// KindNotFound means the referenced backup or one of its files is absent.
	KindNotFound
	// KindIntegrity is a checksum mismatch or a structurally broken payload.
	KindIntegrity
	// KindConcurrency means a restore is already running.
	KindConcurrency
	// KindRetentionGuard is a deletion of a too-recent backup without force.
	KindRetentionGuard
	// KindInfrastructure is a filesystem or store failure. Callers see a
	// generic message and a reference id.
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindIntegrity:
		return "integrity"
	case KindConcurrency:
		return "concurrency"
	case KindRetentionGuard:
		return "retention_guard"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Error is the error type returned by the Engine.
type Error struct {
	Kind Kind
	// Op is the engine operation, e.g. "restore".
	Op string
	// BackupID is the backup the error refers to, if any.
	BackupID string
	// Collection names the offending collection for integrity errors.
	Collection string
	// Reference is an id an operator can follow up on, e.g. the safety
	// backup taken before a failed restore.
	Reference string
	// Msg is the caller-facing description.
	Msg string
	// Err is the underlying cause.
	Err error
}

// Sentinels for errors.Is. Only Kind is compared.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrIntegrity      = &Error{Kind: KindIntegrity}
	ErrConcurrency    = &Error{Kind: KindConcurrency}
	ErrRetentionGuard = &Error{Kind: KindRetentionGuard}
	ErrInfrastructure = &Error{Kind: KindInfrastructure}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.BackupID != "" {
		b.WriteString(" [backup ")
		b.WriteString(e.BackupID)
		b.WriteString("]")
	}
	if e.Collection != "" {
		b.WriteString(" [collection ")
		b.WriteString(e.Collection)
		b.WriteString("]")
	}
	if e.Reference != "" {
		b.WriteString(" [reference ")
		b.WriteString(e.Reference)
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Msg == "" && t.Err == nil && t.BackupID == "" {
		return t.Kind == e.Kind
	}
	return e == t
}

// KindOf returns the kind of err. Errors that are not *Error count as
// infrastructure failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

// PublicMessage returns the text that may be shown to a caller. Caller-input
// kinds are returned verbatim; infrastructure failures are reduced to a
// generic message plus the reference id when one exists.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInfrastructure {
		msg := "internal backup failure"
		if e != nil && e.Reference != "" {
			msg += "; reference " + e.Reference
		}
		return msg
	}

	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Collection != "" {
		msg += " (collection " + e.Collection + ")"
	}
	if e.Reference != "" {
		msg += "; reference " + e.Reference
	}
	return msg
}

func validationErr(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func notFoundErr(op, id, msg string) *Error {
	return &Error{Kind: KindNotFound, Op: op, BackupID: id, Msg: msg}
}

func integrityErr(op, id, msg string) *Error {
	return &Error{Kind: KindIntegrity, Op: op, BackupID: id, Msg: msg}
}

func infraErr(op, id, msg string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Op: op, BackupID: id, Msg: msg, Err: err}
}

// asEngineError returns err unchanged when it already is an *Error, and wraps
// it as an infrastructure failure otherwise.
func asEngineError(op, id string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return infraErr(op, id, "unexpected failure", err)
}
