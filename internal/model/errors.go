// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"errors"
	"fmt"
)

// Class groups error kinds into the three families surfaced to callers.
type Class string

const (
	ClassInput   Class = "input"
	ClassAuth    Class = "auth"
	ClassStorage Class = "storage"
)

// Kind identifies a structured failure. Every failure that crosses a
// component boundary carries exactly one Kind.
type Kind int

const (
	KindStorage Kind = iota
	KindInsufficientData
	KindNoBaseline
	KindMissingBaselineFile
	KindInvalidSnapshotRef
	KindInvalidSnapshot
	KindInvalidCategory
	KindInvalidTTL
	KindPinLength
	KindNotInitialized
	KindInvalidPin
	KindNoActiveSession
	KindTokenExpired
	KindInvalidToken
	KindActionFailed
	KindUnsupported
)

var kindNames = map[Kind]string{
	KindStorage:             "storage",
	KindInsufficientData:    "insufficient_data",
	KindNoBaseline:          "no_baseline",
	KindMissingBaselineFile: "missing_baseline_file",
	KindInvalidSnapshotRef:  "invalid_snapshot_ref",
	KindInvalidSnapshot:     "invalid_snapshot",
	KindInvalidCategory:     "invalid_category",
	KindInvalidTTL:          "invalid_ttl",
	KindPinLength:           "pin_length",
	KindNotInitialized:      "not_initialized",
	KindInvalidPin:          "invalid_pin",
	KindNoActiveSession:     "no_active_session",
	KindTokenExpired:        "token_expired",
	KindInvalidToken:        "invalid_token",
	KindActionFailed:        "action_failed",
	KindUnsupported:         "unsupported",
}

// String returns the stable snake_case label used in JSON output and
// message catalogs.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Class reports which error family the kind belongs to.
func (k Kind) Class() Class {
	switch k {
	case KindStorage:
		return ClassStorage
	case KindPinLength, KindNotInitialized, KindInvalidPin,
		KindNoActiveSession, KindTokenExpired, KindInvalidToken:
		return ClassAuth
	default:
		return ClassInput
	}
}

// MarshalText lets Kind render as its label inside JSON documents.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Error is the structured failure returned by every core component.
type Error struct {
	Kind    Kind
	Message string
	// Details carries optional machine-readable context (e.g. snapshots_found).
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps an underlying I/O failure.
func StorageError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf(format, args...), Err: err}
}

// With attaches a detail value and returns the receiver.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// AsError extracts an *Error from err. Unstructured errors are reported as
// storage failures so that callers never see a bare error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindStorage, Message: err.Error(), Err: err}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
