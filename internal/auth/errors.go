// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"errors"
	"time"

	"github.com/samber/oops"
)

// Sentinel errors. Every error returned by this package wraps exactly one of
// these (or a storage error), so callers classify with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist or is
	// not owned by the caller.
	ErrNotFound = errors.New("not found")

	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrInvalidToken       = errors.New("invalid token")

	// ErrSessionInactive is returned when a session is unknown, invalidated or expired.
	ErrSessionInactive = errors.New("session is not active")
)

// Error codes attached to the sentinel errors.
const (
	CodeValidation         = "AUTH_VALIDATION_FAILED"
	CodeDuplicateEmail     = "AUTH_DUPLICATE_EMAIL"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountLocked      = "AUTH_ACCOUNT_LOCKED"
	CodeInvalidToken       = "AUTH_INVALID_TOKEN"
	CodeSessionInactive    = "AUTH_SESSION_INACTIVE"
)

// lockedUntilKey is the oops context key carrying the lock expiry.
const lockedUntilKey = "locked_until"

func validationError(field, format string, args ...any) error {
	return oops.Code(CodeValidation).
		With("field", field).
		Wrapf(ErrValidation, format, args...)
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

func invalidToken(reason string) error {
	return oops.Code(CodeInvalidToken).With("reason", reason).Wrap(ErrInvalidToken)
}

func accountLocked(until time.Time) error {
	return oops.Code(CodeAccountLocked).
		With(lockedUntilKey, until).
		Wrap(ErrAccountLocked)
}

// LockedUntil extracts the lock expiry from an AccountLocked error.
func LockedUntil(err error) (time.Time, bool) {
	if !errors.Is(err, ErrAccountLocked) {
		return time.Time{}, false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return time.Time{}, false
	}
	until, ok := oopsErr.Context()[lockedUntilKey].(time.Time)
	return until, ok
}
