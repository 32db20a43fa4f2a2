// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"time"
)

// LockoutPolicy decides when repeated failures lock an account.
type LockoutPolicy struct {
	// MaxAttempts is the failure count at which the account locks.
	MaxAttempts int

	// Duration is how long a lock lasts from the failure that triggered it.
	Duration time.Duration
}

// LockoutState summarises an account's lock status at a point in time.
type LockoutState struct {
	Locked    bool
	Remaining time.Duration
}

// Check evaluates the lock state at now.
func (p LockoutPolicy) Check(lockedUntil *time.Time, now time.Time) LockoutState {
	var state LockoutState
	if IsLockedOut(lockedUntil, now) {
		state.Locked = true
		state.Remaining = lockedUntil.Sub(now)
	}
	return state
}

// ShouldLock reports whether the failure count reaches the threshold.
// Every failure at or beyond the threshold re-arms the lock.
func (p LockoutPolicy) ShouldLock(attempts int) bool {
	return attempts >= p.MaxAttempts
}

// LockUntil returns the lock expiry for a failure observed at now.
func (p LockoutPolicy) LockUntil(now time.Time) time.Time {
	return now.Add(p.Duration)
}

// IsLockedOut returns true if the lockout time is after now.
func IsLockedOut(lockedUntil *time.Time, now time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(now)
}

// ApplySuccess resets the counter and lock and stamps the login time.
func ApplySuccess(a *Account, now time.Time) {
	a.LoginAttempts = 0
	a.LockedUntil = nil
	a.LastLogin = &now
	a.UpdatedAt = now
}
