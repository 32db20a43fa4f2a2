// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session is a bounded-lifetime login, identified independently of any token.
type Session struct {
	ID                ulid.ULID
	AccountID         ulid.ULID
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
	DeviceInfo        DeviceInfo
	IsActive          bool
	Suspicious        bool
	LocationCountry   string
	LocationCity      string
	LastActivity      time.Time
	ExpiresAt         time.Time
	CreatedAt         time.Time
}

// NewSession creates a validated, active Session starting at now.
// ExpiresAt is always now + duration.
func NewSession(accountID ulid.ULID, device DeviceInfo, ipAddress string, now time.Time, duration time.Duration) (*Session, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if device.Fingerprint == "" {
		return nil, oops.Code("SESSION_INVALID_DEVICE").Errorf("device fingerprint cannot be empty")
	}
	if duration <= 0 {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("session duration must be positive")
	}

	return &Session{
		ID:                ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()),
		AccountID:         accountID,
		DeviceFingerprint: device.Fingerprint,
		IPAddress:         ipAddress,
		UserAgent:         device.UserAgent,
		DeviceInfo:        device,
		IsActive:          true,
		LastActivity:      now,
		ExpiresAt:         now.Add(duration),
		CreatedAt:         now,
	}, nil
}

// IsExpiredAt reports whether the session has passed its expiry at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// IsLiveAt reports whether the session is both flagged active and unexpired at t.
func (s *Session) IsLiveAt(t time.Time) bool {
	return s.IsActive && !s.IsExpiredAt(t)
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByID returns the session regardless of its active flag.
	// Returns ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id ulid.ULID) (*Session, error)

	// ListActive returns sessions flagged active whose expiry is after now,
	// ordered by creation time ascending, then by ID.
	ListActive(ctx context.Context, accountID ulid.ULID, now time.Time) ([]*Session, error)

	// Touch sets last_activity on an active session.
	Touch(ctx context.Context, id ulid.ULID, at time.Time) error

	// Deactivate clears the active flag. It reports whether this call changed
	// the flag; deactivating an inactive or unknown session returns false, nil.
	Deactivate(ctx context.Context, id ulid.ULID) (bool, error)

	// DeactivateAll clears the active flag on every active session of the
	// account and returns how many rows changed.
	DeactivateAll(ctx context.Context, accountID ulid.ULID) (int64, error)

	// DeleteByAccount removes every session of the account.
	DeleteByAccount(ctx context.Context, accountID ulid.ULID) error
}
