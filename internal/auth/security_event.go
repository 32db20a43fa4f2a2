// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType tags a security event.
type EventType string

// Detector findings.
const (
	EventMultipleDevices EventType = "multiple_devices_detected"
	EventIPAddressChange EventType = "ip_address_change"
)

// Lifecycle events.
const (
	EventLoginSucceeded         EventType = "login_succeeded"
	EventLoginFailed            EventType = "login_failed"
	EventAccountLocked          EventType = "account_locked"
	EventSessionEvicted         EventType = "session_evicted"
	EventSessionExpired         EventType = "session_expired"
	EventLogout                 EventType = "logout"
	EventLogoutAll              EventType = "logout_all"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordResetCompleted EventType = "password_reset_completed"
)

// Severity ranks a security event.
type Severity string

// Severities, lowest first.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AtLeast reports whether s ranks at or above other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

func (s Severity) rank() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// SecurityEvent is an append-only audit record.
type SecurityEvent struct {
	ID                ulid.ULID
	AccountID         ulid.ULID
	EventType         EventType
	SessionID         *ulid.ULID
	IPAddress         string
	DeviceFingerprint string
	Details           map[string]any
	Severity          Severity
	CreatedAt         time.Time
}

// SecurityEventRepository manages security event persistence.
type SecurityEventRepository interface {
	// Append stores a new event.
	Append(ctx context.Context, event *SecurityEvent) error

	// ListByAccount returns the newest events first, at most limit of them.
	ListByAccount(ctx context.Context, accountID ulid.ULID, limit int) ([]*SecurityEvent, error)

	// DeleteByAccount removes every event of the account. Only account
	// removal calls it.
	DeleteByAccount(ctx context.Context, accountID ulid.ULID) error
}
