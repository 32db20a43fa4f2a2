// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// EventLog appends security events and mirrors them to logs and metrics.
type EventLog struct {
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time
}

// NewEventLog creates an EventLog.
func NewEventLog(opts ...Option) *EventLog {
	o := buildOptions(opts)
	return &EventLog{logger: o.logger, metrics: o.metrics, now: o.now}
}

// EventInput describes an event to record. Zero Severity means low.
type EventInput struct {
	AccountID         ulid.ULID
	EventType         EventType
	SessionID         *ulid.ULID
	IPAddress         string
	DeviceFingerprint string
	Details           map[string]any
	Severity          Severity
}

// Record builds and appends an event through repo.
func (l *EventLog) Record(ctx context.Context, repo SecurityEventRepository, in EventInput) (*SecurityEvent, error) {
	if in.Severity == "" {
		in.Severity = SeverityLow
	}
	if !in.Severity.Valid() {
		return nil, validationError("severity", "unknown severity %q", in.Severity)
	}
	event := &SecurityEvent{
		ID:                ulid.Make(),
		AccountID:         in.AccountID,
		EventType:         in.EventType,
		SessionID:         in.SessionID,
		IPAddress:         in.IPAddress,
		DeviceFingerprint: in.DeviceFingerprint,
		Details:           in.Details,
		Severity:          in.Severity,
		CreatedAt:         l.now(),
	}
	if err := l.Append(ctx, repo, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Append stores an already-built event.
func (l *EventLog) Append(ctx context.Context, repo SecurityEventRepository, event *SecurityEvent) error {
	if err := repo.Append(ctx, event); err != nil {
		return oops.Code("SECURITY_EVENT_APPEND_FAILED").
			With("event_type", string(event.EventType)).
			With("account_id", event.AccountID.String()).
			Wrap(err)
	}

	l.metrics.SecurityEvent(event.EventType, event.Severity)

	attrs := []any{
		"event_type", string(event.EventType),
		"severity", string(event.Severity),
		"account_id", event.AccountID.String(),
		"ip_address", event.IPAddress,
	}
	if event.SessionID != nil {
		attrs = append(attrs, "session_id", event.SessionID.String())
	}
	if event.Severity.AtLeast(SeverityMedium) {
		l.logger.WarnContext(ctx, "security event", attrs...)
	} else {
		l.logger.InfoContext(ctx, "security event", attrs...)
	}
	return nil
}
