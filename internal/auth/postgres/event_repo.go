// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package postgres

import (
	"context"
	"encoding/json"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dealscope/authd/internal/auth"
)

const eventColumns = `id, account_id, event_type, session_id, ip_address, device_fingerprint,
	details, severity, created_at`

// SecurityEventRepository implements auth.SecurityEventRepository using PostgreSQL.
type SecurityEventRepository struct {
	q querier
}

// NewSecurityEventRepository creates a SecurityEventRepository outside any transaction.
func NewSecurityEventRepository(pool Pool) *SecurityEventRepository {
	return &SecurityEventRepository{q: pool}
}

// Append stores a new event.
func (r *SecurityEventRepository) Append(ctx context.Context, e *auth.SecurityEvent) error {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return oops.Code("SECURITY_EVENT_APPEND_FAILED").
			With("operation", "encode details").
			Wrap(err)
	}

	var sessionID *string
	if e.SessionID != nil {
		s := e.SessionID.String()
		sessionID = &s
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO security_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		e.ID.String(),
		e.AccountID.String(),
		string(e.EventType),
		sessionID,
		e.IPAddress,
		e.DeviceFingerprint,
		encoded,
		string(e.Severity),
		e.CreatedAt,
	)
	if err != nil {
		return oops.Code("SECURITY_EVENT_APPEND_FAILED").
			With("operation", "insert security event").
			With("event_type", string(e.EventType)).
			Wrap(err)
	}
	return nil
}

// ListByAccount returns the newest events first. A non-positive limit
// returns every event.
func (r *SecurityEventRepository) ListByAccount(ctx context.Context, accountID ulid.ULID, limit int) ([]*auth.SecurityEvent, error) {
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+eventColumns+`
		FROM security_events
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, accountID.String(), limitArg)
	if err != nil {
		return nil, oops.Code("SECURITY_EVENT_LIST_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var events []*auth.SecurityEvent
	for rows.Next() {
		var (
			e                   auth.SecurityEvent
			idStr, accountStr   string
			eventType, severity string
			sessionStr          *string
			details             []byte
		)
		if err := rows.Scan(&idStr, &accountStr, &eventType, &sessionStr, &e.IPAddress,
			&e.DeviceFingerprint, &details, &severity, &e.CreatedAt); err != nil {
			return nil, oops.Code("SECURITY_EVENT_SCAN_FAILED").Wrap(err)
		}
		if e.ID, err = parseULID(idStr, "event_id"); err != nil {
			return nil, err
		}
		if e.AccountID, err = parseULID(accountStr, "account_id"); err != nil {
			return nil, err
		}
		if sessionStr != nil {
			sid, err := parseULID(*sessionStr, "session_id")
			if err != nil {
				return nil, err
			}
			e.SessionID = &sid
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, oops.With("operation", "decode details").Wrap(err)
			}
		}
		e.EventType = auth.EventType(eventType)
		e.Severity = auth.Severity(severity)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SECURITY_EVENT_ROWS_ERROR").Wrap(err)
	}
	return events, nil
}

// DeleteByAccount removes every event of the account.
func (r *SecurityEventRepository) DeleteByAccount(ctx context.Context, accountID ulid.ULID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM security_events WHERE account_id = $1`, accountID.String()); err != nil {
		return oops.Code("SECURITY_EVENT_DELETE_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}
