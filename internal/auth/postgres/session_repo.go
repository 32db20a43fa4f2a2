// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dealscope/authd/internal/auth"
)

const sessionColumns = `id, account_id, device_fingerprint, ip_address, user_agent, device_info,
	is_active, is_suspicious, location_country, location_city, last_activity, expires_at, created_at`

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	q querier
}

// NewSessionRepository creates a SessionRepository outside any transaction.
func NewSessionRepository(pool Pool) *SessionRepository {
	return &SessionRepository{q: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, s *auth.Session) error {
	deviceInfo, err := json.Marshal(s.DeviceInfo)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "encode device info").
			Wrap(err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO user_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		s.ID.String(),
		s.AccountID.String(),
		s.DeviceFingerprint,
		s.IPAddress,
		s.UserAgent,
		deviceInfo,
		s.IsActive,
		s.Suspicious,
		stringOrNil(s.LocationCountry),
		stringOrNil(s.LocationCity),
		s.LastActivity,
		s.ExpiresAt,
		s.CreatedAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert user_session").
			With("account_id", s.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Session, error) {
	row := r.q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM user_sessions WHERE id = $1`, id.String())
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by id").
			With("session_id", id.String()).
			Wrap(err)
	}
	return s, nil
}

// ListActive returns live sessions, oldest first.
func (r *SessionRepository) ListActive(ctx context.Context, accountID ulid.ULID, now time.Time) ([]*auth.Session, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM user_sessions
		WHERE account_id = $1 AND is_active AND expires_at >= $2
		ORDER BY created_at ASC, id ASC
	`, accountID.String(), now)
	if err != nil {
		return nil, oops.Code("SESSION_LIST_FAILED").
			With("operation", "list active sessions").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").
				With("operation", "scan session row").
				Wrap(err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").
			With("operation", "iterate session rows").
			Wrap(err)
	}
	return sessions, nil
}

// Touch sets last_activity on an active session.
func (r *SessionRepository) Touch(ctx context.Context, id ulid.ULID, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE user_sessions SET last_activity = $2 WHERE id = $1 AND is_active
	`, id.String(), at)
	if err != nil {
		return oops.Code("SESSION_TOUCH_FAILED").
			With("session_id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Deactivate clears the active flag and reports whether it was set.
func (r *SessionRepository) Deactivate(ctx context.Context, id ulid.ULID) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE user_sessions SET is_active = FALSE WHERE id = $1 AND is_active
	`, id.String())
	if err != nil {
		return false, oops.Code("SESSION_DEACTIVATE_FAILED").
			With("session_id", id.String()).
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeactivateAll clears the active flag on every session of the account.
func (r *SessionRepository) DeactivateAll(ctx context.Context, accountID ulid.ULID) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE user_sessions SET is_active = FALSE WHERE account_id = $1 AND is_active
	`, accountID.String())
	if err != nil {
		return 0, oops.Code("SESSION_DEACTIVATE_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByAccount removes every session of the account.
func (r *SessionRepository) DeleteByAccount(ctx context.Context, accountID ulid.ULID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM user_sessions WHERE account_id = $1`, accountID.String()); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}

func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		s                 auth.Session
		idStr, accountStr string
		deviceInfo        []byte
		country, city     *string
	)
	err := row.Scan(
		&idStr,
		&accountStr,
		&s.DeviceFingerprint,
		&s.IPAddress,
		&s.UserAgent,
		&deviceInfo,
		&s.IsActive,
		&s.Suspicious,
		&country,
		&city,
		&s.LastActivity,
		&s.ExpiresAt,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if s.ID, err = parseULID(idStr, "session_id"); err != nil {
		return nil, err
	}
	if s.AccountID, err = parseULID(accountStr, "account_id"); err != nil {
		return nil, err
	}
	if len(deviceInfo) > 0 {
		if err := json.Unmarshal(deviceInfo, &s.DeviceInfo); err != nil {
			return nil, oops.With("operation", "decode device info").Wrap(err)
		}
	}
	if country != nil {
		s.LocationCountry = *country
	}
	if city != nil {
		s.LocationCity = *city
	}
	return &s, nil
}
