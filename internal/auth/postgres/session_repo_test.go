// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/authd/internal/auth"
	"github.com/dealscope/authd/internal/auth/postgres"
	"github.com/dealscope/authd/pkg/errutil"
)

func sampleSession(accountID ulid.ULID, createdAt time.Time) *auth.Session {
	return &auth.Session{
		ID:                ulid.Make(),
		AccountID:         accountID,
		DeviceFingerprint: "0123456789abcdef0123456789abcdef",
		IPAddress:         "203.0.113.7",
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
		IsActive:          true,
		LastActivity:      createdAt,
		ExpiresAt:         createdAt.Add(auth.DefaultSessionDuration),
		CreatedAt:         createdAt,
	}
}

func TestSessionRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := sampleSession(ulid.Make(), fixedNow)
	s.DeviceInfo = auth.DeviceInfo{Fingerprint: s.DeviceFingerprint, Browser: "Chrome", OS: "Windows"}

	mock.ExpectExec(`INSERT INTO user_sessions`).
		WithArgs(
			s.ID.String(), s.AccountID.String(), s.DeviceFingerprint, s.IPAddress, s.UserAgent,
			pgxmock.AnyArg(), true, false, (*string)(nil), (*string)(nil),
			s.LastActivity, s.ExpiresAt, s.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, postgres.NewSessionRepository(mock).Create(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_ListActive(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface, accountID ulid.ULID)
		wantLen   int
		wantCode  string
	}{
		{
			name: "returns rows in query order",
			setupMock: func(mock pgxmock.PgxPoolIface, accountID ulid.ULID) {
				rows := pgxmock.NewRows(sessionColumnNames)
				sessionRow(rows, sampleSession(accountID, fixedNow.Add(-2*time.Hour)))
				sessionRow(rows, sampleSession(accountID, fixedNow.Add(-time.Hour)))
				mock.ExpectQuery(`SELECT .+ FROM user_sessions\s+WHERE account_id = \$1 AND is_active AND expires_at >= \$2\s+ORDER BY created_at ASC, id ASC`).
					WithArgs(accountID.String(), fixedNow).
					WillReturnRows(rows)
			},
			wantLen: 2,
		},
		{
			name: "no sessions",
			setupMock: func(mock pgxmock.PgxPoolIface, accountID ulid.ULID) {
				mock.ExpectQuery(`SELECT .+ FROM user_sessions`).
					WithArgs(accountID.String(), fixedNow).
					WillReturnRows(pgxmock.NewRows(sessionColumnNames))
			},
			wantLen: 0,
		},
		{
			name: "query error",
			setupMock: func(mock pgxmock.PgxPoolIface, accountID ulid.ULID) {
				mock.ExpectQuery(`SELECT .+ FROM user_sessions`).
					WithArgs(accountID.String(), fixedNow).
					WillReturnError(errors.New("connection reset"))
			},
			wantCode: "SESSION_LIST_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			accountID := ulid.Make()
			tt.setupMock(mock, accountID)

			got, err := postgres.NewSessionRepository(mock).ListActive(context.Background(), accountID, fixedNow)
			if tt.wantCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
			} else {
				require.NoError(t, err)
				assert.Len(t, got, tt.wantLen)
				for _, s := range got {
					assert.Equal(t, accountID, s.AccountID)
					assert.Equal(t, "Chrome", s.DeviceInfo.Browser)
					assert.Empty(t, s.LocationCountry)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := ulid.Make()
	mock.ExpectQuery(`SELECT .+ FROM user_sessions WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnError(pgx.ErrNoRows)

	_, err = postgres.NewSessionRepository(mock).GetByID(context.Background(), id)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionRepository_Deactivate(t *testing.T) {
	tests := []struct {
		name        string
		affected    int64
		wantFlipped bool
	}{
		{name: "active session flips", affected: 1, wantFlipped: true},
		{name: "already inactive", affected: 0, wantFlipped: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			id := ulid.Make()
			mock.ExpectExec(`UPDATE user_sessions SET is_active = FALSE WHERE id = \$1 AND is_active`).
				WithArgs(id.String()).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			flipped, err := postgres.NewSessionRepository(mock).Deactivate(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFlipped, flipped)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSessionRepository_DeactivateAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	accountID := ulid.Make()
	mock.ExpectExec(`UPDATE user_sessions SET is_active = FALSE WHERE account_id = \$1 AND is_active`).
		WithArgs(accountID.String()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := postgres.NewSessionRepository(mock).DeactivateAll(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Touch_Inactive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := ulid.Make()
	mock.ExpectExec(`UPDATE user_sessions SET last_activity = \$2`).
		WithArgs(id.String(), fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = postgres.NewSessionRepository(mock).Touch(context.Background(), id, fixedNow)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
