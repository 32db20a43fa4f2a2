// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/authd/internal/auth"
	"github.com/dealscope/authd/internal/auth/postgres"
	"github.com/dealscope/authd/pkg/errutil"
)

func TestAccountRepository_Create(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface, a *auth.Account)
		wantErr   error
		wantCode  string
	}{
		{
			name: "inserts account",
			setupMock: func(mock pgxmock.PgxPoolIface, a *auth.Account) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(insertArgs(a)...).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation is duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface, a *auth.Account) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(insertArgs(a)...).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr:  auth.ErrDuplicateEmail,
			wantCode: auth.CodeDuplicateEmail,
		},
		{
			name: "other database error",
			setupMock: func(mock pgxmock.PgxPoolIface, a *auth.Account) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(insertArgs(a)...).
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "ACCOUNT_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			a := sampleAccount()
			tt.setupMock(mock, a)

			err = postgres.NewAccountRepository(mock).Create(context.Background(), a)
			if tt.wantCode == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// insertArgs mirrors the column order of the account INSERT.
func insertArgs(a *auth.Account) []any {
	return []any{
		a.ID.String(), a.Email, a.PasswordHash, a.FullName, string(a.Role), a.IsActive, a.IsVerified,
		a.Profile.Phone, a.Profile.Company, a.Profile.LicenseNumber, a.Profile.Specialties,
		a.Profile.ExperienceYears, a.Profile.Bio, a.Profile.AvatarURL,
		a.LoginAttempts, a.LockedUntil, a.LastLogin, a.TwoFactorEnabled, a.TwoFactorSecret,
		a.CreatedAt, a.UpdatedAt,
	}
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		want := sampleAccount()
		mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \$1`).
			WithArgs(want.Email).
			WillReturnRows(accountRows(want))

		got, err := postgres.NewAccountRepository(mock).GetByEmail(context.Background(), want.Email)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Role, got.Role)
		assert.Equal(t, []string{"multifamily"}, got.Profile.Specialties)
		assert.Nil(t, got.LockedUntil)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \$1`).
			WithArgs("nobody@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, err = postgres.NewAccountRepository(mock).GetByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID_CorruptID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a := sampleAccount()
	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE id = \$1`).
		WithArgs(a.ID.String()).
		WillReturnRows(pgxmock.NewRows(accountColumnNames).AddRow(
			"not-a-ulid", a.Email, a.PasswordHash, a.FullName, "user", true, false,
			"", "", "", []string{}, nil, "", "", 0, nil, nil, false, "", fixedNow, fixedNow,
		))

	_, err = postgres.NewAccountRepository(mock).GetByID(context.Background(), a.ID)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "ACCOUNT_GET_FAILED")
}

func TestAccountRepository_RecordLoginFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a := sampleAccount()
	lockUntil := fixedNow.Add(auth.DefaultLockoutDuration)
	a.LoginAttempts = auth.DefaultMaxLoginAttempts
	a.LockedUntil = &lockUntil

	mock.ExpectQuery(`UPDATE accounts\s+SET login_attempts = login_attempts \+ 1`).
		WithArgs(a.ID.String(), auth.DefaultMaxLoginAttempts, lockUntil, fixedNow).
		WillReturnRows(accountRows(a))

	got, err := postgres.NewAccountRepository(mock).
		RecordLoginFailure(context.Background(), a.ID, auth.DefaultMaxLoginAttempts, lockUntil, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultMaxLoginAttempts, got.LoginAttempts)
	require.NotNil(t, got.LockedUntil)
	assert.True(t, got.LockedUntil.Equal(lockUntil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Updates(t *testing.T) {
	id := ulid.Make()
	at := fixedNow

	tests := []struct {
		name     string
		pattern  string
		args     []any
		affected int64
		call     func(r *postgres.AccountRepository) error
		wantErr  error
	}{
		{
			name:     "login success",
			pattern:  `UPDATE accounts\s+SET login_attempts = 0, locked_until = NULL, last_login`,
			args:     []any{id.String(), at},
			affected: 1,
			call:     func(r *postgres.AccountRepository) error { return r.RecordLoginSuccess(context.Background(), id, at) },
		},
		{
			name:     "login success for missing account",
			pattern:  `UPDATE accounts\s+SET login_attempts = 0, locked_until = NULL, last_login`,
			args:     []any{id.String(), at},
			affected: 0,
			call:     func(r *postgres.AccountRepository) error { return r.RecordLoginSuccess(context.Background(), id, at) },
			wantErr:  auth.ErrNotFound,
		},
		{
			name:     "update password",
			pattern:  `UPDATE accounts\s+SET password_hash = \$2`,
			args:     []any{id.String(), "$2a$04$new", at},
			affected: 1,
			call: func(r *postgres.AccountRepository) error {
				return r.UpdatePassword(context.Background(), id, "$2a$04$new", at)
			},
		},
		{
			name:     "delete missing account",
			pattern:  `DELETE FROM accounts WHERE id = \$1`,
			args:     []any{id.String()},
			affected: 0,
			call:     func(r *postgres.AccountRepository) error { return r.Delete(context.Background(), id) },
			wantErr:  auth.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectExec(tt.pattern).WithArgs(tt.args...).WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			err = tt.call(postgres.NewAccountRepository(mock))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
