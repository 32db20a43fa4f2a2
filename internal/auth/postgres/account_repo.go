// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dealscope/authd/internal/auth"
)

const accountColumns = `id, email, password_hash, full_name, role, is_active, is_verified,
	phone, company, license_number, specialties, experience_years, bio, avatar_url,
	login_attempts, locked_until, last_login, two_factor_enabled, two_factor_secret,
	created_at, updated_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	q querier
}

// NewAccountRepository creates an AccountRepository outside any transaction.
func NewAccountRepository(pool Pool) *AccountRepository {
	return &AccountRepository{q: pool}
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, a *auth.Account) error {
	specialties := a.Profile.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`,
		a.ID.String(),
		a.Email,
		a.PasswordHash,
		a.FullName,
		string(a.Role),
		a.IsActive,
		a.IsVerified,
		a.Profile.Phone,
		a.Profile.Company,
		a.Profile.LicenseNumber,
		specialties,
		a.Profile.ExperienceYears,
		a.Profile.Bio,
		a.Profile.AvatarURL,
		a.LoginAttempts,
		a.LockedUntil,
		a.LastLogin,
		a.TwoFactorEnabled,
		a.TwoFactorSecret,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code(auth.CodeDuplicateEmail).
				With("email", a.Email).
				Wrap(auth.ErrDuplicateEmail)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("id", a.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id.String())
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return a, nil
}

// GetByEmail retrieves an account by exact email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	return a, nil
}

// RecordLoginFailure increments the attempt counter in a single statement so
// concurrent failures are all counted.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id ulid.ULID, maxAttempts int, lockUntil, at time.Time) (*auth.Account, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE accounts
		SET login_attempts = login_attempts + 1,
		    locked_until = CASE WHEN login_attempts + 1 >= $2 THEN $3::timestamptz ELSE locked_until END,
		    updated_at = $4
		WHERE id = $1
		RETURNING `+accountColumns,
		id.String(), maxAttempts, lockUntil, at,
	)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "record login failure").
			With("id", id.String()).
			Wrap(err)
	}
	return a, nil
}

// RecordLoginSuccess clears lockout state and stamps last_login.
func (r *AccountRepository) RecordLoginSuccess(ctx context.Context, id ulid.ULID, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE accounts
		SET login_attempts = 0, locked_until = NULL, last_login = $2, updated_at = $2
		WHERE id = $1
	`, id.String(), at)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "record login success").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePassword replaces the hash and clears lockout state.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $2, login_attempts = 0, locked_until = NULL, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, at)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes the account row.
func (r *AccountRepository) Delete(ctx context.Context, id ulid.ULID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete account").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		a     auth.Account
		idStr string
		role  string
	)
	err := row.Scan(
		&idStr,
		&a.Email,
		&a.PasswordHash,
		&a.FullName,
		&role,
		&a.IsActive,
		&a.IsVerified,
		&a.Profile.Phone,
		&a.Profile.Company,
		&a.Profile.LicenseNumber,
		&a.Profile.Specialties,
		&a.Profile.ExperienceYears,
		&a.Profile.Bio,
		&a.Profile.AvatarURL,
		&a.LoginAttempts,
		&a.LockedUntil,
		&a.LastLogin,
		&a.TwoFactorEnabled,
		&a.TwoFactorSecret,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.ID, err = parseULID(idStr, "account_id"); err != nil {
		return nil, err
	}
	a.Role = auth.Role(role)
	if len(a.Profile.Specialties) == 0 {
		a.Profile.Specialties = nil
	}
	return &a, nil
}
