// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role is the account's authorization tier.
type Role string

// Roles. RoleStandard keeps the stored value "user".
const (
	RoleStandard Role = "user"
	RolePremium  Role = "premium"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStandard, RolePremium, RoleAdmin:
		return true
	}
	return false
}

// Account is a registered user.
type Account struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	FullName     string
	Role         Role
	IsActive     bool
	IsVerified   bool

	Profile Profile

	LoginAttempts int
	LockedUntil   *time.Time
	LastLogin     *time.Time

	// Stored for forward compatibility; nothing reads them.
	TwoFactorEnabled bool
	TwoFactorSecret  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile holds the optional descriptive fields of an account.
type Profile struct {
	Phone           string   `json:"phone,omitempty"`
	Company         string   `json:"company,omitempty"`
	LicenseNumber   string   `json:"license_number,omitempty"`
	Specialties     []string `json:"specialties,omitempty"`
	ExperienceYears *int     `json:"experience_years,omitempty"`
	Bio             string   `json:"bio,omitempty"`
	AvatarURL       string   `json:"avatar_url,omitempty"`
}

// IsLockedAt reports whether the account is locked at the given instant.
func (a *Account) IsLockedAt(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// NewAccount is the input to CredentialStore.Create.
type NewAccount struct {
	Email    string
	Password string
	FullName string
	Role     Role
	Profile  Profile
}

// Validate checks the fields that are not covered by the password policy.
func (n NewAccount) Validate() error {
	email := strings.TrimSpace(n.Email)
	if email == "" {
		return validationError("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationError("email", "email %q is not a valid address", n.Email)
	}
	if strings.TrimSpace(n.FullName) == "" {
		return validationError("full_name", "full name is required")
	}
	if n.Role != "" && !n.Role.Valid() {
		return validationError("role", "unknown role %q", n.Role)
	}
	if n.Profile.ExperienceYears != nil && *n.Profile.ExperienceYears < 0 {
		return validationError("experience_years", "experience years cannot be negative")
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns an error wrapping ErrDuplicateEmail
	// when the email is taken.
	Create(ctx context.Context, account *Account) error

	// GetByID returns ErrNotFound if the account does not exist.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail matches the stored email exactly.
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// RecordLoginFailure atomically increments the attempt counter and, when
	// the new count reaches maxAttempts, sets locked_until to lockUntil.
	// at stamps updated_at. Returns the updated account.
	RecordLoginFailure(ctx context.Context, id ulid.ULID, maxAttempts int, lockUntil, at time.Time) (*Account, error)

	// RecordLoginSuccess clears the attempt counter and lock and stamps last_login.
	RecordLoginSuccess(ctx context.Context, id ulid.ULID, at time.Time) error

	// UpdatePassword replaces the hash and clears any lockout state.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string, at time.Time) error

	// Delete removes the account row only; dependents are removed by the caller.
	Delete(ctx context.Context, id ulid.ULID) error
}
