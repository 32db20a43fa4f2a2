// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// dummyPassword is hashed once and verified against when an email is unknown,
// so unknown and known emails cost the same.
const dummyPassword = "dummy-password-for-constant-time"

// CredentialStore creates accounts and authenticates them with lockout.
type CredentialStore struct {
	store   Store
	hasher  PasswordHasher
	events  *EventLog
	lockout LockoutPolicy
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(store Store, hasher PasswordHasher, events *EventLog, cfg Config, opts ...Option) (*CredentialStore, error) {
	if store == nil {
		return nil, oops.Errorf("store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if events == nil {
		return nil, oops.Errorf("event log is required")
	}
	o := buildOptions(opts)
	return &CredentialStore{
		store:  store,
		hasher: hasher,
		events: events,
		lockout: LockoutPolicy{
			MaxAttempts: cfg.MaxLoginAttempts,
			Duration:    cfg.LockoutDuration,
		},
		logger:  o.logger,
		metrics: o.metrics,
		now:     o.now,
	}, nil
}

// Create stores a new account. The password policy must already have been
// applied by the caller.
func (c *CredentialStore) Create(ctx context.Context, in NewAccount) (*Account, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	accounts := c.store.Accounts()
	if _, err := accounts.GetByEmail(ctx, in.Email); err == nil {
		return nil, oops.Code(CodeDuplicateEmail).With("email", in.Email).Wrap(ErrDuplicateEmail)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "check existing email").
			Wrap(err)
	}

	hash, err := c.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	role := in.Role
	if role == "" {
		role = RoleStandard
	}
	now := c.now()
	account := &Account{
		ID:           ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()),
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         role,
		IsActive:     true,
		Profile:      in.Profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "account created", "account_id", account.ID.String())
	return account, nil
}

// Authenticate verifies the password for email.
//
// Unknown emails and wrong passwords both return ErrInvalidCredentials. The
// lock is checked only after a correct password, and a correct password
// during a lock does not touch the attempt counter.
func (c *CredentialStore) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	accounts := c.store.Accounts()

	account, lookupErr := accounts.GetByEmail(ctx, email)
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			c.metrics.LoginAttempt(LoginResultError)
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get account by email").
				Wrap(lookupErr)
		}
		// Same work as a real verification.
		_, _ = c.hasher.Verify(password, c.dummy()) //nolint:errcheck // result is irrelevant
		c.metrics.LoginAttempt(LoginResultInvalidCredentials)
		return nil, invalidCredentials()
	}

	valid, err := c.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		c.metrics.LoginAttempt(LoginResultError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	now := c.now()
	if !valid {
		if err := c.recordFailure(ctx, account, now); err != nil {
			c.metrics.LoginAttempt(LoginResultError)
			return nil, err
		}
		c.metrics.LoginAttempt(LoginResultInvalidCredentials)
		return nil, invalidCredentials()
	}

	if state := c.lockout.Check(account.LockedUntil, now); state.Locked {
		c.logger.DebugContext(ctx, "login rejected for locked account",
			"account_id", account.ID.String(),
			"remaining", state.Remaining.String(),
		)
		c.metrics.LoginAttempt(LoginResultLocked)
		return nil, accountLocked(*account.LockedUntil)
	}

	if !account.IsActive {
		c.metrics.LoginAttempt(LoginResultInvalidCredentials)
		return nil, invalidCredentials()
	}

	if err := accounts.RecordLoginSuccess(ctx, account.ID, now); err != nil {
		c.metrics.LoginAttempt(LoginResultError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "record login success").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	ApplySuccess(account, now)

	if c.hasher.NeedsUpgrade(account.PasswordHash) {
		c.upgradeHash(ctx, account, password, now)
	}

	c.metrics.LoginAttempt(LoginResultSuccess)
	return account, nil
}

func (c *CredentialStore) recordFailure(ctx context.Context, account *Account, now time.Time) error {
	wasLocked := account.IsLockedAt(now)
	lockUntil := c.lockout.LockUntil(now)

	updated, err := c.store.Accounts().RecordLoginFailure(ctx, account.ID, c.lockout.MaxAttempts, lockUntil, now)
	if err != nil {
		return oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "record login failure").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	if _, err := c.events.Record(ctx, c.store.Events(), EventInput{
		AccountID: account.ID,
		EventType: EventLoginFailed,
		Details:   map[string]any{"attempts": updated.LoginAttempts},
	}); err != nil {
		return err
	}

	if !wasLocked && updated.IsLockedAt(now) {
		if _, err := c.events.Record(ctx, c.store.Events(), EventInput{
			AccountID: account.ID,
			EventType: EventAccountLocked,
			Severity:  SeverityMedium,
			Details: map[string]any{
				"attempts":     updated.LoginAttempts,
				"locked_until": updated.LockedUntil.UTC().Format(time.RFC3339),
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

// upgradeHash rewrites a legacy hash. Failure leaves the old hash in place
// and does not fail the login.
func (c *CredentialStore) upgradeHash(ctx context.Context, account *Account, password string, now time.Time) {
	newHash, err := c.hasher.Hash(password)
	if err != nil {
		c.logger.WarnContext(ctx, "password hash upgrade failed",
			"account_id", account.ID.String(), "error", err)
		return
	}
	if err := c.store.Accounts().UpdatePassword(ctx, account.ID, newHash, now); err != nil {
		c.logger.WarnContext(ctx, "password hash upgrade not persisted",
			"account_id", account.ID.String(), "error", err)
		return
	}
	account.PasswordHash = newHash
}

func (c *CredentialStore) dummy() string {
	c.dummyOnce.Do(func() {
		hash, err := c.hasher.Hash(dummyPassword)
		if err != nil {
			c.logger.Warn("dummy hash generation failed", "error", err)
			return
		}
		c.dummyHash = hash
	})
	return c.dummyHash
}
