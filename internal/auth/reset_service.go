// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// ResetNotifier delivers a password-reset token to the account owner.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogNotifier records reset deliveries in the log instead of sending mail.
// The token is only written at debug level.
type LogNotifier struct {
	Logger *slog.Logger
}

// SendPasswordReset implements ResetNotifier.
func (n LogNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "password reset issued", "email", email)
	logger.DebugContext(ctx, "password reset token", "email", email, "reset_token", token)
	return nil
}

// PasswordResetService handles the password reset flow.
type PasswordResetService struct {
	store    Store
	tokens   *TokenService
	hasher   PasswordHasher
	sessions *SessionManager
	events   *EventLog
	notifier ResetNotifier
	policy   PasswordPolicy
	logger   *slog.Logger
	now      func() time.Time
}

// NewPasswordResetService creates a PasswordResetService. A nil notifier
// falls back to LogNotifier.
func NewPasswordResetService(
	store Store,
	tokens *TokenService,
	hasher PasswordHasher,
	sessions *SessionManager,
	events *EventLog,
	notifier ResetNotifier,
	cfg Config,
	opts ...Option,
) (*PasswordResetService, error) {
	if store == nil {
		return nil, oops.Errorf("store is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if events == nil {
		return nil, oops.Errorf("event log is required")
	}
	o := buildOptions(opts)
	if notifier == nil {
		notifier = LogNotifier{Logger: o.logger}
	}
	return &PasswordResetService{
		store:    store,
		tokens:   tokens,
		hasher:   hasher,
		sessions: sessions,
		events:   events,
		notifier: notifier,
		policy:   NewPasswordPolicy(cfg.PasswordMinLength),
		logger:   o.logger,
		now:      o.now,
	}, nil
}

// RequestReset issues a reset token for email and hands it to the notifier.
// Unknown emails return an empty token and no error, so callers cannot tell
// whether an account exists.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (string, error) {
	account, err := s.store.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	token, err := s.tokens.IssueBoundPasswordResetToken(account.Email, PasswordBinding(account.PasswordHash))
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "issue reset token").
			Wrap(err)
	}

	if _, err := s.events.Record(ctx, s.store.Events(), EventInput{
		AccountID: account.ID,
		EventType: EventPasswordResetRequested,
	}); err != nil {
		return "", err
	}

	if err := s.notifier.SendPasswordReset(ctx, account.Email, token); err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "notify").
			Wrap(err)
	}
	return token, nil
}

// ConfirmReset sets a new password using a reset token. On success the
// lockout state is cleared and every session of the account is invalidated.
// Only tokens bound to the account's password hash are accepted, so a token
// can be used once: the new hash no longer matches its binding.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, token, newPassword string) error {
	grant, err := s.tokens.ParsePasswordResetToken(token)
	if err != nil {
		return err
	}
	if err := s.policy.Validate(newPassword); err != nil {
		return err
	}

	account, err := s.store.Accounts().GetByEmail(ctx, grant.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalidToken("account not found")
		}
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	if grant.Binding == "" {
		return invalidToken("token is not bound to a password")
	}
	if subtle.ConstantTimeCompare([]byte(grant.Binding), []byte(PasswordBinding(account.PasswordHash))) != 1 {
		return invalidToken("token already used")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	if err := s.store.Accounts().UpdatePassword(ctx, account.ID, hash, s.now()); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "update password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	revoked, err := s.sessions.InvalidateAll(ctx, account.ID)
	if err != nil {
		return err
	}

	if _, err := s.events.Record(ctx, s.store.Events(), EventInput{
		AccountID: account.ID,
		EventType: EventPasswordResetCompleted,
		Severity:  SeverityMedium,
		Details:   map[string]any{"sessions_invalidated": revoked},
	}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password reset completed",
		"account_id", account.ID.String(),
		"sessions_invalidated", revoked,
	)
	return nil
}
