// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TokenTypeBearer is the token_type reported to clients.
const TokenTypeBearer = "bearer"

// DefaultEventLimit caps ListSecurityEvents when no limit is given.
const DefaultEventLimit = 50

// Service is the set of operations exposed to the transport layer.
type Service struct {
	cfg         Config
	store       Store
	policy      PasswordPolicy
	credentials *CredentialStore
	tokens      *TokenService
	sessions    *SessionManager
	resets      *PasswordResetService
	events      *EventLog
	logger      *slog.Logger
}

// NewService wires every component from cfg.
func NewService(store Store, hasher PasswordHasher, notifier ResetNotifier, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, oops.Errorf("store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	tokens, err := NewTokenService(cfg.SecretKey, cfg.AccessTokenTTL, opts...)
	if err != nil {
		return nil, err
	}
	events := NewEventLog(opts...)
	credentials, err := NewCredentialStore(store, hasher, events, cfg, opts...)
	if err != nil {
		return nil, err
	}
	sessions, err := NewSessionManager(store, tokens, NewAnomalyDetector(SeverityLow), events, cfg, opts...)
	if err != nil {
		return nil, err
	}
	resets, err := NewPasswordResetService(store, tokens, hasher, sessions, events, notifier, cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:         cfg,
		store:       store,
		policy:      NewPasswordPolicy(cfg.PasswordMinLength),
		credentials: credentials,
		tokens:      tokens,
		sessions:    sessions,
		resets:      resets,
		events:      events,
		logger:      o.logger,
	}, nil
}

// Sessions exposes the session manager.
func (s *Service) Sessions() *SessionManager { return s.sessions }

// Tokens exposes the token service.
func (s *Service) Tokens() *TokenService { return s.tokens }

// RegisterRequest is the input to Register.
type RegisterRequest struct {
	Email     string
	Password  string
	FullName  string
	Profile   Profile
	Device    DeviceMetadata
	IPAddress string
}

// LoginRequest is the input to Login.
type LoginRequest struct {
	Email     string
	Password  string
	Device    DeviceMetadata
	IPAddress string
}

// LoginResult is returned by Register and Login.
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	Session     *Session
	Account     *Account
	Events      []*SecurityEvent
}

// Principal is the caller behind a verified access token and live session.
type Principal struct {
	Account   *Account
	SessionID ulid.ULID
	Claims    *AccessClaims
}

// Register creates an account and opens its first session.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	if err := s.policy.Validate(req.Password); err != nil {
		return nil, err
	}
	account, err := s.credentials.Create(ctx, NewAccount{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Profile:  req.Profile,
	})
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, account, req.Device, req.IPAddress, "register")
}

// Login authenticates and opens a session.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	account, err := s.credentials.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, account, req.Device, req.IPAddress, "login")
}

func (s *Service) openSession(ctx context.Context, account *Account, meta DeviceMetadata, ip, via string) (*LoginResult, error) {
	device := ExtractDevice(meta)
	issued, err := s.sessions.CreateSession(ctx, account, device, ip, via)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken: issued.Token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   s.cfg.AccessTokenTTL,
		Session:     issued.Session,
		Account:     account,
		Events:      issued.Events,
	}, nil
}

// CurrentUser resolves an access token to its principal. The token must
// verify and its session must still be live.
func (s *Service) CurrentUser(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}
	account, err := s.sessions.ValidateSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if account.ID != claims.AccountID {
		return nil, invalidToken("session owner mismatch")
	}
	return &Principal{Account: account, SessionID: claims.SessionID, Claims: claims}, nil
}

// Logout ends the caller's current session.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	if err := s.sessions.Invalidate(ctx, p.SessionID); err != nil {
		return err
	}
	_, err := s.events.Record(ctx, s.store.Events(), EventInput{
		AccountID: p.Account.ID,
		EventType: EventLogout,
		SessionID: &p.SessionID,
	})
	return err
}

// LogoutAll ends every session of the caller's account and returns how many ended.
func (s *Service) LogoutAll(ctx context.Context, p *Principal) (int64, error) {
	n, err := s.sessions.InvalidateAll(ctx, p.Account.ID)
	if err != nil {
		return 0, err
	}
	if _, err := s.events.Record(ctx, s.store.Events(), EventInput{
		AccountID: p.Account.ID,
		EventType: EventLogoutAll,
		SessionID: &p.SessionID,
		Details:   map[string]any{"sessions_invalidated": n},
	}); err != nil {
		return 0, err
	}
	return n, nil
}

// ListSessions returns the account's live sessions.
func (s *Service) ListSessions(ctx context.Context, accountID ulid.ULID) ([]*Session, error) {
	return s.sessions.ListActiveSessions(ctx, accountID)
}

// InvalidateSession ends one session of the account. Sessions owned by
// another account are reported as not found.
func (s *Service) InvalidateSession(ctx context.Context, accountID, sessionID ulid.ULID) error {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").With("session_id", sessionID.String()).Wrap(ErrNotFound)
		}
		return err
	}
	if session.AccountID != accountID {
		return oops.Code("SESSION_NOT_FOUND").With("session_id", sessionID.String()).Wrap(ErrNotFound)
	}
	return s.sessions.Invalidate(ctx, sessionID)
}

// InvalidateAllSessions ends every session of the account.
func (s *Service) InvalidateAllSessions(ctx context.Context, accountID ulid.ULID) (int64, error) {
	return s.sessions.InvalidateAll(ctx, accountID)
}

// ListSecurityEvents returns the account's newest events.
func (s *Service) ListSecurityEvents(ctx context.Context, accountID ulid.ULID, limit int) ([]*SecurityEvent, error) {
	if limit <= 0 || limit > DefaultEventLimit*4 {
		limit = DefaultEventLimit
	}
	events, err := s.store.Events().ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, oops.Code("SECURITY_EVENT_LIST_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return events, nil
}

// RequestPasswordReset starts a reset for email. The returned token is
// empty for unknown emails; transports must not echo it to the client.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return s.resets.RequestReset(ctx, email)
}

// ConfirmPasswordReset completes a reset.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return s.resets.ConfirmReset(ctx, token, newPassword)
}

// DeleteAccount removes the account with its security events and sessions
// in one transaction.
func (s *Service) DeleteAccount(ctx context.Context, accountID ulid.ULID) error {
	err := s.store.WithAccountLock(ctx, accountID, func(tx Store) error {
		if err := tx.Events().DeleteByAccount(ctx, accountID); err != nil {
			return oops.Code("ACCOUNT_DELETE_FAILED").With("operation", "delete security events").Wrap(err)
		}
		if err := tx.Sessions().DeleteByAccount(ctx, accountID); err != nil {
			return oops.Code("ACCOUNT_DELETE_FAILED").With("operation", "delete sessions").Wrap(err)
		}
		if err := tx.Accounts().Delete(ctx, accountID); err != nil {
			return oops.Code("ACCOUNT_DELETE_FAILED").With("operation", "delete account").Wrap(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "account deleted", "account_id", accountID.String())
	return nil
}
