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

// IssuedSession is the result of a successful session creation.
type IssuedSession struct {
	Session        *Session
	Token          string
	TokenExpiresAt time.Time
	Events         []*SecurityEvent
}

// SessionManager owns the session lifecycle for accounts.
type SessionManager struct {
	store    Store
	tokens   *TokenService
	detector *AnomalyDetector
	events   *EventLog

	maxSessions     int
	sessionDuration time.Duration
	tokenTTL        time.Duration

	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(store Store, tokens *TokenService, detector *AnomalyDetector, events *EventLog, cfg Config, opts ...Option) (*SessionManager, error) {
	if store == nil {
		return nil, oops.Errorf("store is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if detector == nil {
		return nil, oops.Errorf("anomaly detector is required")
	}
	if events == nil {
		return nil, oops.Errorf("event log is required")
	}
	if cfg.MaxConcurrentSessions < 1 {
		return nil, oops.Errorf("max concurrent sessions must be at least 1")
	}
	o := buildOptions(opts)
	return &SessionManager{
		store:           store,
		tokens:          tokens,
		detector:        detector,
		events:          events,
		maxSessions:     cfg.MaxConcurrentSessions,
		sessionDuration: cfg.SessionDuration,
		tokenTTL:        cfg.AccessTokenTTL,
		logger:          o.logger,
		metrics:         o.metrics,
		now:             o.now,
	}, nil
}

// CreateSession opens a session for account from device at ipAddress. via
// names the flow that authenticated the caller ("login", "register") and is
// stored on the login_succeeded event.
//
// Under the account lock it loads the live sessions, evicts the oldest ones
// until there is room under the cap, runs anomaly detection against the
// sessions that were live before eviction, inserts the new session and
// records login_succeeded. The access token is signed after the transaction
// commits.
func (m *SessionManager) CreateSession(ctx context.Context, account *Account, device DeviceInfo, ipAddress, via string) (*IssuedSession, error) {
	now := m.now()
	session, err := NewSession(account.ID, device, ipAddress, now, m.sessionDuration)
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").With("operation", "build session").Wrap(err)
	}

	var raised []*SecurityEvent
	err = m.store.WithAccountLock(ctx, account.ID, func(tx Store) error {
		existing, err := tx.Sessions().ListActive(ctx, account.ID, now)
		if err != nil {
			return oops.Code("SESSION_CREATE_FAILED").With("operation", "list active sessions").Wrap(err)
		}

		if err := m.evictForCapacity(ctx, tx, existing, session); err != nil {
			return err
		}

		raised = m.detector.Detect(account, device, ipAddress, existing, &session.ID, now)
		for _, event := range raised {
			if err := m.events.Append(ctx, tx.Events(), event); err != nil {
				return err
			}
		}
		session.Suspicious = len(raised) > 0

		if err := tx.Sessions().Create(ctx, session); err != nil {
			return oops.Code("SESSION_CREATE_FAILED").With("operation", "insert session").Wrap(err)
		}

		_, err = m.events.Record(ctx, tx.Events(), EventInput{
			AccountID:         account.ID,
			EventType:         EventLoginSucceeded,
			SessionID:         &session.ID,
			IPAddress:         ipAddress,
			DeviceFingerprint: device.Fingerprint,
			Details: map[string]any{
				"via":     via,
				"browser": device.Browser,
				"os":      device.OS,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	m.metrics.SessionCreated()

	token, tokenExpiry, err := m.tokens.IssueAccessToken(AccessClaims{
		AccountID:         account.ID,
		SessionID:         session.ID,
		DeviceFingerprint: session.DeviceFingerprint,
		Role:              account.Role,
	}, m.tokenTTL)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "session created",
		"account_id", account.ID.String(),
		"session_id", session.ID.String(),
		"suspicious", session.Suspicious,
	)
	return &IssuedSession{
		Session:        session,
		Token:          token,
		TokenExpiresAt: tokenExpiry,
		Events:         raised,
	}, nil
}

// evictForCapacity deactivates the oldest live sessions until one more fits
// under the cap. existing must be ordered oldest first.
func (m *SessionManager) evictForCapacity(ctx context.Context, tx Store, existing []*Session, incoming *Session) error {
	for i := 0; len(existing)-i >= m.maxSessions; i++ {
		oldest := existing[i]
		if _, err := tx.Sessions().Deactivate(ctx, oldest.ID); err != nil {
			return oops.Code("SESSION_EVICT_FAILED").
				With("session_id", oldest.ID.String()).
				Wrap(err)
		}
		evictedID := oldest.ID
		if _, err := m.events.Record(ctx, tx.Events(), EventInput{
			AccountID:         oldest.AccountID,
			EventType:         EventSessionEvicted,
			SessionID:         &evictedID,
			IPAddress:         incoming.IPAddress,
			DeviceFingerprint: oldest.DeviceFingerprint,
			Details: map[string]any{
				"max_sessions":   m.maxSessions,
				"replacement_id": incoming.ID.String(),
				"created_at":     oldest.CreatedAt.UTC().Format(time.RFC3339Nano),
			},
		}); err != nil {
			return err
		}
		m.metrics.SessionEvicted()
	}
	return nil
}

// ValidateSession returns the owner of a live session and bumps its last
// activity. Unknown, invalidated and expired sessions yield
// ErrSessionInactive; an expired session is deactivated on first sight.
func (m *SessionManager) ValidateSession(ctx context.Context, sessionID ulid.ULID) (*Account, error) {
	sessions := m.store.Sessions()
	session, err := sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, sessionInactive(sessionID, "unknown")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	if !session.IsActive {
		return nil, sessionInactive(sessionID, "invalidated")
	}

	now := m.now()
	if session.IsExpiredAt(now) {
		flipped, err := sessions.Deactivate(ctx, sessionID)
		if err != nil {
			return nil, oops.Code("SESSION_VALIDATE_FAILED").
				With("operation", "expire session").
				With("session_id", sessionID.String()).
				Wrap(err)
		}
		if flipped {
			if _, err := m.events.Record(ctx, m.store.Events(), EventInput{
				AccountID:         session.AccountID,
				EventType:         EventSessionExpired,
				SessionID:         &session.ID,
				IPAddress:         session.IPAddress,
				DeviceFingerprint: session.DeviceFingerprint,
				Details:           map[string]any{"expires_at": session.ExpiresAt.UTC().Format(time.RFC3339)},
			}); err != nil {
				return nil, err
			}
		}
		return nil, sessionInactive(sessionID, "expired")
	}

	if err := sessions.Touch(ctx, sessionID, now); err != nil {
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "touch session").
			With("session_id", sessionID.String()).
			Wrap(err)
	}

	account, err := m.store.Accounts().GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, sessionInactive(sessionID, "account missing")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get account").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	if !account.IsActive {
		return nil, sessionInactive(sessionID, "account disabled")
	}
	return account, nil
}

// GetSession returns a session by ID regardless of state.
func (m *SessionManager) GetSession(ctx context.Context, sessionID ulid.ULID) (*Session, error) {
	session, err := m.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, oops.With("session_id", sessionID.String()).Wrap(err)
	}
	return session, nil
}

// ListActiveSessions returns the account's live sessions, oldest first.
func (m *SessionManager) ListActiveSessions(ctx context.Context, accountID ulid.ULID) ([]*Session, error) {
	sessions, err := m.store.Sessions().ListActive(ctx, accountID, m.now())
	if err != nil {
		return nil, oops.Code("SESSION_LIST_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return sessions, nil
}

// Invalidate deactivates a session. Unknown or already inactive sessions are a no-op.
func (m *SessionManager) Invalidate(ctx context.Context, sessionID ulid.ULID) error {
	if _, err := m.store.Sessions().Deactivate(ctx, sessionID); err != nil {
		return oops.Code("SESSION_INVALIDATE_FAILED").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	return nil
}

// InvalidateAll deactivates every active session of the account and returns
// how many were changed.
func (m *SessionManager) InvalidateAll(ctx context.Context, accountID ulid.ULID) (int64, error) {
	n, err := m.store.Sessions().DeactivateAll(ctx, accountID)
	if err != nil {
		return 0, oops.Code("SESSION_INVALIDATE_ALL_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return n, nil
}

// InvalidateOldest deactivates the account's earliest-created live session.
// It returns the evicted session, or nil if none was live.
func (m *SessionManager) InvalidateOldest(ctx context.Context, accountID ulid.ULID) (*Session, error) {
	var evicted *Session
	err := m.store.WithAccountLock(ctx, accountID, func(tx Store) error {
		live, err := tx.Sessions().ListActive(ctx, accountID, m.now())
		if err != nil {
			return oops.Code("SESSION_INVALIDATE_OLDEST_FAILED").With("operation", "list active sessions").Wrap(err)
		}
		if len(live) == 0 {
			return nil
		}
		if _, err := tx.Sessions().Deactivate(ctx, live[0].ID); err != nil {
			return oops.Code("SESSION_INVALIDATE_OLDEST_FAILED").
				With("session_id", live[0].ID.String()).
				Wrap(err)
		}
		evicted = live[0]
		evicted.IsActive = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

func sessionInactive(sessionID ulid.ULID, reason string) error {
	return oops.Code(CodeSessionInactive).
		With("session_id", sessionID.String()).
		With("reason", reason).
		Wrap(ErrSessionInactive)
}
