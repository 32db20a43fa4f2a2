// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package memory

import (
	"context"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dealscope/authd/internal/auth"
)

type accountRepo struct{ s *Store }

var _ auth.AccountRepository = (*accountRepo)(nil)

func (r *accountRepo) Create(_ context.Context, account *auth.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.accounts {
		if existing.Email == account.Email {
			return oops.Code(auth.CodeDuplicateEmail).
				With("email", account.Email).
				Wrap(auth.ErrDuplicateEmail)
		}
	}
	if _, ok := r.s.accounts[account.ID]; ok {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("id", account.ID.String()).
			Errorf("account id already exists")
	}
	stored := cloneAccount(account)
	r.s.accounts[account.ID] = &stored
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	out := cloneAccount(a)
	return &out, nil
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if a.Email == email {
			out := cloneAccount(a)
			return &out, nil
		}
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
}

func (r *accountRepo) RecordLoginFailure(_ context.Context, id ulid.ULID, maxAttempts int, lockUntil, at time.Time) (*auth.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	a.LoginAttempts++
	if (auth.LockoutPolicy{MaxAttempts: maxAttempts}).ShouldLock(a.LoginAttempts) {
		until := lockUntil
		a.LockedUntil = &until
	}
	a.UpdatedAt = at
	out := cloneAccount(a)
	return &out, nil
}

func (r *accountRepo) RecordLoginSuccess(_ context.Context, id ulid.ULID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	auth.ApplySuccess(a, at)
	return nil
}

func (r *accountRepo) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	a.PasswordHash = passwordHash
	a.LoginAttempts = 0
	a.LockedUntil = nil
	a.UpdatedAt = at
	return nil
}

func (r *accountRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[id]; !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(r.s.accounts, id)
	return nil
}

type sessionRepo struct{ s *Store }

var _ auth.SessionRepository = (*sessionRepo)(nil)

func (r *sessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[session.AccountID]; !ok {
		return oops.Code("SESSION_CREATE_FAILED").
			With("account_id", session.AccountID.String()).
			Errorf("account does not exist")
	}
	if _, ok := r.s.sessions[session.ID]; ok {
		return oops.Code("SESSION_CREATE_FAILED").
			With("session_id", session.ID.String()).
			Errorf("session id already exists")
	}
	stored := *session
	r.s.sessions[session.ID] = &stored
	return nil
}

func (r *sessionRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	out := *sess
	return &out, nil
}

func (r *sessionRepo) ListActive(_ context.Context, accountID ulid.ULID, now time.Time) ([]*auth.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*auth.Session
	for _, sess := range r.s.sessions {
		if sess.AccountID == accountID && sess.IsLiveAt(now) {
			c := *sess
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Compare(out[j].ID) < 0
	})
	return out, nil
}

func (r *sessionRepo) Touch(_ context.Context, id ulid.ULID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok || !sess.IsActive {
		return oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	sess.LastActivity = at
	return nil
}

func (r *sessionRepo) Deactivate(_ context.Context, id ulid.ULID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok || !sess.IsActive {
		return false, nil
	}
	sess.IsActive = false
	return true, nil
}

func (r *sessionRepo) DeactivateAll(_ context.Context, accountID ulid.ULID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, sess := range r.s.sessions {
		if sess.AccountID == accountID && sess.IsActive {
			sess.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *sessionRepo) DeleteByAccount(_ context.Context, accountID ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, sess := range r.s.sessions {
		if sess.AccountID == accountID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

type eventRepo struct{ s *Store }

var _ auth.SecurityEventRepository = (*eventRepo)(nil)

func (r *eventRepo) Append(_ context.Context, event *auth.SecurityEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[event.AccountID]; !ok {
		return oops.Code("SECURITY_EVENT_APPEND_FAILED").
			With("account_id", event.AccountID.String()).
			Errorf("account does not exist")
	}
	stored := *event
	r.s.events = append(r.s.events, &stored)
	return nil
}

func (r *eventRepo) ListByAccount(_ context.Context, accountID ulid.ULID, limit int) ([]*auth.SecurityEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*auth.SecurityEvent
	for i := len(r.s.events) - 1; i >= 0; i-- {
		e := r.s.events[i]
		if e.AccountID != accountID {
			continue
		}
		c := *e
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *eventRepo) DeleteByAccount(_ context.Context, accountID ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.events[:0]
	for _, e := range r.s.events {
		if e.AccountID != accountID {
			kept = append(kept, e)
		}
	}
	r.s.events = kept
	return nil
}
