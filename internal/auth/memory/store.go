// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

// Package memory provides an in-process auth.Store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dealscope/authd/internal/auth"
)

// Store keeps accounts, sessions and security events in maps.
// It is safe for concurrent use. Per-account locks serialise
// WithAccountLock callers; a failing callback has its writes to that
// account's rows undone.
type Store struct {
	mu       sync.RWMutex
	accounts map[ulid.ULID]*auth.Account
	sessions map[ulid.ULID]*auth.Session
	events   []*auth.SecurityEvent

	locksMu sync.Mutex
	locks   map[ulid.ULID]*sync.Mutex
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[ulid.ULID]*auth.Account),
		sessions: make(map[ulid.ULID]*auth.Session),
		locks:    make(map[ulid.ULID]*sync.Mutex),
	}
}

var _ auth.Store = (*Store)(nil)

// Accounts implements auth.Store.
func (s *Store) Accounts() auth.AccountRepository { return &accountRepo{s: s} }

// Sessions implements auth.Store.
func (s *Store) Sessions() auth.SessionRepository { return &sessionRepo{s: s} }

// Events implements auth.Store.
func (s *Store) Events() auth.SecurityEventRepository { return &eventRepo{s: s} }

// WithAccountLock implements auth.Store.
func (s *Store) WithAccountLock(ctx context.Context, accountID ulid.ULID, fn func(tx auth.Store) error) error {
	return s.withLock(ctx, accountID, fn)
}

func (s *Store) withLock(ctx context.Context, accountID ulid.ULID, fn func(tx auth.Store) error) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("ACCOUNT_LOCK_FAILED").With("account_id", accountID.String()).Wrap(err)
	}

	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	snap, ok := s.snapshot(accountID)
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("account_id", accountID.String()).
			Wrap(auth.ErrNotFound)
	}

	if err := fn(&lockedStore{Store: s, held: accountID}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) accountLock(id ulid.ULID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// lockedStore is the Store handed to WithAccountLock callbacks. Nested
// calls for the held account run inline.
type lockedStore struct {
	*Store
	held ulid.ULID
}

func (l *lockedStore) WithAccountLock(ctx context.Context, accountID ulid.ULID, fn func(tx auth.Store) error) error {
	if accountID == l.held {
		return fn(l)
	}
	return l.withLock(ctx, accountID, fn)
}

type accountSnapshot struct {
	accountID ulid.ULID
	account   auth.Account
	sessions  map[ulid.ULID]auth.Session
	events    []*auth.SecurityEvent
}

func (s *Store) snapshot(accountID ulid.ULID) (*accountSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, false
	}
	snap := &accountSnapshot{
		accountID: accountID,
		account:   cloneAccount(account),
		sessions:  make(map[ulid.ULID]auth.Session),
	}
	for id, sess := range s.sessions {
		if sess.AccountID == accountID {
			snap.sessions[id] = *sess
		}
	}
	for _, e := range s.events {
		if e.AccountID == accountID {
			snap.events = append(snap.events, e)
		}
	}
	return snap, true
}

func (s *Store) restore(snap *accountSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := snap.account
	s.accounts[snap.accountID] = &account

	for id, sess := range s.sessions {
		if sess.AccountID == snap.accountID {
			if _, keep := snap.sessions[id]; !keep {
				delete(s.sessions, id)
			}
		}
	}
	for id, sess := range snap.sessions {
		restored := sess
		s.sessions[id] = &restored
	}

	kept := s.events[:0]
	for _, e := range s.events {
		if e.AccountID != snap.accountID {
			kept = append(kept, e)
		}
	}
	kept = append(kept, snap.events...)
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].ID.Compare(kept[j].ID) < 0 })
	s.events = kept
}

func cloneAccount(a *auth.Account) auth.Account {
	out := *a
	if a.LockedUntil != nil {
		t := *a.LockedUntil
		out.LockedUntil = &t
	}
	if a.LastLogin != nil {
		t := *a.LastLogin
		out.LastLogin = &t
	}
	if a.Profile.Specialties != nil {
		out.Profile.Specialties = append([]string(nil), a.Profile.Specialties...)
	}
	if a.Profile.ExperienceYears != nil {
		y := *a.Profile.ExperienceYears
		out.Profile.ExperienceYears = &y
	}
	return out
}
