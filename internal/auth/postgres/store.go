// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

// Package postgres implements auth.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dealscope/authd/internal/auth"
)

// querier abstracts query execution for both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements auth.Store. A Store returned by NewStore runs every
// statement on the pool; the Store passed to a WithAccountLock callback runs
// them on that call's transaction.
type Store struct {
	pool Pool
	q    querier
	held map[ulid.ULID]struct{}
}

var _ auth.Store = (*Store)(nil)

// NewStore creates a Store backed by pool.
func NewStore(pool Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// Accounts implements auth.Store.
func (s *Store) Accounts() auth.AccountRepository { return &AccountRepository{q: s.q} }

// Sessions implements auth.Store.
func (s *Store) Sessions() auth.SessionRepository { return &SessionRepository{q: s.q} }

// Events implements auth.Store.
func (s *Store) Events() auth.SecurityEventRepository { return &SecurityEventRepository{q: s.q} }

// WithAccountLock begins a transaction, takes a row lock on the account and
// runs fn. The transaction commits when fn returns nil and rolls back
// otherwise. Called on a transaction-bound Store it locks within the same
// transaction.
func (s *Store) WithAccountLock(ctx context.Context, accountID ulid.ULID, fn func(tx auth.Store) error) error {
	if s.held != nil {
		if _, ok := s.held[accountID]; ok {
			return fn(s)
		}
		if err := lockAccount(ctx, s.q, accountID); err != nil {
			return err
		}
		s.held[accountID] = struct{}{}
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").With("account_id", accountID.String()).Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := lockAccount(ctx, tx, accountID); err != nil {
		return err
	}
	bound := &Store{q: tx, held: map[ulid.ULID]struct{}{accountID: {}}}
	if err := fn(bound); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").With("account_id", accountID.String()).Wrap(err)
	}
	return nil
}

func lockAccount(ctx context.Context, q querier, accountID ulid.ULID) error {
	var id string
	err := q.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, accountID.String()).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.Code("ACCOUNT_NOT_FOUND").With("account_id", accountID.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("ACCOUNT_LOCK_FAILED").With("account_id", accountID.String()).Wrap(err)
	}
	return nil
}

// stringOrNil maps the empty string to SQL NULL.
func stringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseULID(s, field string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, oops.With("operation", "parse "+field).With(field, s).Wrap(err)
	}
	return id, nil
}
