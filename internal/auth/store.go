// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Store hands out repositories bound to one connection or transaction.
type Store interface {
	Accounts() AccountRepository
	Sessions() SessionRepository
	Events() SecurityEventRepository

	// WithAccountLock runs fn while holding an exclusive lock on the account.
	// Repositories reached through the Store passed to fn see one consistent
	// transaction; if fn returns an error nothing it wrote is kept.
	// Returns an error wrapping ErrNotFound if the account does not exist.
	WithAccountLock(ctx context.Context, accountID ulid.ULID, fn func(tx Store) error) error
}
