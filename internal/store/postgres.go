// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

// Package store owns the PostgreSQL connection and schema lifecycle.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions tunes how NewPool waits for the database.
type ConnectOptions struct {
	// MaxRetries bounds the ping attempts after the first.
	MaxRetries uint64
	// InitialBackoff is the first delay of the exponential backoff.
	InitialBackoff time.Duration
	Logger         *slog.Logger
}

// DefaultConnectOptions waits up to roughly six seconds for the database.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{MaxRetries: 5, InitialBackoff: 200 * time.Millisecond}
}

// NewPool opens a pgx pool for databaseURL and pings it until it answers.
func NewPool(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, oops.Code("DB_CONFIG_INVALID").Errorf("database url is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(opts.MaxRetries, retry.NewExponential(opts.InitialBackoff))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}

	logger.Info("database connected",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns,
	)
	return pool, nil
}
