// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"net"

	"github.com/dealscope/authd/internal/auth"
	"github.com/dealscope/authd/internal/config"
	"github.com/dealscope/authd/internal/observability"
	"github.com/dealscope/authd/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendFactory opens the configured auth store.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// LogWriter receives the structured log.
	// Default: os.Stderr
	LogWriter io.Writer

	// OnReady is called once both servers are accepting connections.
	OnReady func(apiAddr, metricsAddr string)
}

// MigrateDeps contains injectable dependencies for the migrate commands.
type MigrateDeps struct {
	// MigratorFactory creates a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string, logger *slog.Logger) (Migrator, error)
}

// Backend is an opened auth store with its lifecycle hooks.
type Backend struct {
	Store auth.Store
	// Ping reports whether the store can serve requests.
	Ping  func(ctx context.Context) error
	Close func()
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Steps(n int) error
	Down() error
	Force(version int) error
	Status() (*store.MigrationStatus, error)
	Close() error
}
