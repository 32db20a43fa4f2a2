// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package main

import (
	"log/slog"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/dealscope/authd/internal/config"
	"github.com/dealscope/authd/internal/logging"
	"github.com/dealscope/authd/internal/store"
)

// NewMigrateCmd creates the migrate command group. A nil deps uses the defaults.
func NewMigrateCmd(configFile *string, deps *MigrateDeps) *cobra.Command {
	if deps == nil {
		deps = &MigrateDeps{}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(databaseURL string, logger *slog.Logger) (Migrator, error) {
			return store.NewMigrator(databaseURL, logger)
		}
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply, roll back or inspect the embedded PostgreSQL migrations.
The database URL comes from database_url in the config file,
AUTHD_DATABASE_URL or --database-url.`,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")

	cmd.AddCommand(newMigrateUpCmd(configFile, deps))
	cmd.AddCommand(newMigrateDownCmd(configFile, deps))
	cmd.AddCommand(newMigrateStatusCmd(configFile, deps))
	cmd.AddCommand(newMigrateForceCmd(configFile, deps))
	return cmd
}

func newMigrateUpCmd(configFile *string, deps *MigrateDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, *configFile, deps, func(m Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "up").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
}

func newMigrateDownCmd(configFile *string, deps *MigrateDeps) *cobra.Command {
	var (
		steps int
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (one step by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !all && steps < 1 {
				return oops.Code("INVALID_ARGUMENT").With("steps", steps).Errorf("--steps must be at least 1")
			}
			return withMigrator(cmd, *configFile, deps, func(m Migrator) error {
				var err error
				if all {
					cmd.Println("Rolling back all migrations...")
					err = m.Down()
				} else {
					cmd.Printf("Rolling back %d migration(s)...\n", steps)
					err = m.Steps(-steps)
				}
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "down").Wrap(err)
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")
	return cmd
}

func newMigrateStatusCmd(configFile *string, deps *MigrateDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the schema version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, *configFile, deps, func(m Migrator) error {
				status, err := m.Status()
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "status").Wrap(err)
				}
				cmd.Printf("Version: %d", status.Version)
				if status.Dirty {
					cmd.Print(" (dirty)")
				}
				cmd.Println()
				printMigrations(cmd, "Applied", status.Applied)
				printMigrations(cmd, "Pending", status.Pending)
				return nil
			})
		},
	}
}

func newMigrateForceCmd(configFile *string, deps *MigrateDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Record VERSION as the current schema version and clear the dirty flag.
Use it to recover after a failed migration has been repaired by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_ARGUMENT").With("version", args[0]).Errorf("version must be an integer")
			}
			return withMigrator(cmd, *configFile, deps, func(m Migrator) error {
				if err := m.Force(target); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "force").Wrap(err)
				}
				cmd.Printf("Forced schema version to %d\n", target)
				return nil
			})
		},
	}
}

// withMigrator resolves the database URL, opens a migrator, runs fn and
// closes the migrator.
func withMigrator(cmd *cobra.Command, configFile string, deps *MigrateDeps, fn func(Migrator) error) error {
	cfg, err := config.Read(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").With("field", "database_url").
			Errorf("database url is required; set database_url, AUTHD_DATABASE_URL or --database-url")
	}

	logger := logging.Setup(serviceName, version, "text", cfg.SlogLevel(), cmd.ErrOrStderr())
	m, err := deps.MigratorFactory(cfg.DatabaseURL, logger)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()
	return fn(m)
}

func printMigrations(cmd *cobra.Command, label string, versions []uint) {
	cmd.Printf("%s: %d\n", label, len(versions))
	for _, v := range versions {
		name, err := store.MigrationName(v)
		if err != nil {
			name = strconv.FormatUint(uint64(v), 10)
		}
		cmd.Printf("  %s\n", name)
	}
}
