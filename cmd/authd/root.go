// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the authd CLI.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "authd",
		Short: "authd - account authentication and session service",
		Long: `authd registers accounts, authenticates them with lockout protection,
and issues bearer tokens bound to capped, device-aware sessions.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd(&configFile, nil))
	cmd.AddCommand(NewMigrateCmd(&configFile, nil))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("authd %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		},
	}
}
