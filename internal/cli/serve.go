// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/logging"
	"github.com/jeranaias/mindchat/internal/server"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development backend",
		Long: `Run a local backend that speaks the same HTTP API the client uses.

Replies come from the OpenAI-compatible endpoint in [server] upstream_url
when one is set, and from an offline echo responder otherwise. Accounts are
listed under [server.users] with bcrypt hashes (see 'serve hash-password')
or created with 'mindchat signup'. Signups last until the server stops.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, err := logging.New(logging.Config{
				Level:       cfg.Log.Level,
				Development: cfg.Log.Development,
				OutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("failed to start logging: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			srv, err := server.New(cfg, server.Options{Logger: logger})
			if err != nil {
				return err
			}
			logger.Info("starting backend", zap.String("addr", cfg.Server.Addr), zap.String("version", Version))
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from [server] addr)")
	cmd.AddCommand(newHashPasswordCmd())
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for a [server.users] entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := newPrompter(cmd).secret("Password: ")
			if err != nil {
				return err
			}
			if len(password) < minPasswordLength {
				return fmt.Errorf("password must be at least %d characters", minPasswordLength)
			}
			hash, err := server.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
