// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/mindchat/internal/config"
)

const redacted = "********"

func newConfigCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the configuration file",
	}

	var showSecrets bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			if !showSecrets {
				cfg = redactSecrets(cfg)
			}
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		},
	}
	show.Flags().BoolVar(&showSecrets, "secrets", false, "include the JWT secret and upstream key")

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := o.configPath
			if path == "" {
				var err error
				if path, err = config.PathTOML(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Wrote "+path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.configPath != "" {
				fmt.Fprintln(cmd.OutOrStdout(), o.configPath)
				return nil
			}
			p, err := config.PathTOML()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.AddCommand(show, initCmd, path)
	return cmd
}

// redactSecrets returns a copy of cfg with credentials masked.
func redactSecrets(cfg *config.Config) *config.Config {
	out := *cfg
	if out.Server.JWTSecret != "" {
		out.Server.JWTSecret = redacted
	}
	if out.Server.UpstreamKey != "" {
		out.Server.UpstreamKey = redacted
	}
	if len(cfg.Server.Users) > 0 {
		out.Server.Users = make([]config.UserConfig, len(cfg.Server.Users))
		copy(out.Server.Users, cfg.Server.Users)
		for i := range out.Server.Users {
			out.Server.Users[i].PasswordHash = redacted
		}
	}
	return &out
}
