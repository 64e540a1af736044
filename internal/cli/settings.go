// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/mindchat/internal/prefs"
)

// settingAliases maps short names to storage keys.
var settingAliases = map[string]string{
	"font":       prefs.KeyFont,
	"theme":      prefs.KeyTheme,
	"autoscroll": prefs.KeyAutoScroll,
	"typing":     prefs.KeyTyping,
}

func resolveSettingKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if key, ok := settingAliases[name]; ok {
		return key
	}
	return name
}

func newSettingsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change display settings",
		Long: `Read and change the chat display settings.

Keys: chat_font (small, medium, large), chat_theme (default, blue, green,
grey), chat_autoscroll (on, off), chat_typing (on, off). The short names
font, theme, autoscroll and typing also work. A running chat picks up
changes the next time it redraws.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show every setting",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := openApp(o)
				if err != nil {
					return err
				}
				defer app.Close()

				out := cmd.OutOrStdout()
				for _, key := range prefs.Keys() {
					value, err := app.Prefs.Get(key)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-16s", key)), value)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := openApp(o)
				if err != nil {
					return err
				}
				defer app.Close()

				value, err := app.Prefs.Get(resolveSettingKey(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := openApp(o)
				if err != nil {
					return err
				}
				defer app.Close()

				key := resolveSettingKey(args[0])
				if err := app.Prefs.Set(key, args[1]); err != nil {
					return err
				}
				value, _ := app.Prefs.Get(key)
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("%s = %s", key, value)))
				return nil
			},
		},
	)
	return cmd
}
