// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/mindchat/internal/api"
)

const minPasswordLength = 6

func newLoginCmd(o *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			var err error
			if email == "" {
				if email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			password, err := p.secret("Password: ")
			if err != nil {
				return err
			}

			app, err := openApp(o)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Auth.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			user, err := app.Auth.RequireUser()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Signed in as "+user.DisplayName()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newSignupCmd(o *rootOptions) *cobra.Command {
	var req api.RegisterRequest

	cmd := &cobra.Command{
		Use:     "signup",
		Aliases: []string{"register"},
		Short:   "Create an account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			var err error
			if req.Email == "" {
				if req.Email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			if req.FullName == "" {
				if req.FullName, err = p.line("Full name: "); err != nil {
					return err
				}
			}
			if req.Username == "" {
				if req.Username, err = p.line("Username: "); err != nil {
					return err
				}
			}
			if req.Password, err = p.secret("Password: "); err != nil {
				return err
			}
			if len(req.Password) < minPasswordLength {
				return fmt.Errorf("password must be at least %d characters", minPasswordLength)
			}
			if p.interactive() {
				again, err := p.secret("Confirm password: ")
				if err != nil {
					return err
				}
				if again != req.Password {
					return errors.New("passwords do not match")
				}
			}

			app, err := openApp(o)
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.Auth.Signup(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Account created for "+user.Email+". Run `mindchat login` to sign in."))
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Username, "username", "", "username")
	return cmd
}

func newLogoutCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(o)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Auth.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Signed out."))
			return nil
		},
	}
}

func newWhoamiCmd(o *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(o)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Auth.Hydrate(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			user, err := app.Auth.RequireUser()
			if err != nil {
				if asJSON {
					return writeJSON(out, map[string]any{"authenticated": false})
				}
				fmt.Fprintln(out, dimStyle.Render("Not signed in."))
				return nil
			}

			if asJSON {
				return writeJSON(out, map[string]any{"authenticated": true, "user": user})
			}
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Name:    "), user.DisplayName())
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Email:   "), user.Email)
			if user.Username != "" {
				fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Username:"), user.Username)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
