// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/mindchat/internal/export"
	"github.com/jeranaias/mindchat/internal/model"
	"github.com/jeranaias/mindchat/internal/util"
)

const (
	listNameWidth    = 32
	listPreviewRunes = 40
)

func newSessionsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session", "s"},
		Short:   "Manage saved conversations",
	}
	cmd.AddCommand(
		newSessionsListCmd(o),
		newSessionsShowCmd(o),
		newSessionsExportCmd(o),
		newSessionsClearCmd(o),
		newSessionsDeleteAllCmd(o),
	)
	return cmd
}

// sessionSummary is the JSON shape of `sessions list --json`.
type sessionSummary struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Messages       int       `json:"messages"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivity   time.Time `json:"last_activity"`
	TitleGenerated bool      `json:"title_generated"`
}

func newSessionsListCmd(o *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(o)
			if err != nil {
				return err
			}
			defer app.Close()

			list := app.Store.Load()
			out := cmd.OutOrStdout()

			if asJSON {
				summaries := make([]sessionSummary, 0, len(list))
				for i := len(list) - 1; i >= 0; i-- {
					s := list[i]
					summaries = append(summaries, sessionSummary{
						ID:             s.ID,
						Name:           s.Name,
						Messages:       len(s.Messages),
						CreatedAt:      s.CreatedAt,
						LastActivity:   s.LastActivity(),
						TitleGenerated: s.TitleGenerated,
					})
				}
				return writeJSON(out, summaries)
			}

			if len(list) == 0 {
				fmt.Fprintln(out, dimStyle.Render("No conversations yet."))
				return nil
			}
			printSessionTable(out, list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printSessionTable(out io.Writer, list []model.ChatSession) {
	fmt.Fprintf(out, "%s  %s  %s  %s\n",
		labelStyle.Render(util.PadRight("ID", 13)),
		labelStyle.Render(util.PadRight("NAME", listNameWidth)),
		labelStyle.Render(util.PadRight("MSGS", 4)),
		labelStyle.Render("LAST ACTIVE"))

	for i := len(list) - 1; i >= 0; i-- {
		s := list[i]
		name := util.PadRight(util.TruncateWidth(s.Name, listNameWidth), listNameWidth)
		fmt.Fprintf(out, "%-13d  %s  %4d  %s\n",
			s.ID, name, len(s.Messages),
			s.LastActivity().Local().Format("Jan 02 15:04"))
		if preview := s.Preview(listPreviewRunes); preview != "" {
			fmt.Fprintf(out, "%15s%s\n", "", dimStyle.Render(preview))
		}
	}
}

func newSessionsShowCmd(o *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a conversation (the latest when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(o)
			if err != nil {
				return err
			}
			defer app.Close()

			s, err := pickSession(app.Store.Load(), args)
			if err != nil {
				return err
			}
			exporter, err := export.ForFormat(export.Format(format), export.DefaultOptions())
			if err != nil {
				return err
			}
			data, err := exporter.Export(s)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if export.Format(format) == export.FormatText {
				fmt.Fprintln(out, titleStyle.Render(s.Name))
			}
			_, err = out.Write(data)
			if err == nil && len(data) > 0 && data[len(data)-1] != '\n' {
				_, err = fmt.Fprintln(out)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatText), "output format: text, markdown, json")
	return cmd
}

func newSessionsExportCmd(o *rootOptions) *cobra.Command {
	var (
		format string
		outDir string
		open   bool
	)

	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Save a conversation to a file (the latest when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(o)
			if err != nil {
				return err
			}
			defer app.Close()

			s, err := pickSession(app.Store.Load(), args)
			if err != nil {
				return err
			}

			opts := export.DefaultOptions()
			opts.OutputDir = outDir
			opts.OpenAfterExport = open
			exporter, err := export.ForFormat(export.Format(format), opts)
			if err != nil {
				return err
			}
			path, err := export.ExportToFile(s, exporter, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Exported to "+path))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatText), "file format: text, markdown, json")
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "directory to write into")
	cmd.Flags().BoolVar(&open, "open", false, "open the file afterwards")
	return cmd
}

func newSessionsClearCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [id]",
		Short: "Remove every message from a conversation (the latest when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(o)
			if err != nil {
				return err
			}
			defer app.Close()

			s, err := pickSession(app.Store.Load(), args)
			if err != nil {
				return err
			}
			s.Messages = []model.ChatMessage{}
			if err := app.Sessions.SaveSession(s); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Cleared "+s.Name))
			return nil
		},
	}
}

func newSessionsDeleteAllCmd(o *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := newPrompter(cmd).confirm("Delete ALL chat sessions", yes)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, dimStyle.Render("Nothing deleted."))
				return nil
			}

			app, err := openApp(o)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Sessions.DeleteAll(); err != nil {
				return err
			}
			fmt.Fprintln(out, successStyle.Render("All conversations deleted."))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// pickSession returns the session named by args[0], or the latest one.
func pickSession(list []model.ChatSession, args []string) (model.ChatSession, error) {
	if len(args) == 0 {
		if len(list) == 0 {
			return model.ChatSession{}, fmt.Errorf("no conversations yet")
		}
		return list[len(list)-1], nil
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("invalid session id %q", args[0])
	}
	i := model.FindSession(list, id)
	if i < 0 {
		return model.ChatSession{}, fmt.Errorf("session %d not found", id)
	}
	return list[i], nil
}
