// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jeranaias/mindchat/internal/exchange"
	"github.com/jeranaias/mindchat/internal/export"
	"github.com/jeranaias/mindchat/internal/model"
)

const (
	plainPrompt      = "you> "
	historyFileName  = "chat_history"
	defaultWrapWidth = 80
)

func newChatCmd(o *rootOptions) *cobra.Command {
	var (
		plain     bool
		fresh     bool
		sessionID int64
	)

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Open a conversation",
		Long: `Open a conversation in the full-screen chat.

With --plain the conversation runs line by line, for terminals that cannot
host the full-screen view. Given a message, chat sends it once, prints the
reply, and exits.`,
		Example: `  mindchat chat --new
  mindchat chat --plain --session 1718000000000
  mindchat chat "I couldn't sleep last night"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(o)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			target := chatTarget{sessionID: sessionID, fresh: fresh}
			out := cmd.OutOrStdout()

			if len(args) > 0 || plain {
				if err := startChat(ctx, app, target); err != nil {
					return err
				}
				pc := &plainChat{app: app, out: out, width: outputWidth(out)}
				if len(args) > 0 {
					return pc.send(ctx, strings.Join(args, " "))
				}
				return runPlainChat(ctx, pc)
			}
			return runTUI(ctx, app, target)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "line-by-line chat without the full-screen view")
	cmd.Flags().BoolVar(&fresh, "new", false, "start a new conversation")
	cmd.Flags().Int64Var(&sessionID, "session", 0, "resume the conversation with this id")
	cmd.MarkFlagsMutuallyExclusive("new", "session")
	return cmd
}

// outputWidth is the terminal width when out is a terminal.
func outputWidth(out io.Writer) int {
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			return w - 2
		}
	}
	return defaultWrapWidth
}

// =============================================================================
// LINE MODE
// =============================================================================

// lineReader is the part of liner.State the loop uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// plainChat prints a conversation as plain lines.
type plainChat struct {
	app   *App
	out   io.Writer
	in    lineReader
	width int
}

// runPlainChat runs the prompt loop on a liner terminal with input history
// kept in the data directory.
func runPlainChat(ctx context.Context, pc *plainChat) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(pc.app.DataDir, historyFileName)
	if f, err := os.Open(historyPath); err == nil {
		if _, err := line.ReadHistory(f); err != nil {
			pc.app.Logger.Debug("failed to read chat history", zap.Error(err))
		}
		f.Close()
	}
	defer func() {
		f, err := os.OpenFile(historyPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return
		}
		defer f.Close()
		if _, err := line.WriteHistory(f); err != nil {
			pc.app.Logger.Debug("failed to write chat history", zap.Error(err))
		}
	}()

	pc.in = line
	return pc.loop(ctx)
}

func (pc *plainChat) loop(ctx context.Context) error {
	pc.printHeader()
	pc.printTranscript()

	for {
		input, err := pc.in.Prompt(plainPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(pc.out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		pc.in.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			quit, err := pc.command(input)
			if err != nil {
				fmt.Fprintln(pc.out, errorStyle.Render("Error:"), err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := pc.send(ctx, input); err != nil {
			return err
		}
	}
}

// send runs one exchange and prints its outcome.
func (pc *plainChat) send(ctx context.Context, text string) error {
	if pc.app.Prefs.Load().Typing {
		fmt.Fprintln(pc.out, dimStyle.Render("AI is typing..."))
	}

	res, err := pc.app.Exchange.Send(ctx, text)
	if err != nil {
		return err
	}

	switch res.Outcome {
	case exchange.OutcomeIgnored:
		return nil
	case exchange.OutcomeReplied, exchange.OutcomeFailed:
		if msgs := pc.app.Sessions.Messages(); len(msgs) > 0 {
			pc.printMessage(msgs[len(msgs)-1])
		}
	}

	if res.TitleApplied {
		if active, ok := pc.app.Sessions.Active(); ok {
			fmt.Fprintln(pc.out, dimStyle.Render(fmt.Sprintf("Conversation saved as %q", active.Name)))
		}
	}
	return nil
}

// command runs a slash command. It reports whether the loop should end.
func (pc *plainChat) command(input string) (bool, error) {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/?":
		pc.printHelp()

	case "/new":
		s, err := pc.app.Sessions.StartNewSession()
		if err != nil {
			return false, err
		}
		fmt.Fprintln(pc.out, successStyle.Render("Started "+s.Name))

	case "/clear":
		if err := pc.app.Sessions.ClearMessages(); err != nil {
			return false, err
		}
		fmt.Fprintln(pc.out, successStyle.Render("Conversation cleared"))

	case "/history":
		list := pc.app.Sessions.ListSessions()
		active, _ := pc.app.Sessions.Active()
		for i := len(list) - 1; i >= 0; i-- {
			marker := "  "
			if list[i].ID == active.ID {
				marker = "> "
			}
			fmt.Fprintf(pc.out, "%s%d  %s\n", marker, list[i].ID, list[i].Name)
		}

	case "/open":
		if len(args) != 1 {
			return false, errors.New("usage: /open <id>")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid session id %q", args[0])
		}
		if !pc.app.Sessions.LoadSession(id) {
			return false, fmt.Errorf("session %d not found", id)
		}
		pc.printHeader()
		pc.printTranscript()

	case "/export":
		format := export.FormatText
		if len(args) > 0 {
			format = export.Format(args[0])
		}
		path, err := pc.exportActive(format)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(pc.out, successStyle.Render("Exported to "+path))

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func (pc *plainChat) exportActive(format export.Format) (string, error) {
	active, ok := pc.app.Sessions.Active()
	if !ok {
		return "", errors.New("no active conversation")
	}
	opts := export.DefaultOptions()
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return "", err
	}
	return export.ExportToFile(active, exporter, opts)
}

// =============================================================================
// PRINTING
// =============================================================================

func (pc *plainChat) printHeader() {
	active, ok := pc.app.Sessions.Active()
	if !ok {
		return
	}
	fmt.Fprintln(pc.out, titleStyle.Render(active.Name))
	if user, err := pc.app.Auth.RequireUser(); err == nil {
		fmt.Fprintln(pc.out, labelStyle.Render("Signed in as "+user.DisplayName()))
	} else {
		fmt.Fprintln(pc.out, warnStyle.Render("Not signed in. Run `mindchat login` first."))
	}
	fmt.Fprintln(pc.out, dimStyle.Render("Type /help for commands, /quit to leave."))
	fmt.Fprintln(pc.out)
}

func (pc *plainChat) printTranscript() {
	for _, msg := range pc.app.Sessions.Messages() {
		pc.printMessage(msg)
	}
}

func (pc *plainChat) printMessage(msg model.ChatMessage) {
	stamp := msg.CreatedAt.Local().Format("15:04")
	body := wordwrap.String(msg.Message, pc.width)

	switch {
	case msg.IsUserMessage:
		fmt.Fprintf(pc.out, "%s %s\n", youStyle.Render("You"), dimStyle.Render(stamp))
		fmt.Fprintln(pc.out, body)
	case msg.AIModelUsed == "":
		fmt.Fprintf(pc.out, "%s %s\n", aiStyle.Render("AI"), dimStyle.Render(stamp))
		fmt.Fprintln(pc.out, warnStyle.Render(body))
	default:
		fmt.Fprintf(pc.out, "%s %s\n", aiStyle.Render("AI"), dimStyle.Render(stamp+" • "+msg.AIModelUsed))
		fmt.Fprintln(pc.out, body)
	}
	fmt.Fprintln(pc.out)
}

func (pc *plainChat) printHelp() {
	rows := [][2]string{
		{"/new", "start a new conversation"},
		{"/history", "list conversations"},
		{"/open <id>", "switch to a conversation"},
		{"/clear", "clear this conversation"},
		{"/export [format]", "save this conversation (text, markdown, json)"},
		{"/quit", "leave"},
	}
	for _, r := range rows {
		fmt.Fprintf(pc.out, "  %-18s %s\n", r[0], labelStyle.Render(r[1]))
	}
}
