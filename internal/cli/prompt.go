// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errNeedsConfirmation is returned when a destructive command cannot prompt.
var errNeedsConfirmation = errors.New("refusing to continue without confirmation; pass --yes")

// prompter reads answers from the command's input. Secrets are read without
// echo when the input is a terminal.
type prompter struct {
	in  *bufio.Reader
	raw io.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	raw := cmd.InOrStdin()
	return &prompter{
		in:  bufio.NewReader(raw),
		raw: raw,
		out: cmd.ErrOrStderr(),
	}
}

// interactive reports whether a person is at the other end.
func (p *prompter) interactive() bool {
	return isTerminal(p.raw)
}

// line prompts for one line of text.
func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimSpace(s), nil
}

// secret prompts for a password.
func (p *prompter) secret(label string) (string, error) {
	if f, ok := p.raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	s, err := p.line(label)
	if err != nil {
		return "", err
	}
	return s, nil
}

// confirm asks a yes/no question. With yes set it returns true without
// asking; without a terminal it refuses.
func (p *prompter) confirm(action string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	if !p.interactive() {
		return false, errNeedsConfirmation
	}
	answer, err := p.line(warnStyle.Render(action+"?") + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
