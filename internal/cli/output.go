// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/jeranaias/mindchat/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(colorProfile())
}

// colorProfile honors NO_COLOR and FORCE_COLOR, and drops color when stdout
// is not a terminal.
func colorProfile() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return termenv.TrueColor
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(styles.Purple)
	labelStyle   = lipgloss.NewStyle().Foreground(styles.TextMuted)
	dimStyle     = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
	successStyle = lipgloss.NewStyle().Foreground(styles.Emerald)
	warnStyle    = lipgloss.NewStyle().Foreground(styles.Amber)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(styles.Rose)
	youStyle     = lipgloss.NewStyle().Bold(true).Foreground(styles.Cyan)
	aiStyle      = lipgloss.NewStyle().Bold(true).Foreground(styles.Purple)
)

// =============================================================================
// TERMINAL HELPERS
// =============================================================================

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
