// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/mindchat/internal/prefs"
)

// Theme holds all the styled components for the chat screen.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	Font    prefs.FontSize
	Palette BubblePalette

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderHint  lipgloss.Style
	Recording   lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	ErrorBubble     lipgloss.Style
	Meta            lipgloss.Style
	ModelLabel      lipgloss.Style
	Typing          lipgloss.Style
	Welcome         lipgloss.Style
	WelcomeTitle    lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	Input         lipgloss.Style
	InputDisabled lipgloss.Style

	// ==========================================================================
	// MODALS
	// ==========================================================================

	Modal         lipgloss.Style
	ModalTitle    lipgloss.Style
	Item          lipgloss.Style
	ItemSelected  lipgloss.Style
	ItemMeta      lipgloss.Style
	Danger        lipgloss.Style
	Alert         lipgloss.Style
	Help          lipgloss.Style
	StatusMessage lipgloss.Style
}

// NewTheme builds the styles for p on the current terminal.
func NewTheme(p prefs.Preferences) *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.Apply(p)
	return t
}

// Apply rebuilds the styles for p. Called when preferences change.
func (t *Theme) Apply(p prefs.Preferences) {
	t.Font = p.Font
	t.Palette = PaletteFor(p.Theme)
	t.initStyles()
}

// bubblePadding maps font size to vertical and horizontal padding.
func bubblePadding(f prefs.FontSize) (int, int) {
	switch f {
	case prefs.FontSmall:
		return 0, 1
	case prefs.FontLarge:
		return 1, 3
	default:
		return 0, 2
	}
}

func (t *Theme) initStyles() {
	vPad, hPad := bubblePadding(t.Font)
	bold := t.Font == prefs.FontLarge
	pal := t.Palette

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.HeaderHint = lipgloss.NewStyle().Foreground(TextMuted)
	t.Recording = lipgloss.NewStyle().Bold(true).Foreground(Rose)

	bubble := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(vPad, hPad).
		Bold(bold)

	t.UserBubble = bubble.
		Foreground(pal.UserFg).
		Background(pal.UserBg).
		BorderForeground(pal.UserBorder)

	t.AssistantBubble = bubble.
		Foreground(pal.AssistantFg).
		Background(pal.AssistantBg).
		BorderForeground(pal.AssistantBorder)

	t.ErrorBubble = bubble.
		Foreground(Rose).
		BorderForeground(Rose)

	t.Meta = lipgloss.NewStyle().Foreground(TextMuted)
	t.ModelLabel = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.Typing = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.Welcome = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Align(lipgloss.Center).
		Padding(1, 2)
	t.WelcomeTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)
	t.InputDisabled = t.Input.BorderForeground(Overlay)

	t.Modal = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)
	t.ModalTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple).MarginBottom(1)
	t.Item = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.ItemSelected = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Purple).
		Bold(true).
		PaddingLeft(2)
	t.ItemMeta = lipgloss.NewStyle().Foreground(TextMuted)
	t.Danger = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.Alert = t.Modal.BorderForeground(Amber)
	t.Help = lipgloss.NewStyle().Foreground(TextMuted)
	t.StatusMessage = lipgloss.NewStyle().Foreground(Emerald)
}

// BubbleWidth is the widest a message bubble may be inside width columns.
func BubbleWidth(width int) int {
	switch {
	case width < 40:
		return width - 2
	case width < 100:
		return width * 3 / 4
	default:
		return 72
	}
}

// TypingSpinner is the frame set shown next to "AI is typing...".
var TypingSpinner = spinner.Spinner{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    time.Second / 6,
}
