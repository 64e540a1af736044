// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/model"
	"github.com/jeranaias/mindchat/internal/ui/styles"
	"github.com/jeranaias/mindchat/internal/util"
)

// timeFormat is the per-message timestamp.
const timeFormat = "15:04"

// renderTranscript renders the active session, or the welcome text when it
// has no messages yet.
func (m *Model) renderTranscript() string {
	if len(m.active.Messages) == 0 && !m.responding {
		return m.renderWelcome()
	}

	var b strings.Builder
	for i, msg := range m.active.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	if m.responding && m.prefs.Typing {
		b.WriteString("\n")
		b.WriteString(m.spinner.View())
		b.WriteString(m.theme.Typing.Render(" AI is typing..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderWelcome() string {
	title := m.theme.WelcomeTitle.Render("Welcome to AI Chat")
	body := "I'm here to help you with your mental health journey.\nStart a conversation below."
	block := m.theme.Welcome.Render(lipgloss.JoinVertical(lipgloss.Center, "♡", "", title, "", body))
	return lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center, block)
}

// renderMessage draws one bubble with its meta line, right-aligned for the
// user and left-aligned for the assistant.
func (m *Model) renderMessage(msg model.ChatMessage) string {
	hPad := m.theme.UserBubble.GetHorizontalPadding()
	contentMax := max(styles.BubbleWidth(m.width)-hPad-2, 8)

	var style lipgloss.Style
	var body string
	switch {
	case msg.IsUserMessage:
		style = m.theme.UserBubble
		body = msg.Message
	case msg.AIModelUsed == "":
		style = m.theme.ErrorBubble
		body = msg.Message
	default:
		style = m.theme.AssistantBubble
		body = m.renderMarkdown(msg.Message, contentMax)
	}

	w := min(lipgloss.Width(body), contentMax)
	bubble := style.Width(w + hPad).Render(body)

	meta := msg.CreatedAt.Local().Format(timeFormat)
	if !msg.IsUserMessage && msg.AIModelUsed != "" {
		meta += " • " + msg.AIModelUsed
	}
	block := lipgloss.JoinVertical(alignFor(msg), bubble, m.theme.Meta.Render(meta))
	return lipgloss.PlaceHorizontal(m.width, alignFor(msg), block)
}

func alignFor(msg model.ChatMessage) lipgloss.Position {
	if msg.IsUserMessage {
		return lipgloss.Right
	}
	return lipgloss.Left
}

// renderMarkdown renders assistant text. Rendering failures fall back to
// the raw text.
func (m *Model) renderMarkdown(text string, width int) string {
	if m.renderer == nil || m.rendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(glamourStyle(m.theme.ColorProfile, m.theme.IsDark)),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			m.logger.Debug("markdown renderer unavailable", zap.Error(err))
			return text
		}
		m.renderer = r
		m.rendererWidth = width
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return trimRendered(out)
}

func glamourStyle(profile termenv.Profile, dark bool) string {
	switch {
	case profile == termenv.Ascii:
		return "notty"
	case dark:
		return "dark"
	default:
		return "light"
	}
}

// trimRendered drops glamour's document margin: surrounding blank lines and
// trailing padding on each line.
func trimRendered(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	out := strings.Trim(strings.Join(lines, "\n"), "\n")
	return dedent(out)
}

// dedent removes the indentation shared by every non-blank line.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " "))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return s
	}
	for i, l := range lines {
		if len(l) >= indent {
			lines[i] = l[indent:]
		}
	}
	return strings.Join(lines, "\n")
}

// historyItems is the session list newest first.
func (m *Model) historyItems() []model.ChatSession {
	out := make([]model.ChatSession, len(m.sessions))
	for i, s := range m.sessions {
		out[len(m.sessions)-1-i] = s
	}
	return out
}

func historyLabel(s model.ChatSession, width int) string {
	return util.TruncateWidth(s.Name, max(width, 8))
}
