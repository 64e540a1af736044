// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mindchat/internal/util"
)

// View renders the chat screen.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var overlay string
	switch m.modal {
	case ModalHistory:
		overlay = m.renderHistory()
	case ModalSettings:
		overlay = m.renderSettings()
	case ModalConfirmDelete:
		overlay = m.renderConfirm()
	case ModalAlert:
		overlay = m.renderAlert()
	}
	if overlay != "" {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderHeader(),
			lipgloss.Place(m.width, m.height-headerHeight, lipgloss.Center, lipgloss.Center, overlay),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderStatus(),
		m.renderInput(),
	)
}

// =============================================================================
// HEADER, STATUS, INPUT
// =============================================================================

func (m *Model) renderHeader() string {
	name := m.active.Name
	if name == "" {
		name = "No chat"
	}
	left := m.theme.HeaderTitle.Render(util.TruncateWidth(name, max(m.width/2, 10)))
	if m.recording {
		left += " " + m.theme.Recording.Render("● REC")
	}
	if m.deps.UserName != "" {
		left += m.theme.HeaderHint.Render("  " + m.deps.UserName)
	}

	hints := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, h.Key+" "+h.Desc)
	}
	right := m.theme.HeaderHint.Render(strings.Join(hints, "  "))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		right = ""
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	return m.theme.StatusMessage.Render(m.status)
}

func (m *Model) renderInput() string {
	style := m.theme.Input
	if m.responding {
		style = m.theme.InputDisabled
	}
	return style.Width(max(m.width-2, 10)).Render(m.input.View())
}

// =============================================================================
// MODALS
// =============================================================================

func (m *Model) modalWidth() int {
	return min(max(m.width-8, 30), 64)
}

func (m *Model) renderHistory() string {
	var b strings.Builder
	b.WriteString(m.theme.ModalTitle.Render("Chat History"))
	b.WriteString("\n")

	items := m.historyItems()
	if len(items) == 0 {
		b.WriteString(m.theme.ItemMeta.Render("No chats yet."))
	}
	width := m.modalWidth() - 6
	for i, s := range items {
		when := s.CreatedAt.Local().Format("Jan 2 2006 15:04")
		labelWidth := width - lipgloss.Width(when) - 1
		label := util.PadRight(historyLabel(s, labelWidth), labelWidth)
		if i == m.cursor {
			b.WriteString(m.theme.ItemSelected.Render(label + " " + when))
		} else {
			b.WriteString(m.theme.Item.Render(label + " " + m.theme.ItemMeta.Render(when)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render("↑/↓ move  enter open  esc close"))
	return m.theme.Modal.Width(m.modalWidth()).Render(b.String())
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (m *Model) settingRows() []string {
	return []string{
		fmt.Sprintf("Auto-scroll          %s", onOff(m.prefs.AutoScroll)),
		fmt.Sprintf("Chat font size       %s", m.prefs.Font),
		fmt.Sprintf("Chat bubble theme    %s", m.prefs.Theme),
		fmt.Sprintf("Typing indicator     %s", onOff(m.prefs.Typing)),
		"Delete all chats",
		"Close",
	}
}

func (m *Model) renderSettings() string {
	var b strings.Builder
	b.WriteString(m.theme.ModalTitle.Render("Chat Settings"))
	b.WriteString("\n")
	for i, row := range m.settingRows() {
		switch {
		case i == m.cursor:
			b.WriteString(m.theme.ItemSelected.Render(row))
		case i == settingDeleteAll:
			b.WriteString(m.theme.Item.Render(m.theme.Danger.Render(row)))
		default:
			b.WriteString(m.theme.Item.Render(row))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render("↑/↓ move  enter change  esc close"))
	return m.theme.Modal.Width(m.modalWidth()).Render(b.String())
}

func (m *Model) renderConfirm() string {
	body := m.theme.Danger.Render("Delete ALL chat sessions?") + "\n\n" +
		m.theme.Help.Render("This cannot be undone.  y yes  n no")
	return m.theme.Alert.Width(m.modalWidth()).Render(body)
}

func (m *Model) renderAlert() string {
	body := m.alert + "\n\n" + m.theme.Help.Render("enter ok")
	return m.theme.Alert.Width(m.modalWidth()).Render(body)
}
