// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/exchange"
	"github.com/jeranaias/mindchat/internal/prefs"
	"github.com/jeranaias/mindchat/internal/session"
	"github.com/jeranaias/mindchat/internal/voice"
)

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case session.EventMsg:
		was := m.responding
		m.refresh()
		next := session.WaitForEvent(m.events)
		if m.responding && !was {
			return m, tea.Batch(next, m.spinner.Tick)
		}
		return m, next

	case session.StoreChangedMsg:
		return m, m.deps.Sessions.HandleStoreChanged(m.deps.Watcher)

	case SendDoneMsg:
		return m.handleSendDone(msg)

	case ExportDoneMsg:
		if msg.Err != nil {
			m.showAlert("Export failed: " + msg.Err.Error())
		} else {
			m.showAlert("Chat exported to " + msg.Path)
		}
		return m, nil

	case VoiceStartedMsg:
		return m.handleVoiceStarted(msg)

	case TranscriptMsg:
		return m.handleTranscript(msg)

	case spinner.TickMsg:
		if !m.responding {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateViewport()
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	m.input.SetWidth(max(msg.Width-4, 10))

	vpHeight := msg.Height - headerHeight - inputHeight - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight
	m.ready = true
	m.updateViewport()
}

// =============================================================================
// KEYBOARD
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}

	switch m.modal {
	case ModalHistory:
		return m.handleHistoryKey(msg)
	case ModalSettings:
		return m.handleSettingsKey(msg)
	case ModalConfirmDelete:
		return m.handleConfirmKey(msg)
	case ModalAlert:
		if key.Matches(msg, m.keys.Cancel, m.keys.Send) {
			m.modal = ModalNone
			m.alert = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.responding {
			m.deps.Exchange.Cancel()
			m.status = "Reply cancelled"
		}
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m.submit()

	case key.Matches(msg, m.keys.NewSession):
		if _, err := m.deps.Sessions.StartNewSession(); err != nil {
			m.reportError("Could not start a new chat", err)
		}
		return m, nil

	case key.Matches(msg, m.keys.History):
		m.openHistory()
		return m, nil

	case key.Matches(msg, m.keys.Settings):
		m.modal = ModalSettings
		m.cursor = 0
		return m, nil

	case key.Matches(msg, m.keys.Export):
		return m, exportCmd(m.active, m.deps.Export)

	case key.Matches(msg, m.keys.Clear):
		if err := m.deps.Sessions.ClearMessages(); err != nil {
			m.reportError("Could not clear the chat", err)
		}
		return m, nil

	case key.Matches(msg, m.keys.Voice):
		return m.toggleVoice()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	// Input is disabled while a reply is pending.
	if m.responding {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	if m.responding {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.status = ""
	m.pending = true
	m.responding = true
	return m, tea.Batch(m.spinner.Tick, sendCmd(m.deps.Exchange, text))
}

func (m *Model) handleSendDone(msg SendDoneMsg) (tea.Model, tea.Cmd) {
	m.pending = false
	m.refresh()
	if msg.Err != nil {
		m.reportError("Message not sent", msg.Err)
		return m, nil
	}
	if msg.Result.Outcome == exchange.OutcomeFailed {
		m.logger.Warn("exchange failed", zap.Error(msg.Result.Err))
	}
	return m, nil
}

// =============================================================================
// HISTORY
// =============================================================================

// openHistory lists sessions newest first with the active one selected.
func (m *Model) openHistory() {
	m.modal = ModalHistory
	m.cursor = 0
	list := m.historyItems()
	for i, s := range list {
		if s.ID == m.active.ID {
			m.cursor = i
			break
		}
	}
}

func (m *Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.historyItems()
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.modal = ModalNone
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Send):
		if m.cursor >= 0 && m.cursor < len(items) {
			m.deps.Sessions.LoadSession(items[m.cursor].ID)
		}
		m.modal = ModalNone
	}
	return m, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.modal = ModalNone
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < settingCount-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		m.activateSetting(m.cursor)
	}
	return m, nil
}

func (m *Model) activateSetting(row int) {
	p := m.prefs
	var err error
	switch row {
	case settingAutoScroll:
		p.AutoScroll = !p.AutoScroll
		err = m.deps.Prefs.SetAutoScroll(p.AutoScroll)
	case settingFont:
		p.Font = prefs.NextFont(p.Font)
		err = m.deps.Prefs.SetFont(p.Font)
	case settingTheme:
		p.Theme = prefs.NextTheme(p.Theme)
		err = m.deps.Prefs.SetTheme(p.Theme)
	case settingTyping:
		p.Typing = !p.Typing
		err = m.deps.Prefs.SetTyping(p.Typing)
	case settingDeleteAll:
		m.modal = ModalConfirmDelete
		return
	case settingClose:
		m.modal = ModalNone
		return
	}
	if err != nil {
		m.reportError("Could not save the setting", err)
		return
	}
	m.applyPrefs(p)
}

func (m *Model) applyPrefs(p prefs.Preferences) {
	m.prefs = p
	m.theme.Apply(p)
	m.spinner.Style = m.theme.Typing
	m.updateViewport()
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		if err := m.deleteAll(); err != nil {
			m.reportError("Could not delete chats", err)
			return m, nil
		}
		m.modal = ModalNone
		m.status = "All chats deleted"
	case key.Matches(msg, m.keys.Deny):
		m.modal = ModalSettings
	}
	return m, nil
}

// deleteAll clears every session and starts over with a fresh one.
func (m *Model) deleteAll() error {
	m.deps.Exchange.Cancel()
	if err := m.deps.Sessions.DeleteAll(); err != nil {
		return err
	}
	if err := m.deps.Sessions.Hydrate(); err != nil {
		return err
	}
	m.refresh()
	return nil
}

// =============================================================================
// VOICE
// =============================================================================

func (m *Model) toggleVoice() (tea.Model, tea.Cmd) {
	if !m.recording {
		if m.responding {
			return m, nil
		}
		return m, startVoiceCmd(m.deps.Voice)
	}
	m.recording = false
	return m, m.finishVoice(m.deps.Voice.Stop())
}

func (m *Model) handleVoiceStarted(msg VoiceStartedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if errors.Is(msg.Err, voice.ErrVoiceUnsupported) {
			m.showAlert("Voice input is not supported here. Set [voice] command in the config to use a speech recognizer.")
		} else {
			m.reportError("Could not start voice input", msg.Err)
		}
		return m, nil
	}
	m.recording = true
	m.status = "Listening..."
	return m, waitTranscriptCmd(msg.Transcripts)
}

func (m *Model) handleTranscript(msg TranscriptMsg) (tea.Model, tea.Cmd) {
	// Updates that arrive after a manual stop are dropped.
	if !m.recording {
		return m, nil
	}
	if msg.Closed {
		m.recording = false
		return m, m.finishVoice(m.deps.Voice.Stop())
	}
	if msg.Transcript.Err != nil {
		m.logger.Warn("recognizer error", zap.Error(msg.Transcript.Err))
	}
	m.input.SetValue(m.deps.Voice.Observe(msg.Transcript))
	return m, waitTranscriptCmd(msg.Transcripts)
}

func (m *Model) finishVoice(transcript string) tea.Cmd {
	m.status = ""
	m.input.Reset()
	if strings.TrimSpace(transcript) == "" {
		return nil
	}
	m.pending = true
	m.responding = true
	return tea.Batch(m.spinner.Tick, submitVoiceCmd(m.deps.Voice, transcript))
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) showAlert(text string) {
	m.alert = text
	m.modal = ModalAlert
}

func (m *Model) reportError(what string, err error) {
	m.logger.Error(strings.ToLower(what), zap.Error(err))
	m.showAlert(fmt.Sprintf("%s: %v", what, err))
}
