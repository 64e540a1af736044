// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/exchange"
	"github.com/jeranaias/mindchat/internal/export"
	"github.com/jeranaias/mindchat/internal/logging"
	"github.com/jeranaias/mindchat/internal/model"
	"github.com/jeranaias/mindchat/internal/prefs"
	"github.com/jeranaias/mindchat/internal/session"
	"github.com/jeranaias/mindchat/internal/storage"
	"github.com/jeranaias/mindchat/internal/ui/styles"
	"github.com/jeranaias/mindchat/internal/voice"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// MaxInputLength caps a single message.
	MaxInputLength = 4000

	inputHeight  = 3
	headerHeight = 2
)

// Modal identifies which dialog, if any, covers the chat.
type Modal int

const (
	ModalNone Modal = iota
	ModalHistory
	ModalSettings
	ModalConfirmDelete
	ModalAlert
)

// Settings rows, in display order.
const (
	settingAutoScroll = iota
	settingFont
	settingTheme
	settingTyping
	settingDeleteAll
	settingClose
	settingCount
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Deps are the collaborators the chat screen drives. Sessions, Exchange,
// and Prefs are required.
type Deps struct {
	Sessions *session.Manager
	Exchange *exchange.Controller
	Prefs    *prefs.Store
	Voice    *voice.Input
	Watcher  *storage.Watcher
	Export   *export.Options
	// UserName is shown in the header when signed in.
	UserName string
	Logger   *zap.Logger
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	deps   Deps
	logger *zap.Logger

	// Styling
	theme *styles.Theme
	prefs prefs.Preferences
	keys  KeyMap

	// Dimensions
	width  int
	height int
	ready  bool

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// Snapshot of manager state, refreshed on every event
	active   model.ChatSession
	sessions []model.ChatSession

	responding bool
	// pending covers a send from submit until its SendDoneMsg, including
	// the window before the controller marks itself busy.
	pending   bool
	recording bool

	// Dialogs
	modal    Modal
	cursor   int
	alert    string
	status   string
	lastSeen int

	// Manager subscription
	events      <-chan session.Event
	unsubscribe func()

	// Markdown renderer, rebuilt when the wrap width changes
	renderer      *glamour.TermRenderer
	rendererWidth int
}

// New creates the chat model and subscribes to the session manager. Call
// Close when the program exits.
func New(deps Deps) *Model {
	ta := textarea.New()
	ta.Placeholder = "Share what's on your mind..."
	ta.CharLimit = MaxInputLength
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = styles.TypingSpinner

	p := prefs.Defaults()
	if deps.Prefs != nil {
		p = deps.Prefs.Load()
	}
	theme := styles.NewTheme(p)
	sp.Style = theme.Typing

	if deps.Voice == nil {
		deps.Voice = voice.NewInput(voice.Unsupported{}, deps.Exchange, deps.Logger)
	}
	if deps.Export == nil {
		deps.Export = export.DefaultOptions()
	}

	m := &Model{
		deps:     deps,
		logger:   logging.OrNop(deps.Logger).Named("ui"),
		theme:    theme,
		prefs:    p,
		keys:     DefaultKeyMap(),
		input:    ta,
		spinner:  sp,
		viewport: viewport.New(0, 0),
	}
	m.events, m.unsubscribe = deps.Sessions.Subscribe(0)
	m.refresh()
	return m
}

// Init starts listening for manager events and store changes.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, session.WaitForEvent(m.events)}
	if c := session.WatchStore(m.deps.Watcher); c != nil {
		cmds = append(cmds, c)
	}
	return tea.Batch(cmds...)
}

// Close unsubscribes from the manager and stops voice input.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.deps.Voice.Recording() {
		m.deps.Voice.Stop()
	}
}

// refresh copies the manager's state and re-renders the transcript.
func (m *Model) refresh() {
	m.sessions = m.deps.Sessions.ListSessions()
	if active, ok := m.deps.Sessions.Active(); ok {
		m.active = active
	} else {
		m.active = model.ChatSession{}
	}
	m.responding = m.pending || m.deps.Exchange.Responding()
	m.updateViewport()
}

// updateViewport re-renders the transcript and scrolls to the bottom when
// new messages arrived and auto-scroll is on.
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	grew := len(m.active.Messages) != m.lastSeen
	m.lastSeen = len(m.active.Messages)
	if m.prefs.AutoScroll && (grew || m.responding) {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Active returns the session on screen.
func (m *Model) Active() model.ChatSession { return m.active }

// Modal returns the open dialog.
func (m *Model) Modal() Modal { return m.modal }

// Alert returns the text of the open alert.
func (m *Model) Alert() string { return m.alert }

// Responding reports whether a reply is pending.
func (m *Model) Responding() bool { return m.responding }

// Input returns the text in the input box.
func (m *Model) Input() string { return m.input.Value() }

// Prefs returns the display settings in effect.
func (m *Model) Prefs() prefs.Preferences { return m.prefs }
