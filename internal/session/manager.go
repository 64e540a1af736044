// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/logging"
	"github.com/jeranaias/mindchat/internal/model"
)

// ErrSessionNotFound is returned when an operation names a session that is
// neither stored nor held in memory.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoActiveSession is returned by operations on the active session before
// one exists (after DeleteAll, before Hydrate).
var ErrNoActiveSession = errors.New("no active session")

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns the in-memory view of all sessions and the active one. The
// store stays the source of truth: every mutation is a fresh
// read-modify-write through Store.update, so writes from other processes
// are never overwritten.
type Manager struct {
	mu sync.Mutex

	store  *Store
	ids    *model.IDSource
	now    func() time.Time
	logger *zap.Logger

	// sessions is the list as last read or written.
	sessions []model.ChatSession
	// lastRaw is the stored value sessions was decoded from.
	lastRaw string

	active    model.ChatSession
	hasActive bool

	subs    map[int]chan Event
	nextSub int
}

// Options configures a Manager. Zero values use the wall clock, a fresh
// IDSource, and a no-op logger.
type Options struct {
	Now    func() time.Time
	IDs    *model.IDSource
	Logger *zap.Logger
}

// NewManager creates a manager over store. Call Hydrate before use.
func NewManager(store *Store, opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ids := opts.IDs
	if ids == nil {
		ids = model.NewIDSourceWithClock(now)
	}
	return &Manager{
		store:    store,
		ids:      ids,
		now:      now,
		logger:   logging.OrNop(opts.Logger),
		sessions: []model.ChatSession{},
		subs:     make(map[int]chan Event),
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Hydrate loads the store. The most recently created session (the last in
// the list) becomes active; when there are none a new session is started.
func (m *Manager) Hydrate() error {
	m.mu.Lock()
	list, raw := m.store.snapshot()
	m.setSessionsLocked(list, raw)
	m.observeIDsLocked(list)

	if len(list) > 0 {
		m.active = list[len(list)-1].Clone()
		m.hasActive = true
		m.mu.Unlock()
		m.publish(Event{Kind: EventSessionsChanged})
		m.publish(Event{Kind: EventActiveChanged, SessionID: m.activeID()})
		return nil
	}
	m.mu.Unlock()

	_, err := m.StartNewSession()
	return err
}

// Reload re-reads the store after an external write. It reports whether
// anything changed. The active session is refreshed from the store when it
// is still there; otherwise the in-memory copy stays active.
func (m *Manager) Reload() (bool, error) {
	m.mu.Lock()
	list, raw := m.store.snapshot()
	if raw == m.lastRaw {
		m.mu.Unlock()
		return false, nil
	}
	m.setSessionsLocked(list, raw)
	m.observeIDsLocked(list)

	activeChanged := false
	if m.hasActive {
		if i := model.FindSession(list, m.active.ID); i >= 0 {
			m.active = list[i].Clone()
			activeChanged = true
		}
	}
	id := m.active.ID
	m.mu.Unlock()

	m.publish(Event{Kind: EventSessionsChanged})
	if activeChanged {
		m.publish(Event{Kind: EventMessagesChanged, SessionID: id})
	}
	return true, nil
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// StartNewSession creates an empty session, appends it to the stored list,
// and makes it active.
func (m *Manager) StartNewSession() (model.ChatSession, error) {
	m.mu.Lock()

	created := model.NewSession(m.ids.Next(), m.now())
	list, raw, err := m.store.update(func(list []model.ChatSession) ([]model.ChatSession, error) {
		// Another process may have taken this millisecond.
		for model.FindSession(list, created.ID) >= 0 {
			created.ID = m.ids.Next()
		}
		return append(list, created), nil
	})
	if err != nil {
		m.mu.Unlock()
		return model.ChatSession{}, err
	}

	m.setSessionsLocked(list, raw)
	m.active = created.Clone()
	m.hasActive = true
	m.mu.Unlock()

	m.logger.Debug("started session", zap.Int64("session_id", created.ID))
	m.publish(Event{Kind: EventSessionsChanged})
	m.publish(Event{Kind: EventActiveChanged, SessionID: created.ID})
	return created.Clone(), nil
}

// LoadSession makes the session with id active. An unknown id is a no-op
// and returns false.
func (m *Manager) LoadSession(id int64) bool {
	m.mu.Lock()
	i := model.FindSession(m.sessions, id)
	if i < 0 {
		m.mu.Unlock()
		return false
	}
	m.active = m.sessions[i].Clone()
	m.hasActive = true
	m.mu.Unlock()

	m.publish(Event{Kind: EventActiveChanged, SessionID: id})
	return true
}

// SaveSession re-reads the stored list, replaces the entry with the same
// id (appending when it is missing), and writes the list back.
func (m *Manager) SaveSession(s model.ChatSession) error {
	m.mu.Lock()
	err := m.saveLocked(s)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.publish(Event{Kind: EventSessionsChanged})
	m.publish(Event{Kind: EventMessagesChanged, SessionID: s.ID})
	return nil
}

func (m *Manager) saveLocked(s model.ChatSession) error {
	saved := s.Clone()
	list, raw, err := m.store.update(func(list []model.ChatSession) ([]model.ChatSession, error) {
		if i := model.FindSession(list, saved.ID); i >= 0 {
			// A title applied elsewhere is never undone.
			if list[i].TitleGenerated && !saved.TitleGenerated {
				saved.Name = list[i].Name
				saved.TitleGenerated = true
			}
			list[i] = saved
			return list, nil
		}
		return append(list, saved), nil
	})
	if err != nil {
		return err
	}

	m.setSessionsLocked(list, raw)
	if m.hasActive && m.active.ID == saved.ID {
		m.active = saved.Clone()
	}
	return nil
}

// ListSessions returns the session list as last read or written, oldest
// first.
func (m *Manager) ListSessions() []model.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.ChatSession, len(m.sessions))
	for i := range m.sessions {
		out[i] = m.sessions[i].Clone()
	}
	return out
}

// ClearMessages empties the active session's transcript against a fresh
// read of the store. The stored name and title flag are kept, so a title
// applied by another process survives the clear.
func (m *Manager) ClearMessages() error {
	m.mu.Lock()
	if !m.hasActive {
		m.mu.Unlock()
		return ErrNoActiveSession
	}
	fallback := m.active.Clone()
	var cleared model.ChatSession
	list, raw, err := m.store.update(func(list []model.ChatSession) ([]model.ChatSession, error) {
		if i := model.FindSession(list, fallback.ID); i >= 0 {
			list[i].Messages = []model.ChatMessage{}
			cleared = list[i].Clone()
			return list, nil
		}
		cleared = fallback
		cleared.Messages = []model.ChatMessage{}
		return append(list, cleared.Clone()), nil
	})
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.setSessionsLocked(list, raw)
	m.active = cleared.Clone()
	m.mu.Unlock()

	m.publish(Event{Kind: EventSessionsChanged})
	m.publish(Event{Kind: EventMessagesChanged, SessionID: cleared.ID})
	return nil
}

// DeleteAll removes every stored session and resets the in-memory state.
// The caller confirms intent beforehand and calls Hydrate afterwards to
// start fresh.
func (m *Manager) DeleteAll() error {
	m.mu.Lock()
	if err := m.store.Clear(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.sessions = []model.ChatSession{}
	m.lastRaw = ""
	m.active = model.ChatSession{}
	m.hasActive = false
	m.mu.Unlock()

	m.logger.Info("deleted all sessions")
	m.publish(Event{Kind: EventCleared})
	return nil
}

// =============================================================================
// MESSAGE EXCHANGE SUPPORT
// =============================================================================

// AppendMessage appends msg to the session with sessionID against a fresh
// read of the store. A session missing from the store (deleted by another
// process mid-send) is re-added from memory rather than dropped.
func (m *Manager) AppendMessage(sessionID int64, msg model.ChatMessage) (model.ChatSession, error) {
	m.mu.Lock()

	fallback, haveFallback := m.lookupLocked(sessionID)
	var updated model.ChatSession
	list, raw, err := m.store.update(func(list []model.ChatSession) ([]model.ChatSession, error) {
		if i := model.FindSession(list, sessionID); i >= 0 {
			updated = list[i].WithMessage(msg)
			list[i] = updated
			return list, nil
		}
		if !haveFallback {
			return nil, ErrSessionNotFound
		}
		updated = fallback.WithMessage(msg)
		return append(list, updated), nil
	})
	if err != nil {
		m.mu.Unlock()
		return model.ChatSession{}, err
	}

	m.setSessionsLocked(list, raw)
	if m.hasActive && m.active.ID == sessionID {
		m.active = updated.Clone()
	}
	m.mu.Unlock()

	m.publish(Event{Kind: EventSessionsChanged})
	m.publish(Event{Kind: EventMessagesChanged, SessionID: sessionID})
	return updated.Clone(), nil
}

// ApplyTitle renames the session with a server-suggested title, once. It
// reports whether the title was applied; a blank title or a session that
// already has one is left alone.
func (m *Manager) ApplyTitle(sessionID int64, title string) (bool, error) {
	m.mu.Lock()

	fallback, haveFallback := m.lookupLocked(sessionID)
	applied := false
	var updated model.ChatSession
	list, raw, err := m.store.update(func(list []model.ChatSession) ([]model.ChatSession, error) {
		applied = false
		i := model.FindSession(list, sessionID)
		if i < 0 {
			if !haveFallback {
				return nil, ErrSessionNotFound
			}
			list = append(list, fallback.Clone())
			i = len(list) - 1
		}
		applied = list[i].ApplyTitle(title)
		updated = list[i]
		return list, nil
	})
	if err != nil {
		m.mu.Unlock()
		return false, err
	}

	m.setSessionsLocked(list, raw)
	if m.hasActive && m.active.ID == sessionID {
		m.active.Name = updated.Name
		m.active.TitleGenerated = updated.TitleGenerated
	}
	m.mu.Unlock()

	if applied {
		m.logger.Debug("applied session title", zap.Int64("session_id", sessionID))
		m.publish(Event{Kind: EventSessionsChanged})
		m.publish(Event{Kind: EventTitleChanged, SessionID: sessionID})
	}
	return applied, nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Active returns a copy of the active session.
func (m *Manager) Active() (model.ChatSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasActive {
		return model.ChatSession{}, false
	}
	return m.active.Clone(), true
}

// Messages returns the active session's transcript.
func (m *Manager) Messages() []model.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasActive {
		return nil
	}
	return m.active.Clone().Messages
}

// NextID returns an identifier for a new message.
func (m *Manager) NextID() int64 {
	return m.ids.Next()
}

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time {
	return m.now()
}

func (m *Manager) activeID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.ID
}

// lookupLocked finds sessionID in memory, preferring the active copy.
func (m *Manager) lookupLocked(sessionID int64) (model.ChatSession, bool) {
	if m.hasActive && m.active.ID == sessionID {
		return m.active.Clone(), true
	}
	if i := model.FindSession(m.sessions, sessionID); i >= 0 {
		return m.sessions[i].Clone(), true
	}
	return model.ChatSession{}, false
}

func (m *Manager) setSessionsLocked(list []model.ChatSession, raw string) {
	m.sessions = list
	m.lastRaw = raw
}

func (m *Manager) observeIDsLocked(list []model.ChatSession) {
	for _, s := range list {
		m.ids.Observe(s.ID)
		for _, msg := range s.Messages {
			m.ids.Observe(msg.ID)
		}
	}
}
