// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/storage"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies what changed.
type EventKind int

const (
	// EventSessionsChanged means the session list changed.
	EventSessionsChanged EventKind = iota
	// EventActiveChanged means a different session became active.
	EventActiveChanged
	// EventMessagesChanged means a session's transcript changed.
	EventMessagesChanged
	// EventTitleChanged means a session received its generated title.
	EventTitleChanged
	// EventCleared means every session was deleted.
	EventCleared
)

func (k EventKind) String() string {
	switch k {
	case EventSessionsChanged:
		return "sessions_changed"
	case EventActiveChanged:
		return "active_changed"
	case EventMessagesChanged:
		return "messages_changed"
	case EventTitleChanged:
		return "title_changed"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event is published to subscribers after a state change.
type Event struct {
	Kind      EventKind
	SessionID int64
}

// DefaultSubscriberBuffer is used when Subscribe is given a buffer below 1.
const DefaultSubscriberBuffer = 16

// Subscribe registers an observer. Delivery never blocks the manager: a
// subscriber that falls behind misses events. The returned function
// unsubscribes and closes the channel.
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

func (m *Manager) publish(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// EventMsg carries a manager Event into the Bubble Tea update loop.
type EventMsg struct {
	Event Event
}

// StoreChangedMsg indicates the backing store was written by another process.
type StoreChangedMsg struct{}

// WaitForEvent returns a command that blocks until the next event. Re-issue
// it after each EventMsg. It returns nil once the channel is closed.
func WaitForEvent(ch <-chan Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return EventMsg{Event: ev}
	}
}

// WatchStore returns a command that blocks until the watcher reports an
// external change. Re-issue it after each StoreChangedMsg.
func WatchStore(w *storage.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-w.Changes(); !ok {
			return nil
		}
		return StoreChangedMsg{}
	}
}

// HandleStoreChanged reloads the manager and keeps watching.
func (m *Manager) HandleStoreChanged(w *storage.Watcher) tea.Cmd {
	if _, err := m.Reload(); err != nil {
		m.logger.Warn("reload after store change failed", zap.Error(err))
	}
	return WatchStore(w)
}
