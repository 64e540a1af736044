// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mindchat/internal/model"
	"github.com/jeranaias/mindchat/internal/storage"
)

func frozenClock() func() time.Time {
	return func() time.Time { return testNow }
}

func newTestManager(t *testing.T, kv storage.KV) *Manager {
	t.Helper()
	m := NewManager(NewStore(kv, nil), Options{Now: frozenClock()})
	require.NoError(t, m.Hydrate())
	return m
}

// =============================================================================
// HYDRATE
// =============================================================================

func TestManager_HydrateEmptyStartsSession(t *testing.T) {
	kv := storage.NewMemoryKV()
	m := newTestManager(t, kv)

	active, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, model.DefaultSessionName(testNow), active.Name)
	assert.Empty(t, active.Messages)
	assert.False(t, active.TitleGenerated)
	assert.Len(t, NewStore(kv, nil).Load(), 1)
}

func TestManager_HydrateActivatesLastSession(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, NewStore(kv, nil).SaveAll([]model.ChatSession{
		sampleSession(1, "older"),
		sampleSession(2, "newest"),
	}))

	m := newTestManager(t, kv)
	active, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, int64(2), active.ID)
	assert.Len(t, m.ListSessions(), 2)
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

func TestManager_StartNewSessionUniqueIDs(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryKV())

	seen := map[int64]bool{}
	for _, s := range m.ListSessions() {
		seen[s.ID] = true
	}
	for i := 0; i < 5; i++ {
		s, err := m.StartNewSession()
		require.NoError(t, err)
		assert.False(t, seen[s.ID], "duplicate id %d", s.ID)
		seen[s.ID] = true
	}
	assert.Len(t, m.ListSessions(), 6)
}

func TestManager_StartNewSessionAcrossProcesses(t *testing.T) {
	kv := storage.NewMemoryKV()
	a := newTestManager(t, kv)
	b := newTestManager(t, kv)

	_, err := a.StartNewSession()
	require.NoError(t, err)
	_, err = b.StartNewSession()
	require.NoError(t, err)

	list := NewStore(kv, nil).Load()
	ids := map[int64]bool{}
	for _, s := range list {
		ids[s.ID] = true
	}
	assert.Len(t, ids, len(list))
}

func TestManager_SaveSessionRoundTrip(t *testing.T) {
	kv := storage.NewMemoryKV()
	m := newTestManager(t, kv)

	active, _ := m.Active()
	active = active.WithMessage(model.NewUserMessage(m.NextID(), "hello", testNow))
	require.NoError(t, m.SaveSession(active))

	loaded := NewStore(kv, nil).Load()
	i := model.FindSession(loaded, active.ID)
	require.GreaterOrEqual(t, i, 0)
	require.Len(t, loaded[i].Messages, 1)
	assert.Equal(t, "hello", loaded[i].Messages[0].Message)
	assert.Equal(t, active.Name, loaded[i].Name)

	got, _ := m.Active()
	assert.Len(t, got.Messages, 1)
}

func TestManager_SaveSessionAppendsAbsent(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryKV())

	stray := sampleSession(42, "stray")
	require.NoError(t, m.SaveSession(stray))

	list := m.ListSessions()
	require.Len(t, list, 2)
	assert.Equal(t, int64(42), list[1].ID)
}

func TestManager_SaveSessionKeepsOtherWriters(t *testing.T) {
	kv := storage.NewMemoryKV()
	a := newTestManager(t, kv)
	b := newTestManager(t, kv)

	created, err := b.StartNewSession()
	require.NoError(t, err)

	active, _ := a.Active()
	require.NoError(t, a.SaveSession(active.WithMessage(model.NewUserMessage(1, "hi", testNow))))

	list := NewStore(kv, nil).Load()
	assert.GreaterOrEqual(t, model.FindSession(list, created.ID), 0)
}

func TestManager_LoadSession(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, NewStore(kv, nil).SaveAll([]model.ChatSession{
		sampleSession(1, "first").WithMessage(model.NewUserMessage(10, "first message", testNow)),
		sampleSession(2, "second"),
	}))
	m := newTestManager(t, kv)

	assert.True(t, m.LoadSession(1))
	active, _ := m.Active()
	assert.Equal(t, "first", active.Name)
	require.Len(t, m.Messages(), 1)
	assert.Equal(t, "first message", m.Messages()[0].Message)
}

func TestManager_LoadSessionUnknownIsNoop(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, NewStore(kv, nil).SaveAll([]model.ChatSession{
		sampleSession(1, "only").WithMessage(model.NewUserMessage(10, "keep me", testNow)),
	}))
	m := newTestManager(t, kv)
	before, _ := m.Active()

	assert.False(t, m.LoadSession(999))

	after, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, before.Messages, m.Messages())
}

func TestManager_ClearMessages(t *testing.T) {
	kv := storage.NewMemoryKV()
	m := newTestManager(t, kv)
	active, _ := m.Active()
	_, err := m.AppendMessage(active.ID, model.NewUserMessage(m.NextID(), "hi", testNow))
	require.NoError(t, err)

	require.NoError(t, m.ClearMessages())
	assert.Empty(t, m.Messages())

	list := NewStore(kv, nil).Load()
	assert.Empty(t, list[model.FindSession(list, active.ID)].Messages)
}

func TestManager_ClearMessagesKeepsTitleFromOtherWriter(t *testing.T) {
	kv := storage.NewMemoryKV()
	a := newTestManager(t, kv)
	b := newTestManager(t, kv)
	active, _ := a.Active()
	got, _ := b.Active()
	require.Equal(t, active.ID, got.ID)

	applied, err := a.ApplyTitle(active.ID, "Anxiety check-in")
	require.NoError(t, err)
	require.True(t, applied)

	require.NoError(t, b.ClearMessages())

	stored := NewStore(kv, nil).Load()
	i := model.FindSession(stored, active.ID)
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, "Anxiety check-in", stored[i].Name)
	assert.True(t, stored[i].TitleGenerated)
	assert.Empty(t, stored[i].Messages)

	cleared, _ := b.Active()
	assert.True(t, cleared.TitleGenerated)

	applied, err = a.ApplyTitle(active.ID, "Second title")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestManager_SaveSessionKeepsTitleFromOtherWriter(t *testing.T) {
	kv := storage.NewMemoryKV()
	a := newTestManager(t, kv)
	b := newTestManager(t, kv)
	stale, _ := b.Active()

	_, err := a.ApplyTitle(stale.ID, "Sleep trouble")
	require.NoError(t, err)

	require.NoError(t, b.SaveSession(stale.WithMessage(model.NewUserMessage(1, "hi", testNow))))

	stored := NewStore(kv, nil).Load()
	i := model.FindSession(stored, stale.ID)
	assert.Equal(t, "Sleep trouble", stored[i].Name)
	assert.True(t, stored[i].TitleGenerated)
	assert.Len(t, stored[i].Messages, 1)
}

func TestManager_DeleteAll(t *testing.T) {
	kv := storage.NewMemoryKV()
	store := NewStore(kv, nil)
	require.NoError(t, store.SaveAll([]model.ChatSession{
		sampleSession(1, "a"), sampleSession(2, "b"), sampleSession(3, "c"),
	}))
	m := newTestManager(t, kv)

	require.NoError(t, m.DeleteAll())

	assert.Empty(t, store.Load())
	assert.Empty(t, m.ListSessions())
	_, ok := m.Active()
	assert.False(t, ok)
	assert.ErrorIs(t, m.ClearMessages(), ErrNoActiveSession)

	require.NoError(t, m.Hydrate())
	assert.Len(t, store.Load(), 1)
}

// =============================================================================
// EXCHANGE SUPPORT
// =============================================================================

func TestManager_AppendMessageReaddsDeletedSession(t *testing.T) {
	kv := storage.NewMemoryKV()
	m := newTestManager(t, kv)
	active, _ := m.Active()

	// Another process wipes the store mid-send.
	require.NoError(t, NewStore(kv, nil).Clear())

	updated, err := m.AppendMessage(active.ID, model.NewUserMessage(m.NextID(), "still here", testNow))
	require.NoError(t, err)
	assert.Len(t, updated.Messages, 1)
	assert.Len(t, NewStore(kv, nil).Load(), 1)
}

func TestManager_AppendMessageUnknownSession(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryKV())
	_, err := m.AppendMessage(12345, model.NewUserMessage(1, "x", testNow))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_ApplyTitleOnce(t *testing.T) {
	kv := storage.NewMemoryKV()
	m := newTestManager(t, kv)
	active, _ := m.Active()

	applied, err := m.ApplyTitle(active.ID, "   ")
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = m.ApplyTitle(active.ID, "Anxiety check-in")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = m.ApplyTitle(active.ID, "Something else")
	require.NoError(t, err)
	assert.False(t, applied)

	got, _ := m.Active()
	assert.Equal(t, "Anxiety check-in", got.Name)
	assert.True(t, got.TitleGenerated)

	stored := NewStore(kv, nil).Load()
	assert.Equal(t, "Anxiety check-in", stored[0].Name)
	assert.True(t, stored[0].TitleGenerated)
}

// =============================================================================
// RELOAD AND EVENTS
// =============================================================================

func TestManager_ReloadPicksUpExternalWrites(t *testing.T) {
	kv := storage.NewMemoryKV()
	a := newTestManager(t, kv)
	b := newTestManager(t, kv)

	// b adopted a's session without writing.
	changed, err := a.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	active, _ := a.Active()
	_, err = b.AppendMessage(active.ID, model.NewUserMessage(b.NextID(), "from b", testNow))
	require.NoError(t, err)

	changed, err = a.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, a.Messages(), 1)
	assert.Equal(t, "from b", a.Messages()[0].Message)
}

func TestManager_Subscribe(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryKV())
	events, unsubscribe := m.Subscribe(8)

	_, err := m.StartNewSession()
	require.NoError(t, err)

	var kinds []EventKind
	for len(events) > 0 {
		kinds = append(kinds, (<-events).Kind)
	}
	assert.Equal(t, []EventKind{EventSessionsChanged, EventActiveChanged}, kinds)

	unsubscribe()
	_, open := <-events
	assert.False(t, open)
	unsubscribe()
}

func TestManager_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryKV())
	_, unsubscribe := m.Subscribe(1)
	defer unsubscribe()

	for i := 0; i < 10; i++ {
		_, err := m.StartNewSession()
		require.NoError(t, err)
	}
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan Event, 1)
	ch <- Event{Kind: EventTitleChanged, SessionID: 7}

	msg := WaitForEvent(ch)()
	assert.Equal(t, EventMsg{Event: Event{Kind: EventTitleChanged, SessionID: 7}}, msg)

	close(ch)
	assert.Nil(t, WaitForEvent(ch)())
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "title_changed", EventTitleChanged.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}

func TestWatchStore_EndsWhenWatcherCloses(t *testing.T) {
	assert.Nil(t, WatchStore(nil))

	w, err := storage.NewWatcher(filepath.Join(t.TempDir(), storage.FileName), 20*time.Millisecond, nil)
	require.NoError(t, err)
	cmd := WatchStore(w)
	require.NotNil(t, cmd)

	done := make(chan any, 1)
	go func() { done <- cmd() }()
	require.NoError(t, w.Close())

	select {
	case msg := <-done:
		assert.Nil(t, msg)
	case <-time.After(3 * time.Second):
		t.Fatal("watch command still blocked after Close")
	}
}
