// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages persisted chat sessions.
//
// Store keeps the ordered session list under the "chat_sessions" key of a
// storage.KV. Every mutation is a versioned read-modify-write (Store.Update)
// so several mindchat processes can share one store without losing writes.
//
// Manager holds the in-memory list and the active session on top of a
// Store and publishes change events to subscribers.
//
// # Usage
//
//	kv, _ := storage.Open(storage.BackendFile, dir)
//	mgr := session.NewManager(session.NewStore(kv, logger), session.Options{Logger: logger})
//	if err := mgr.Hydrate(); err != nil {
//	    return err
//	}
//	events, unsubscribe := mgr.Subscribe(0)
//	defer unsubscribe()
//
// # Bubble Tea Integration
//
// WaitForEvent and WatchStore turn manager events and external store writes
// into tea.Msg values for the chat UI.
package session
