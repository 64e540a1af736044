// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local key-value store mindchat persists to.
//
// Sessions live under one key (chat_sessions) and each display preference
// under its own scalar key, so the store only has to deal in strings.
//
// # Key Types
//
//   - KV: the store contract (Get, Set, Remove, CompareAndSwap, Keys)
//   - FileKV: one JSON object file, atomic writes, cross-process lock
//   - SQLiteKV: a kv table in a WAL-mode SQLite database
//   - MemoryKV: in-process map for tests
//   - Watcher: fsnotify notifications when another process writes
//
// # Usage
//
//	kv, err := storage.Open(storage.BackendFile, dataDir)
//	if err != nil {
//	    return err
//	}
//	defer kv.Close()
//	font, err := kv.Get("chat_font")
package storage
