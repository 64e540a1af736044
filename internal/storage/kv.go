// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"path/filepath"
)

// =============================================================================
// STORE CONTRACT
// =============================================================================

// KV is a string key-value store shared by every mindchat process that
// points at the same data directory.
type KV interface {
	// Get returns the value for key or ErrKeyNotFound.
	Get(key string) (string, error)

	// Set writes value under key.
	Set(key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// CompareAndSwap writes value only if the current value equals old.
	// An absent key compares equal to "". It reports whether the write
	// happened; false with a nil error means another writer got there first.
	CompareAndSwap(key, old, value string) (bool, error)

	// Keys lists stored keys in sorted order.
	Keys() ([]string, error)

	// Path is the file backing the store, "" for memory stores.
	Path() string

	// Close releases resources.
	Close() error
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store closed")

// =============================================================================
// OPEN
// =============================================================================

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// File names inside the data directory.
const (
	FileName   = "storage.json"
	SQLiteName = "storage.db"
)

// Open opens the named backend rooted at dir.
func Open(backend, dir string) (KV, error) {
	switch backend {
	case BackendFile, "":
		return NewFileKV(filepath.Join(dir, FileName))
	case BackendSQLite:
		return NewSQLiteKV(filepath.Join(dir, SQLiteName))
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
