// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jeranaias/mindchat/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileKV stores all keys in a single JSON object file. Every operation
// takes an advisory lock on a sibling ".lock" file, so read-modify-write
// sequences are atomic across processes, and every write goes through
// util.AtomicWriteFile.
type FileKV struct {
	path string

	mu     sync.Mutex
	lock   *os.File
	closed bool
}

// NewFileKV opens (creating if needed) the store at path.
func NewFileKV(path string) (*FileKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	lock, err := os.OpenFile(path+".lock", os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	return &FileKV{path: path, lock: lock}, nil
}

// Path returns the JSON file backing the store.
func (s *FileKV) Path() string { return s.path }

func (s *FileKV) Get(key string) (string, error) {
	var value string
	err := s.withLock(func(data map[string]string) (bool, error) {
		v, ok := data[key]
		if !ok {
			return false, ErrKeyNotFound
		}
		value = v
		return false, nil
	})
	return value, err
}

func (s *FileKV) Set(key, value string) error {
	return s.withLock(func(data map[string]string) (bool, error) {
		data[key] = value
		return true, nil
	})
}

func (s *FileKV) Remove(key string) error {
	return s.withLock(func(data map[string]string) (bool, error) {
		if _, ok := data[key]; !ok {
			return false, nil
		}
		delete(data, key)
		return true, nil
	})
}

func (s *FileKV) CompareAndSwap(key, old, value string) (bool, error) {
	swapped := false
	err := s.withLock(func(data map[string]string) (bool, error) {
		if data[key] != old {
			return false, nil
		}
		data[key] = value
		swapped = true
		return true, nil
	})
	return swapped, err
}

func (s *FileKV) Keys() ([]string, error) {
	var keys []string
	err := s.withLock(func(data map[string]string) (bool, error) {
		for k := range data {
			keys = append(keys, k)
		}
		return false, nil
	})
	sort.Strings(keys)
	return keys, err
}

// Close releases the lock file handle.
func (s *FileKV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.lock.Close()
}

// =============================================================================
// LOCKED ACCESS
// =============================================================================

// withLock loads the file under both the in-process mutex and the
// cross-process file lock, runs fn, and writes the map back if fn reports
// a change.
func (s *FileKV) withLock(fn func(data map[string]string) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := lockFile(s.lock); err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}
	defer unlockFile(s.lock)

	data, err := s.read()
	if err != nil {
		return err
	}
	changed, err := fn(data)
	if err != nil || !changed {
		return err
	}
	return s.write(data)
}

func (s *FileKV) read() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return make(map[string]string), nil
	}

	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		// Keep the damaged file for inspection and start over.
		backup := s.path + ".corrupt-" + time.Now().Format("20060102T150405")
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			return nil, fmt.Errorf("store is corrupt and could not be moved aside: %w", renameErr)
		}
		return make(map[string]string), nil
	}
	return data, nil
}

func (s *FileKV) write(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	if err := util.AtomicWriteFile(s.path, raw, 0600); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	return nil
}
