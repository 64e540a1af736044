// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/logging"
	"github.com/jeranaias/mindchat/internal/model"
	"github.com/jeranaias/mindchat/internal/storage"
)

// =============================================================================
// PERSISTED SESSION STORE
// =============================================================================

// SessionsKey is the storage key holding the serialized session list.
const SessionsKey = "chat_sessions"

// DefaultMaxRetries bounds Update's compare-and-swap loop.
const DefaultMaxRetries = 8

// corruptKeyPrefix names the keys an undecodable list is copied to before
// it is first overwritten.
const corruptKeyPrefix = SessionsKey + ".corrupt-"

// ErrConflict is returned when Update keeps losing the compare-and-swap race.
var ErrConflict = errors.New("session store: too many concurrent writers")

// Store reads and writes the ordered session list under SessionsKey.
// Missing or undecodable data always reads as an empty list.
type Store struct {
	kv         storage.KV
	logger     *zap.Logger
	maxRetries int
}

// NewStore wraps kv. logger may be nil.
func NewStore(kv storage.KV, logger *zap.Logger) *Store {
	return &Store{
		kv:         kv,
		logger:     logging.OrNop(logger),
		maxRetries: DefaultMaxRetries,
	}
}

// KV exposes the underlying key-value store.
func (s *Store) KV() storage.KV {
	return s.kv
}

// Load returns the persisted list. It never fails: absent, corrupt and
// unreadable data all yield an empty list, with the cause logged.
func (s *Store) Load() []model.ChatSession {
	list, _, _, err := s.read()
	if err != nil {
		s.logger.Warn("failed to read sessions", zap.Error(err))
		return []model.ChatSession{}
	}
	return list
}

// SaveAll replaces the persisted list with list.
func (s *Store) SaveAll(list []model.ChatSession) error {
	data, err := encode(list)
	if err != nil {
		return err
	}
	if err := s.kv.Set(SessionsKey, data); err != nil {
		return fmt.Errorf("failed to save sessions: %w", err)
	}
	return nil
}

// Clear removes the persisted list.
func (s *Store) Clear() error {
	if err := s.kv.Remove(SessionsKey); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}

// Update performs a versioned read-modify-write: fn receives a private
// copy of the current list and its result is written only if nobody else
// wrote in between. On conflict the cycle is retried with a fresh read.
func (s *Store) Update(fn func([]model.ChatSession) ([]model.ChatSession, error)) ([]model.ChatSession, error) {
	list, _, err := s.update(fn)
	return list, err
}

func (s *Store) update(fn func([]model.ChatSession) ([]model.ChatSession, error)) ([]model.ChatSession, string, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		current, raw, corrupt, err := s.read()
		if err != nil {
			return nil, "", err
		}
		if corrupt {
			if err := s.keepCorrupt(raw); err != nil {
				return nil, "", err
			}
		}

		next, err := fn(current)
		if err != nil {
			return nil, "", err
		}

		data, err := encode(next)
		if err != nil {
			return nil, "", err
		}

		ok, err := s.kv.CompareAndSwap(SessionsKey, raw, data)
		if err != nil {
			return nil, "", fmt.Errorf("failed to save sessions: %w", err)
		}
		if ok {
			return next, data, nil
		}
		s.logger.Debug("session store changed underneath update, retrying", zap.Int("attempt", attempt+1))
	}
	return nil, "", ErrConflict
}

// snapshot is Load plus the raw stored value, which callers compare to
// detect external writes.
func (s *Store) snapshot() ([]model.ChatSession, string) {
	list, raw, _, err := s.read()
	if err != nil {
		s.logger.Warn("failed to read sessions", zap.Error(err))
		return []model.ChatSession{}, raw
	}
	return list, raw
}

// read returns the decoded list and the raw value it came from. corrupt
// reports a value that did not decode and reads as empty. Only storage I/O
// failures are errors.
func (s *Store) read() (list []model.ChatSession, raw string, corrupt bool, err error) {
	raw, err = s.kv.Get(SessionsKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return []model.ChatSession{}, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}
	if strings.TrimSpace(raw) == "" {
		return []model.ChatSession{}, raw, false, nil
	}

	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.logger.Warn("stored sessions are corrupt, treating as empty", zap.Error(err))
		return []model.ChatSession{}, raw, true, nil
	}
	if list == nil {
		list = []model.ChatSession{}
	}
	for i := range list {
		if list[i].Messages == nil {
			list[i].Messages = []model.ChatMessage{}
		}
	}
	return list, raw, false, nil
}

// keepCorrupt copies an undecodable list aside so the write that replaces
// it loses nothing.
func (s *Store) keepCorrupt(raw string) error {
	key := corruptKeyPrefix + time.Now().UTC().Format("20060102T150405.000")
	if err := s.kv.Set(key, raw); err != nil {
		return fmt.Errorf("sessions are corrupt and could not be kept: %w", err)
	}
	s.logger.Warn("kept corrupt sessions before overwrite", zap.String("key", key))
	return nil
}

func encode(list []model.ChatSession) (string, error) {
	if list == nil {
		list = []model.ChatSession{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode sessions: %w", err)
	}
	return string(data), nil
}
