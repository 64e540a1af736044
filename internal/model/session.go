// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/mindchat/internal/util"
)

// ChatSession is one persisted conversation.
type ChatSession struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"created_at"`
	Messages  []ChatMessage `json:"messages"`

	// TitleGenerated flips to true the first time the server supplies a
	// title. It never flips back.
	TitleGenerated bool `json:"titleGenerated"`
}

// UnmarshalJSON accepts a blank, null or unparseable created_at as the
// zero time instead of rejecting the whole record.
func (s *ChatSession) UnmarshalJSON(data []byte) error {
	type plain ChatSession
	aux := struct {
		*plain
		CreatedAt json.RawMessage `json:"created_at"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.CreatedAt = time.Time{}
	if len(aux.CreatedAt) > 0 {
		var t time.Time
		if err := json.Unmarshal(aux.CreatedAt, &t); err == nil {
			s.CreatedAt = t
		}
	}
	return nil
}

// NewSession returns an empty session named after the local date of now.
func NewSession(id int64, now time.Time) ChatSession {
	return ChatSession{
		ID:        id,
		Name:      DefaultSessionName(now),
		CreatedAt: Timestamp(now),
		Messages:  []ChatMessage{},
	}
}

// DefaultSessionName is the placeholder name used until a title arrives.
func DefaultSessionName(now time.Time) string {
	return "Chat " + now.Local().Format("1/2/2006")
}

// Clone returns a deep copy so callers can't mutate shared message slices.
func (s ChatSession) Clone() ChatSession {
	out := s
	out.Messages = make([]ChatMessage, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}

// WithMessage returns a copy of s with msg appended.
func (s ChatSession) WithMessage(msg ChatMessage) ChatSession {
	out := s.Clone()
	out.Messages = append(out.Messages, msg)
	return out
}

// ApplyTitle sets the server-suggested title. It reports false and leaves
// s unchanged when a title was already applied or title is blank.
func (s *ChatSession) ApplyTitle(title string) bool {
	title = util.SingleLine(title)
	if s.TitleGenerated || title == "" {
		return false
	}
	s.Name = title
	s.TitleGenerated = true
	return true
}

// Preview returns the first user message, flattened and truncated.
func (s ChatSession) Preview(maxRunes int) string {
	for _, m := range s.Messages {
		if m.IsUserMessage && m.Message != "" {
			return util.TruncateRunes(util.SingleLine(m.Message), maxRunes)
		}
	}
	return ""
}

// LastActivity returns the time of the newest message, or the creation time.
func (s ChatSession) LastActivity() time.Time {
	if n := len(s.Messages); n > 0 {
		return s.Messages[n-1].CreatedAt
	}
	return s.CreatedAt
}

// FindSession returns the index of the session with id, or -1.
func FindSession(list []ChatSession, id int64) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
