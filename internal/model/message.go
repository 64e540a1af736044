// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// AUTHOR
// =============================================================================

// Author identifies who wrote a message. It is stored as the boolean
// is_user_message, so only two values exist.
type Author int

const (
	AuthorAssistant Author = iota
	AuthorUser
)

// DisplayName returns the label used in exports and the plain chat mode.
func (a Author) DisplayName() string {
	if a == AuthorUser {
		return "You"
	}
	return "AI"
}

// =============================================================================
// CHAT MESSAGE
// =============================================================================

// ChatMessage is one entry of a session transcript.
type ChatMessage struct {
	ID            int64     `json:"id"`
	Message       string    `json:"message"`
	IsUserMessage bool      `json:"is_user_message"`
	CreatedAt     time.Time `json:"created_at"`

	// AIModelUsed labels assistant replies. Synthetic error messages leave
	// it empty, which is how the UI tells them apart.
	AIModelUsed string `json:"ai_model_used,omitempty"`
}

// Author returns who wrote the message.
func (m ChatMessage) Author() Author {
	if m.IsUserMessage {
		return AuthorUser
	}
	return AuthorAssistant
}

// NewUserMessage creates a user message.
func NewUserMessage(id int64, text string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:            id,
		Message:       text,
		IsUserMessage: true,
		CreatedAt:     Timestamp(now),
	}
}

// NewAssistantMessage creates an assistant reply tagged with modelLabel.
func NewAssistantMessage(id int64, text, modelLabel string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:          id,
		Message:     text,
		CreatedAt:   Timestamp(now),
		AIModelUsed: modelLabel,
	}
}

// NewErrorMessage creates the synthetic assistant message shown in place of
// a reply when the exchange fails.
func NewErrorMessage(id int64, text string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:        id,
		Message:   text,
		CreatedAt: Timestamp(now),
	}
}

// Timestamp normalizes t to the stored form: UTC, millisecond precision.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
