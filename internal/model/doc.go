// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// The JSON field names are the storage format shared with existing data
// (id, name, created_at, messages, titleGenerated; id, message,
// is_user_message, created_at, ai_model_used) and must not change.
//
// # Key Types
//
//   - ChatSession: a conversation with its transcript and title state
//   - ChatMessage: one user or assistant entry
//   - IDSource: monotonic millisecond identifiers
//
// # Usage
//
//	ids := model.NewIDSource()
//	s := model.NewSession(ids.Next(), time.Now())
//	s = s.WithMessage(model.NewUserMessage(ids.Next(), "hello", time.Now()))
package model
