// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/jeranaias/mindchat/internal/cloud"
)

// Responder produces chat replies and session titles.
type Responder interface {
	Reply(ctx context.Context, message, language string) (string, error)
	Title(ctx context.Context, message string) (string, error)
}

var _ Responder = (*cloud.Client)(nil)

// EchoResponder answers without a model. It keeps the backend usable
// offline and in tests.
type EchoResponder struct{}

// Reply reflects the message back.
func (EchoResponder) Reply(_ context.Context, message, language string) (string, error) {
	return fmt.Sprintf("I hear you. You said: %q (%s). Tell me more about how that feels.", message, language), nil
}

// Title is the first few words of message.
func (EchoResponder) Title(_ context.Context, message string) (string, error) {
	words := strings.FieldsFunc(message, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'')
	})
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " "), nil
}
