// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"strings"

	"github.com/jeranaias/mindchat/internal/model"
)

// TextExporter writes the plain transcript: one "You: " or "AI: " entry
// per message, separated by a blank line.
type TextExporter struct{}

// NewTextExporter creates a plain text exporter.
func NewTextExporter() *TextExporter {
	return &TextExporter{}
}

// Export implements Exporter. An empty session exports as an empty file.
func (e *TextExporter) Export(s model.ChatSession) ([]byte, error) {
	parts := make([]string, len(s.Messages))
	for i, m := range s.Messages {
		parts[i] = m.Author().DisplayName() + ": " + m.Message
	}
	return []byte(strings.Join(parts, "\n\n")), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for plain text.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}
