// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat sessions to files.
//
// # Supported Formats
//
//   - Text: "You: ..." / "AI: ..." lines separated by a blank line
//   - Markdown: transcript with optional metadata and timestamps
//   - JSON: the stored session object
//
// # Usage
//
//	exporter, err := export.ForFormat(export.FormatText, nil)
//	path, err := export.ExportToFile(session, exporter, &export.Options{OutputDir: "."})
//
// Files are named after the session, with characters that are invalid in
// filenames replaced.
package export
