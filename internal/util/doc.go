// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across mindchat.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, PadRight, StringWidth: column-aware layout helpers
//   - SingleLine: collapse multi-line text for list previews
//   - SafeFilename: sanitize a session name for export
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	// Truncate session names for the history list
//	name := util.TruncateWidth(session.Name, 40)
//
//	// Write the local store without risking a torn file
//	err := util.AtomicWriteFile(path, data, 0600)
package util
