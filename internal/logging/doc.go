// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap loggers used by mindchat.
//
// The terminal client logs JSON to a file under the data directory because
// the screen belongs to Bubble Tea. The development backend logs to stderr,
// in console format when running with development = true.
package logging
