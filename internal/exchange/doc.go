// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package exchange turns user text into a persisted conversation turn.
//
// A send moves through Idle -> Sending -> Succeeded | Failed -> Idle:
//
//  1. the user message is appended and persisted before any network call
//  2. the backend is asked for a reply
//  3. a server-suggested title is applied once per session
//  4. the reply, or exactly one synthetic error message, is appended
//
// Every send carries a token. Starting a new send cancels the previous
// one, and a completion whose token is no longer current is discarded
// without touching the session.
//
// The controller also keeps the language hint for voice recognition,
// refreshed from /detect-language/.
package exchange
