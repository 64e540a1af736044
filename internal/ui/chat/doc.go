// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat screen for the mindchat TUI.

The chat package implements the conversation view using the Bubble Tea
framework. It renders the active session, sends messages through the
exchange controller, and reacts to session manager events.

# Key Components

## Model (model.go)

The Model is the Bubble Tea model. It holds no session data of its own
beyond a render cache: every change goes through session.Manager, and the
manager's events drive refreshes.

## Update Loop (update.go)

Keyboard input, send completions, voice transcripts, export results, and
store watcher notifications.

## View Rendering (view.go, render.go)

Header, message bubbles (user right, assistant left, replies rendered as
Markdown with glamour), the typing indicator, the empty-state welcome, the
input box, and the history, settings, confirmation, and alert modals.

## Key Bindings (keys.go)

	Enter    send
	Ctrl+N   new chat
	Ctrl+O   chat history
	Ctrl+S   settings
	Ctrl+E   export chat as text
	Ctrl+L   clear chat
	Ctrl+R   start/stop voice input
	Esc      cancel a pending reply / close a dialog
	Ctrl+C   quit
*/
package chat
