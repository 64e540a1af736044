// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the mindchat command tree.
//
// Running mindchat with no subcommand opens the full-screen chat. The other
// commands work on the same local store and login, so anything done from the
// shell shows up in a running chat window:
//
//	mindchat                     open the chat
//	mindchat chat --plain        line-mode chat for dumb terminals
//	mindchat sessions list       list saved conversations
//	mindchat sessions export ID  write a conversation to a file
//	mindchat settings set chat_theme blue
//	mindchat login | signup | logout | whoami
//	mindchat serve               run the development backend
//	mindchat config show | init | path
//	mindchat version
package cli
