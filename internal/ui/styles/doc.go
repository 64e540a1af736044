// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling for the mindchat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

Surface, text, and semantic colors are shared by every screen. Message
bubbles come from a BubblePalette chosen by the chat_theme preference:

	default - blue user bubble, violet assistant bubble
	blue    - two shades of blue
	green   - emerald and sage
	grey    - neutral greys

# Theme (theme.go)

A Theme holds every lipgloss style the chat screen renders with. It is
rebuilt whenever preferences change:

	theme := styles.NewTheme(prefs)
	bubble := theme.UserBubble.Render(text)

Font size maps to bubble padding and emphasis: small is compact, medium is
the default, large adds padding and bold text.
*/
package styles
