// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mindchat/internal/prefs"
)

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Purple - Primary accent, headers, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - Brand color, key hints
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Success states, recording indicator off
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - Errors, destructive actions, recording indicator on
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, alerts
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE AND TEXT COLORS
// =============================================================================

var (
	Surface       = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
	SurfaceDim    = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
	SurfaceBright = lipgloss.AdaptiveColor{Light: "#FAFAFA", Dark: "#313244"}
	Overlay       = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	TextInverse   = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
)

// =============================================================================
// BUBBLE PALETTES
// =============================================================================

// BubblePalette colors the two message bubbles.
type BubblePalette struct {
	UserBg, UserFg, UserBorder                lipgloss.AdaptiveColor
	AssistantBg, AssistantFg, AssistantBorder lipgloss.AdaptiveColor
}

var bubblePalettes = map[prefs.Theme]BubblePalette{
	prefs.ThemeDefault: {
		UserBg:          lipgloss.AdaptiveColor{Light: "#DBEAFE", Dark: "#1D4ED8"},
		UserFg:          lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#E0F2FE"},
		UserBorder:      lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"},
		AssistantBg:     lipgloss.AdaptiveColor{Light: "#F5F3FF", Dark: "#3B3655"},
		AssistantFg:     lipgloss.AdaptiveColor{Light: "#5B4B8A", Dark: "#E9E4F5"},
		AssistantBorder: lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"},
	},
	prefs.ThemeBlue: {
		UserBg:          lipgloss.AdaptiveColor{Light: "#BFDBFE", Dark: "#1E3A8A"},
		UserFg:          lipgloss.AdaptiveColor{Light: "#1E3A8A", Dark: "#DBEAFE"},
		UserBorder:      lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"},
		AssistantBg:     lipgloss.AdaptiveColor{Light: "#EFF6FF", Dark: "#172554"},
		AssistantFg:     lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#BFDBFE"},
		AssistantBorder: lipgloss.AdaptiveColor{Light: "#93C5FD", Dark: "#3B82F6"},
	},
	prefs.ThemeGreen: {
		UserBg:          lipgloss.AdaptiveColor{Light: "#D1FAE5", Dark: "#065F46"},
		UserFg:          lipgloss.AdaptiveColor{Light: "#065F46", Dark: "#D1FAE5"},
		UserBorder:      lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"},
		AssistantBg:     lipgloss.AdaptiveColor{Light: "#F0FDF4", Dark: "#14532D"},
		AssistantFg:     lipgloss.AdaptiveColor{Light: "#166534", Dark: "#DCFCE7"},
		AssistantBorder: lipgloss.AdaptiveColor{Light: "#86EFAC", Dark: "#4ADE80"},
	},
	prefs.ThemeGrey: {
		UserBg:          lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"},
		UserFg:          lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F3F4F6"},
		UserBorder:      lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"},
		AssistantBg:     lipgloss.AdaptiveColor{Light: "#F9FAFB", Dark: "#1F2937"},
		AssistantFg:     lipgloss.AdaptiveColor{Light: "#374151", Dark: "#E5E7EB"},
		AssistantBorder: lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"},
	},
}

// PaletteFor returns the palette for theme, falling back to the default.
func PaletteFor(theme prefs.Theme) BubblePalette {
	if p, ok := bubblePalettes[theme]; ok {
		return p
	}
	return bubblePalettes[prefs.ThemeDefault]
}
