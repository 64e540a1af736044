// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs reads and writes the chat display preferences.
//
// Each preference is a scalar string key in the shared key-value store.
// Unknown or missing values read as the default.
package prefs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/mindchat/internal/storage"
)

// Storage keys.
const (
	KeyFont       = "chat_font"
	KeyTheme      = "chat_theme"
	KeyAutoScroll = "chat_autoscroll"
	KeyTyping     = "chat_typing"
)

// FontSize controls bubble density.
type FontSize string

const (
	FontSmall  FontSize = "small"
	FontMedium FontSize = "medium"
	FontLarge  FontSize = "large"
)

// Theme selects the bubble colors.
type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeBlue    Theme = "blue"
	ThemeGreen   Theme = "green"
	ThemeGrey    Theme = "grey"
)

// Off is the only value that disables a toggle.
const Off = "off"

// FontSizes lists valid font sizes in display order.
var FontSizes = []FontSize{FontSmall, FontMedium, FontLarge}

// Themes lists valid themes in display order.
var Themes = []Theme{ThemeDefault, ThemeBlue, ThemeGreen, ThemeGrey}

// ErrUnknownKey is returned by Set for keys that are not preferences.
var ErrUnknownKey = errors.New("unknown preference")

// Preferences is a snapshot of all display settings.
type Preferences struct {
	Font       FontSize
	Theme      Theme
	AutoScroll bool
	Typing     bool
}

// Defaults returns the settings used when nothing is stored.
func Defaults() Preferences {
	return Preferences{
		Font:       FontMedium,
		Theme:      ThemeDefault,
		AutoScroll: true,
		Typing:     true,
	}
}

// Store reads and writes preferences.
type Store struct {
	kv storage.KV
}

// NewStore wraps kv.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Load returns the current preferences. Read failures yield defaults.
func (s *Store) Load() Preferences {
	p := Defaults()
	p.Font = ParseFont(s.get(KeyFont))
	p.Theme = ParseTheme(s.get(KeyTheme))
	p.AutoScroll = toggle(s.get(KeyAutoScroll))
	p.Typing = toggle(s.get(KeyTyping))
	return p
}

// SetFont persists the font size.
func (s *Store) SetFont(f FontSize) error {
	return s.set(KeyFont, string(ParseFont(string(f))))
}

// SetTheme persists the bubble theme.
func (s *Store) SetTheme(t Theme) error {
	return s.set(KeyTheme, string(ParseTheme(string(t))))
}

// SetAutoScroll persists the auto-scroll toggle.
func (s *Store) SetAutoScroll(on bool) error {
	return s.set(KeyAutoScroll, toggleValue(on))
}

// SetTyping persists the typing-indicator toggle.
func (s *Store) SetTyping(on bool) error {
	return s.set(KeyTyping, toggleValue(on))
}

// Set stores a raw value by key after validating it. Used by the CLI.
func (s *Store) Set(key, value string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	switch key {
	case KeyFont:
		if !validFont(value) {
			return fmt.Errorf("invalid %s %q (want one of %s)", key, value, joinFonts())
		}
	case KeyTheme:
		if !validTheme(value) {
			return fmt.Errorf("invalid %s %q (want one of %s)", key, value, joinThemes())
		}
	case KeyAutoScroll, KeyTyping:
		on, ok := parseBool(value)
		if !ok {
			return fmt.Errorf("invalid %s %q (want on or off)", key, value)
		}
		value = toggleValue(on)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return s.set(key, value)
}

// Get returns the effective value for key, as Set would accept it.
func (s *Store) Get(key string) (string, error) {
	p := s.Load()
	switch key {
	case KeyFont:
		return string(p.Font), nil
	case KeyTheme:
		return string(p.Theme), nil
	case KeyAutoScroll:
		return toggleValue(p.AutoScroll), nil
	case KeyTyping:
		return toggleValue(p.Typing), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// Keys lists the preference keys in display order.
func Keys() []string {
	return []string{KeyFont, KeyTheme, KeyAutoScroll, KeyTyping}
}

// ParseFont maps a stored value to a FontSize, falling back to medium.
func ParseFont(v string) FontSize {
	v = strings.ToLower(strings.TrimSpace(v))
	if validFont(v) {
		return FontSize(v)
	}
	return FontMedium
}

// ParseTheme maps a stored value to a Theme, falling back to default.
func ParseTheme(v string) Theme {
	v = strings.ToLower(strings.TrimSpace(v))
	if validTheme(v) {
		return Theme(v)
	}
	return ThemeDefault
}

// NextFont cycles small -> medium -> large -> small.
func NextFont(f FontSize) FontSize {
	for i, x := range FontSizes {
		if x == f {
			return FontSizes[(i+1)%len(FontSizes)]
		}
	}
	return FontMedium
}

// NextTheme cycles through Themes.
func NextTheme(t Theme) Theme {
	for i, x := range Themes {
		if x == t {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return ThemeDefault
}

func (s *Store) get(key string) string {
	v, err := s.kv.Get(key)
	if err != nil {
		return ""
	}
	return v
}

func (s *Store) set(key, value string) error {
	if err := s.kv.Set(key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// toggle is on unless the stored value is exactly "off".
func toggle(v string) bool {
	return v != Off
}

func toggleValue(on bool) string {
	if on {
		return "on"
	}
	return Off
}

func parseBool(v string) (bool, bool) {
	switch v {
	case "on", "true", "yes", "1":
		return true, true
	case "off", "false", "no", "0":
		return false, true
	}
	return false, false
}

func validFont(v string) bool {
	for _, f := range FontSizes {
		if string(f) == v {
			return true
		}
	}
	return false
}

func validTheme(v string) bool {
	for _, t := range Themes {
		if string(t) == v {
			return true
		}
	}
	return false
}

func joinFonts() string {
	out := make([]string, len(FontSizes))
	for i, f := range FontSizes {
		out[i] = string(f)
	}
	return strings.Join(out, ", ")
}

func joinThemes() string {
	out := make([]string, len(Themes))
	for i, t := range Themes {
		out[i] = string(t)
	}
	return strings.Join(out, ", ")
}
