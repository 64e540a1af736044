// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mindchat/internal/storage"
)

func TestLoad_Defaults(t *testing.T) {
	s := NewStore(storage.NewMemoryKV())
	assert.Equal(t, Defaults(), s.Load())
}

func TestLoad_StoredValues(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(KeyFont, "large"))
	require.NoError(t, kv.Set(KeyTheme, "green"))
	require.NoError(t, kv.Set(KeyAutoScroll, "off"))
	require.NoError(t, kv.Set(KeyTyping, "off"))

	p := NewStore(kv).Load()
	assert.Equal(t, FontLarge, p.Font)
	assert.Equal(t, ThemeGreen, p.Theme)
	assert.False(t, p.AutoScroll)
	assert.False(t, p.Typing)
}

func TestLoad_UnknownValuesFallBack(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(KeyFont, "huge"))
	require.NoError(t, kv.Set(KeyTheme, "purple"))
	require.NoError(t, kv.Set(KeyAutoScroll, "OFF"))
	require.NoError(t, kv.Set(KeyTyping, "false"))

	p := NewStore(kv).Load()
	assert.Equal(t, FontMedium, p.Font)
	assert.Equal(t, ThemeDefault, p.Theme)
	// Only the exact string "off" disables a toggle.
	assert.True(t, p.AutoScroll)
	assert.True(t, p.Typing)
}

func TestSetters(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := NewStore(kv)

	require.NoError(t, s.SetFont(FontSmall))
	require.NoError(t, s.SetTheme(ThemeGrey))
	require.NoError(t, s.SetAutoScroll(false))
	require.NoError(t, s.SetTyping(true))

	raw, _ := kv.Get(KeyAutoScroll)
	assert.Equal(t, "off", raw)

	p := s.Load()
	assert.Equal(t, FontSmall, p.Font)
	assert.Equal(t, ThemeGrey, p.Theme)
	assert.False(t, p.AutoScroll)
	assert.True(t, p.Typing)
}

func TestSetAndGet(t *testing.T) {
	s := NewStore(storage.NewMemoryKV())

	require.NoError(t, s.Set(KeyTheme, " Blue "))
	got, err := s.Get(KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "blue", got)

	require.NoError(t, s.Set(KeyTyping, "false"))
	got, err = s.Get(KeyTyping)
	require.NoError(t, err)
	assert.Equal(t, "off", got)

	assert.Error(t, s.Set(KeyFont, "huge"))
	assert.Error(t, s.Set(KeyAutoScroll, "maybe"))

	err = s.Set("chat_color", "x")
	assert.True(t, errors.Is(err, ErrUnknownKey))
	_, err = s.Get("chat_color")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestCycling(t *testing.T) {
	assert.Equal(t, FontLarge, NextFont(FontMedium))
	assert.Equal(t, FontSmall, NextFont(FontLarge))
	assert.Equal(t, ThemeBlue, NextTheme(ThemeDefault))
	assert.Equal(t, ThemeDefault, NextTheme(ThemeGrey))
	assert.Equal(t, ThemeDefault, NextTheme("bogus"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"chat_font", "chat_theme", "chat_autoscroll", "chat_typing"}, Keys())
}
