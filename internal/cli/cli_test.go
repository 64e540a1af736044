// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mindchat/internal/config"
	"github.com/jeranaias/mindchat/internal/model"
	"github.com/jeranaias/mindchat/internal/server"
)

// isolate points every config and data path at a fresh directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("MINDCHAT_HOME", home)
	return home
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func startBackend(t *testing.T) string {
	t.Helper()
	cfg := config.Default()
	cfg.Server.JWTSecret = "cli-test-secret"
	cfg.Server.RateLimit = 0
	srv, err := server.New(cfg, server.Options{Responder: server.EchoResponder{}})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mindchat "+Version)
	assert.Contains(t, out, "commit:")
}

func TestSettings(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "settings", "set", "theme", "Blue")
	require.NoError(t, err)
	assert.Contains(t, out, "chat_theme = blue")

	out, err = run(t, "", "settings", "get", "chat_theme")
	require.NoError(t, err)
	assert.Equal(t, "blue\n", out)

	_, err = run(t, "", "settings", "set", "autoscroll", "no")
	require.NoError(t, err)

	out, err = run(t, "", "settings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "chat_font")
	assert.Contains(t, out, "medium")
	assert.Contains(t, out, "off")

	_, err = run(t, "", "settings", "set", "font", "huge")
	assert.Error(t, err)

	_, err = run(t, "", "settings", "get", "volume")
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	home := isolate(t)
	want := filepath.Join(home, "config.toml")

	out, err := run(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)

	_, err = run(t, "", "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, want)

	_, err = run(t, "", "config", "init")
	assert.Error(t, err)
	_, err = run(t, "", "config", "init", "--force")
	assert.NoError(t, err)

	t.Setenv("MINDCHAT_JWT_SECRET", "s3cret-value")
	out, err = run(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "s3cret-value")

	out, err = run(t, "", "config", "show", "--secrets")
	require.NoError(t, err)
	assert.Contains(t, out, "s3cret-value")
}

func TestRedactSecrets_LeavesOriginalAlone(t *testing.T) {
	cfg := config.Default()
	cfg.Server.UpstreamKey = "gsk_live"
	cfg.Server.Users = []config.UserConfig{{Email: "a@b.c", PasswordHash: "$2a$hash"}}

	out := redactSecrets(cfg)
	assert.Equal(t, redacted, out.Server.UpstreamKey)
	assert.Equal(t, redacted, out.Server.Users[0].PasswordHash)
	assert.Empty(t, out.Server.JWTSecret)
	assert.Equal(t, "gsk_live", cfg.Server.UpstreamKey)
	assert.Equal(t, "$2a$hash", cfg.Server.Users[0].PasswordHash)
}

func TestAccountAndSessionsFlow(t *testing.T) {
	isolate(t)
	url := startBackend(t)
	api := "--api-url=" + url

	out, err := run(t, "hunter22\n", "signup", api, "--email", "asha@example.com", "--name", "Asha Rao", "--username", "asha")
	require.NoError(t, err)
	assert.Contains(t, out, "Account created for asha@example.com")

	_, err = run(t, "wrong-pass\n", "login", api, "--email", "asha@example.com")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())

	out, err = run(t, "hunter22\n", "login", api, "--email", "asha@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Asha Rao")

	out, err = run(t, "", "whoami", api, "--json")
	require.NoError(t, err)
	var who struct {
		Authenticated bool `json:"authenticated"`
		User          struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &who))
	assert.True(t, who.Authenticated)
	assert.Equal(t, "asha@example.com", who.User.Email)

	out, err = run(t, "", "chat", api, "I feel anxious today")
	require.NoError(t, err)
	assert.Contains(t, out, "AI is typing...")
	assert.Contains(t, out, "I hear you.")
	assert.Contains(t, out, `Conversation saved as "I feel anxious today"`)

	out, err = run(t, "", "sessions", "list", "--json")
	require.NoError(t, err)
	var list []sessionSummary
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "I feel anxious today", list[0].Name)
	assert.Equal(t, 2, list[0].Messages)
	assert.True(t, list[0].TitleGenerated)

	out, err = run(t, "", "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "I feel anxious today")

	out, err = run(t, "", "sessions", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "You: I feel anxious today")
	assert.Contains(t, out, "AI: I hear you.")

	exportDir := t.TempDir()
	_, err = run(t, "", "sessions", "export", "-o", exportDir)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(exportDir, "I feel anxious today.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "You: I feel anxious today\n\nAI: "))

	_, err = run(t, "", "sessions", "clear", "12345")
	assert.Error(t, err)

	out, err = run(t, "", "sessions", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared I feel anxious today")

	out, err = run(t, "", "sessions", "list", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Zero(t, list[0].Messages)

	_, err = run(t, "", "sessions", "delete-all")
	assert.ErrorIs(t, err, errNeedsConfirmation)

	out, err = run(t, "", "sessions", "delete-all", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "All conversations deleted.")

	out, err = run(t, "", "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations yet.")

	out, err = run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")

	out, err = run(t, "", "whoami", api)
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
}

func TestChat_SessionFlagsExclusive(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "chat", "--new", "--session", "5", "hello")
	assert.Error(t, err)
}

func TestSignup_ShortPassword(t *testing.T) {
	isolate(t)
	_, err := run(t, "abc\n", "signup", "--email", "a@b.c", "--name", "A", "--username", "a")
	assert.ErrorContains(t, err, "at least 6")
}

func TestHashPassword(t *testing.T) {
	isolate(t)
	out, err := run(t, "correct horse\n", "serve", "hash-password")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "$2a$"), out)
}

// =============================================================================
// LINE MODE
// =============================================================================

type scriptReader struct {
	lines   []string
	prompts int
	history []string
}

func (s *scriptReader) Prompt(string) (string, error) {
	s.prompts++
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptReader) AppendHistory(item string) {
	s.history = append(s.history, item)
}

func TestPlainChatLoop(t *testing.T) {
	isolate(t)
	url := startBackend(t)

	app, err := openApp(&rootOptions{apiURL: url})
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	require.NoError(t, startChat(ctx, app, chatTarget{}))

	var out bytes.Buffer
	in := &scriptReader{lines: []string{
		"/help",
		"   ",
		"hello there",
		"/new",
		"/history",
		"/open 999",
		"/nope",
		"/quit",
		"never read",
	}}
	pc := &plainChat{app: app, out: &out, in: in, width: 80}
	require.NoError(t, pc.loop(ctx))

	text := out.String()
	assert.Contains(t, text, "Not signed in.")
	assert.Contains(t, text, "/export [format]")
	// The backend rejects the unauthenticated send.
	assert.Contains(t, text, "Could not reach the AI server.")
	assert.Contains(t, text, "Started ")
	assert.Contains(t, text, "session 999 not found")
	assert.Contains(t, text, "unknown command /nope")
	assert.Equal(t, 8, in.prompts)
	assert.NotContains(t, in.history, "   ")

	list := app.Store.Load()
	require.Len(t, list, 2)
	require.Len(t, list[0].Messages, 2)
	assert.Equal(t, "hello there", list[0].Messages[0].Message)
	assert.Empty(t, list[0].Messages[1].AIModelUsed)
	assert.Empty(t, list[1].Messages)
}

func TestPlainChatLoop_EOFEnds(t *testing.T) {
	isolate(t)
	app, err := openApp(&rootOptions{})
	require.NoError(t, err)
	defer app.Close()
	require.NoError(t, startChat(context.Background(), app, chatTarget{}))

	var out bytes.Buffer
	pc := &plainChat{app: app, out: &out, in: &scriptReader{}, width: 80}
	assert.NoError(t, pc.loop(context.Background()))
}

func TestStartChat_UnknownSession(t *testing.T) {
	isolate(t)
	app, err := openApp(&rootOptions{})
	require.NoError(t, err)
	defer app.Close()

	err = startChat(context.Background(), app, chatTarget{sessionID: 42})
	assert.ErrorContains(t, err, "session 42 not found")
}

func TestPickSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	list := []model.ChatSession{model.NewSession(1, now), model.NewSession(2, now)}

	s, err := pickSession(list, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.ID)

	s, err = pickSession(list, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.ID)

	_, err = pickSession(list, []string{"x"})
	assert.ErrorContains(t, err, "invalid session id")

	_, err = pickSession(nil, nil)
	assert.Error(t, err)
}

func TestResolveSettingKey(t *testing.T) {
	assert.Equal(t, "chat_font", resolveSettingKey("Font"))
	assert.Equal(t, "chat_typing", resolveSettingKey("typing"))
	assert.Equal(t, "chat_theme", resolveSettingKey("chat_theme"))
	assert.Equal(t, "other", resolveSettingKey("other"))
}
