// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/export"
	"github.com/jeranaias/mindchat/internal/storage"
	"github.com/jeranaias/mindchat/internal/ui/chat"
	"github.com/jeranaias/mindchat/internal/voice"
)

// chatTarget picks the session a chat starts in. The zero value resumes
// the most recent one.
type chatTarget struct {
	sessionID int64
	fresh     bool
}

// startChat restores the login and selects the target session.
func startChat(ctx context.Context, app *App, target chatTarget) error {
	if err := app.Auth.Hydrate(ctx); err != nil {
		app.Logger.Warn("failed to restore login", zap.Error(err))
	}
	if err := app.Sessions.Hydrate(); err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	switch {
	case target.fresh:
		if _, err := app.Sessions.StartNewSession(); err != nil {
			return err
		}
	case target.sessionID != 0:
		if !app.Sessions.LoadSession(target.sessionID) {
			return fmt.Errorf("session %d not found", target.sessionID)
		}
	}
	return nil
}

// runTUI opens the full-screen chat.
func runTUI(ctx context.Context, app *App, target chatTarget) error {
	if err := startChat(ctx, app, target); err != nil {
		return err
	}

	// Memory stores have nothing to watch; other backends pick up writes
	// from sibling processes.
	var watcher *storage.Watcher
	if path := app.KV.Path(); path != "" {
		w, err := storage.NewWatcher(path, storage.DefaultDebounce, app.Logger)
		if err != nil {
			app.Logger.Warn("store watcher unavailable", zap.Error(err))
		} else {
			watcher = w
			defer w.Close()
		}
	}

	userName := ""
	if user, err := app.Auth.RequireUser(); err == nil {
		userName = user.DisplayName()
	}

	rec := voice.NewRecognizer(app.Config.Voice, app.Logger)
	m := chat.New(chat.Deps{
		Sessions: app.Sessions,
		Exchange: app.Exchange,
		Prefs:    app.Prefs,
		Voice:    voice.NewInput(rec, app.Exchange, app.Logger),
		Watcher:  watcher,
		Export:   export.DefaultOptions(),
		UserName: userName,
		Logger:   app.Logger,
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat exited: %w", err)
	}
	return nil
}
