// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/mindchat/internal/exchange"
	"github.com/jeranaias/mindchat/internal/export"
	"github.com/jeranaias/mindchat/internal/model"
	"github.com/jeranaias/mindchat/internal/voice"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// SendDoneMsg reports a finished exchange.
type SendDoneMsg struct {
	Result exchange.Result
	Err    error
}

// ExportDoneMsg reports a finished export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// VoiceStartedMsg reports the outcome of starting recognition.
type VoiceStartedMsg struct {
	Transcripts <-chan voice.Transcript
	Err         error
}

// TranscriptMsg carries one recognizer update. Closed is set when the
// recognizer finished.
type TranscriptMsg struct {
	Transcript  voice.Transcript
	Transcripts <-chan voice.Transcript
	Closed      bool
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

func sendCmd(ctrl *exchange.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.Send(context.Background(), text)
		return SendDoneMsg{Result: res, Err: err}
	}
}

func submitVoiceCmd(in *voice.Input, transcript string) tea.Cmd {
	return func() tea.Msg {
		res, err := in.Submit(context.Background(), transcript)
		return SendDoneMsg{Result: res, Err: err}
	}
}

func startVoiceCmd(in *voice.Input) tea.Cmd {
	return func() tea.Msg {
		ch, err := in.Start(context.Background())
		return VoiceStartedMsg{Transcripts: ch, Err: err}
	}
}

func waitTranscriptCmd(ch <-chan voice.Transcript) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		return TranscriptMsg{Transcript: t, Transcripts: ch, Closed: !ok}
	}
}

func exportCmd(s model.ChatSession, opts *export.Options) tea.Cmd {
	return func() tea.Msg {
		exp, err := export.ForFormat(export.FormatText, opts)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		path, err := export.ExportToFile(s, exp, opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}
