// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/exchange"
	"github.com/jeranaias/mindchat/internal/logging"
)

// ErrAlreadyRecording is returned by Start while a recognition is running.
var ErrAlreadyRecording = errors.New("already recording")

// Sender is the part of exchange.Controller voice input drives.
type Sender interface {
	Send(ctx context.Context, text string) (exchange.Result, error)
	DetectLanguage(ctx context.Context, text string) string
	LanguageHint() string
}

// Input is one voice side-channel: start, collect interim transcripts,
// stop, submit.
type Input struct {
	rec    Recognizer
	sender Sender
	logger *zap.Logger

	mu         sync.Mutex
	cancel     context.CancelFunc
	transcript string
}

// NewInput creates a voice input over rec.
func NewInput(rec Recognizer, sender Sender, logger *zap.Logger) *Input {
	if rec == nil {
		rec = Unsupported{}
	}
	return &Input{
		rec:    rec,
		sender: sender,
		logger: logging.OrNop(logger).Named("voice"),
	}
}

// Start begins recognition using the sender's current language hint.
func (in *Input) Start(ctx context.Context) (<-chan Transcript, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.cancel != nil {
		return nil, ErrAlreadyRecording
	}

	ctx, cancel := context.WithCancel(ctx)
	ch, err := in.rec.Start(ctx, in.sender.LanguageHint())
	if err != nil {
		cancel()
		return nil, err
	}
	in.cancel = cancel
	in.transcript = ""
	return ch, nil
}

// Observe records a transcript from the Start channel and returns the
// text to show in the input box.
func (in *Input) Observe(t Transcript) string {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t.Text != "" {
		in.transcript = t.Text
	}
	return in.transcript
}

// Recording reports whether recognition is running.
func (in *Input) Recording() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.cancel != nil
}

// Stop ends recognition and returns the accumulated transcript.
func (in *Input) Stop() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.cancel != nil {
		in.cancel()
		in.cancel = nil
	}
	t := in.transcript
	in.transcript = ""
	return t
}

// Submit sends a finished transcript. A blank transcript is dropped without
// contacting the backend. Otherwise the language is detected first, so the
// next recognition uses it, and the text is sent as a normal message.
func (in *Input) Submit(ctx context.Context, transcript string) (exchange.Result, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		in.logger.Debug("dropping blank transcript")
		return exchange.Result{Outcome: exchange.OutcomeIgnored}, nil
	}

	lang := in.sender.DetectLanguage(ctx, transcript)
	in.logger.Debug("detected language", zap.String("lang", lang))
	return in.sender.Send(ctx, transcript)
}
