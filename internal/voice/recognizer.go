// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice turns speech into chat messages.
//
// Terminals have no speech API, so recognition is delegated to an external
// program configured under [voice] (for example a whisper wrapper). The
// program receives the language hint and prints transcript lines on
// stdout; each line replaces the interim transcript and the last line
// before exit is final. Without a configured program every Start fails
// with ErrVoiceUnsupported.
package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/config"
	"github.com/jeranaias/mindchat/internal/logging"
)

// ErrVoiceUnsupported is returned when no recognizer is available.
var ErrVoiceUnsupported = errors.New("voice input is not supported in this terminal")

// Transcript is an interim or final recognition result.
type Transcript struct {
	Text  string
	Final bool
	// Err is set on the final transcript when the recognizer failed.
	Err error
}

// Recognizer starts speech recognition. The channel delivers interim
// transcripts, then one Final transcript, then closes. Cancelling ctx stops
// recognition early.
type Recognizer interface {
	Start(ctx context.Context, lang string) (<-chan Transcript, error)
}

// Unsupported is the recognizer used when none is configured.
type Unsupported struct{}

// Start implements Recognizer.
func (Unsupported) Start(context.Context, string) (<-chan Transcript, error) {
	return nil, ErrVoiceUnsupported
}

// NewRecognizer returns a CommandRecognizer for cfg, or Unsupported when no
// command is configured.
func NewRecognizer(cfg config.VoiceConfig, logger *zap.Logger) Recognizer {
	if strings.TrimSpace(cfg.Command) == "" {
		return Unsupported{}
	}
	return &CommandRecognizer{
		Command:      cfg.Command,
		Args:         cfg.Args,
		LanguageFlag: cfg.LanguageFlag,
		Logger:       logger,
	}
}

// CommandRecognizer runs an external program per recognition.
type CommandRecognizer struct {
	Command string
	Args    []string
	// LanguageFlag precedes the hint on the command line. Empty passes no hint.
	LanguageFlag string
	Logger       *zap.Logger
}

// Start implements Recognizer.
func (r *CommandRecognizer) Start(ctx context.Context, lang string) (<-chan Transcript, error) {
	if r.Command == "" {
		return nil, ErrVoiceUnsupported
	}
	logger := logging.OrNop(r.Logger).Named("voice")

	args := append([]string{}, r.Args...)
	if r.LanguageFlag != "" && lang != "" {
		args = append(args, r.LanguageFlag, lang)
	}

	cmd := exec.CommandContext(ctx, r.Command, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open recognizer output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s not found", ErrVoiceUnsupported, r.Command)
		}
		return nil, fmt.Errorf("failed to start recognizer: %w", err)
	}
	logger.Debug("recognizer started", zap.String("command", r.Command), zap.String("lang", lang))

	out := make(chan Transcript, 8)
	go func() {
		defer close(out)

		var last string
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			last = line
			select {
			case out <- Transcript{Text: line}:
			case <-ctx.Done():
			}
		}

		err := cmd.Wait()
		final := Transcript{Text: last, Final: true}
		// A cancelled recognition is a normal stop, not a failure.
		if err != nil && ctx.Err() == nil {
			logger.Warn("recognizer exited with error", zap.Error(err))
			final.Err = err
		}
		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()
	return out, nil
}
