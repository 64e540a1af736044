// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mindchat/internal/config"
	"github.com/jeranaias/mindchat/internal/exchange"
)

type fakeSender struct {
	hint     string
	detected []string
	sent     []string
}

func (f *fakeSender) Send(_ context.Context, text string) (exchange.Result, error) {
	f.sent = append(f.sent, text)
	return exchange.Result{Outcome: exchange.OutcomeReplied}, nil
}

func (f *fakeSender) DetectLanguage(_ context.Context, text string) string {
	f.detected = append(f.detected, text)
	f.hint = "hi"
	return f.hint
}

func (f *fakeSender) LanguageHint() string { return f.hint }

// scriptedRecognizer replays fixed transcripts.
type scriptedRecognizer struct {
	lines []string
	lang  string
}

func (s *scriptedRecognizer) Start(_ context.Context, lang string) (<-chan Transcript, error) {
	s.lang = lang
	ch := make(chan Transcript, len(s.lines)+1)
	last := ""
	for _, l := range s.lines {
		ch <- Transcript{Text: l}
		last = l
	}
	ch <- Transcript{Text: last, Final: true}
	close(ch)
	return ch, nil
}

func collect(t *testing.T, ch <-chan Transcript) []Transcript {
	t.Helper()
	var out []Transcript
	timeout := time.After(5 * time.Second)
	for {
		select {
		case tr, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, tr)
		case <-timeout:
			t.Fatal("recognizer never finished")
		}
	}
}

func TestUnsupported(t *testing.T) {
	in := NewInput(nil, &fakeSender{hint: "en"}, nil)
	_, err := in.Start(context.Background())
	assert.ErrorIs(t, err, ErrVoiceUnsupported)
	assert.False(t, in.Recording())
}

func TestNewRecognizer(t *testing.T) {
	assert.IsType(t, Unsupported{}, NewRecognizer(config.VoiceConfig{}, nil))
	assert.IsType(t, &CommandRecognizer{}, NewRecognizer(config.VoiceConfig{Command: "whisper-cli"}, nil))
}

func TestInput_FullFlow(t *testing.T) {
	sender := &fakeSender{hint: "en"}
	rec := &scriptedRecognizer{lines: []string{"I feel", "I feel anxious today"}}
	in := NewInput(rec, sender, nil)

	ch, err := in.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, in.Recording())
	assert.Equal(t, "en", rec.lang)

	_, err = in.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRecording)

	var shown string
	for _, tr := range collect(t, ch) {
		shown = in.Observe(tr)
	}
	assert.Equal(t, "I feel anxious today", shown)

	transcript := in.Stop()
	assert.False(t, in.Recording())

	res, err := in.Submit(context.Background(), transcript)
	require.NoError(t, err)
	assert.Equal(t, exchange.OutcomeReplied, res.Outcome)
	assert.Equal(t, []string{"I feel anxious today"}, sender.detected)
	assert.Equal(t, []string{"I feel anxious today"}, sender.sent)
	assert.Equal(t, "hi", sender.LanguageHint())
}

func TestInput_BlankTranscriptDropped(t *testing.T) {
	sender := &fakeSender{hint: "en"}
	in := NewInput(&scriptedRecognizer{}, sender, nil)

	res, err := in.Submit(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, exchange.OutcomeIgnored, res.Outcome)
	assert.Empty(t, sender.detected)
	assert.Empty(t, sender.sent)
}

func TestInput_StopWithoutStart(t *testing.T) {
	in := NewInput(&scriptedRecognizer{}, &fakeSender{}, nil)
	assert.Equal(t, "", in.Stop())
}

func TestCommandRecognizer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	rec := &CommandRecognizer{
		Command:      "sh",
		Args:         []string{"-c", `echo partial; echo ""; echo "final $2"`, "sh"},
		LanguageFlag: "--lang",
	}

	ch, err := rec.Start(context.Background(), "gu")
	require.NoError(t, err)

	got := collect(t, ch)
	require.Len(t, got, 3)
	assert.Equal(t, Transcript{Text: "partial"}, got[0])
	assert.Equal(t, Transcript{Text: "final gu"}, got[1])
	assert.True(t, got[2].Final)
	assert.Equal(t, "final gu", got[2].Text)
	assert.NoError(t, got[2].Err)
}

func TestCommandRecognizer_ExitError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	rec := &CommandRecognizer{Command: "sh", Args: []string{"-c", "echo oops; exit 3"}}

	ch, err := rec.Start(context.Background(), "")
	require.NoError(t, err)
	got := collect(t, ch)
	require.NotEmpty(t, got)
	assert.Error(t, got[len(got)-1].Err)
}

func TestCommandRecognizer_MissingBinary(t *testing.T) {
	rec := &CommandRecognizer{Command: "mindchat-no-such-recognizer"}
	_, err := rec.Start(context.Background(), "en")
	assert.ErrorIs(t, err, ErrVoiceUnsupported)
}
