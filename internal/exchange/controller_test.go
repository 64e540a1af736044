// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mindchat/internal/api"
	"github.com/jeranaias/mindchat/internal/session"
	"github.com/jeranaias/mindchat/internal/storage"
)

type fakeBackend struct {
	chat   func(ctx context.Context, message string) (*api.ChatResponse, error)
	detect func(ctx context.Context, text string) (string, error)
}

func (f *fakeBackend) Chat(ctx context.Context, message string) (*api.ChatResponse, error) {
	return f.chat(ctx, message)
}

func (f *fakeBackend) DetectLanguage(ctx context.Context, text string) (string, error) {
	if f.detect == nil {
		return "", errors.New("not implemented")
	}
	return f.detect(ctx, text)
}

func setup(t *testing.T, backend *fakeBackend) (*Controller, *session.Manager, storage.KV) {
	t.Helper()
	kv := storage.NewMemoryKV()
	mgr := session.NewManager(session.NewStore(kv, nil), session.Options{})
	require.NoError(t, mgr.Hydrate())
	return New(mgr, backend, Options{}), mgr, kv
}

func TestSend_TitleScenario(t *testing.T) {
	backend := &fakeBackend{chat: func(ctx context.Context, message string) (*api.ChatResponse, error) {
		return &api.ChatResponse{Reply: "I'm sorry to hear that...", Title: "Anxiety check-in"}, nil
	}}
	c, mgr, kv := setup(t, backend)

	res, err := c.Send(context.Background(), "I feel anxious today")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplied, res.Outcome)
	assert.True(t, res.TitleApplied)

	active, _ := mgr.Active()
	assert.Equal(t, "Anxiety check-in", active.Name)
	assert.True(t, active.TitleGenerated)
	require.Len(t, active.Messages, 2)
	assert.True(t, active.Messages[0].IsUserMessage)
	assert.Equal(t, "I feel anxious today", active.Messages[0].Message)
	assert.False(t, active.Messages[1].IsUserMessage)
	assert.Equal(t, "I'm sorry to hear that...", active.Messages[1].Message)
	assert.Equal(t, DefaultModelLabel, active.Messages[1].AIModelUsed)
	assert.Less(t, active.Messages[0].ID, active.Messages[1].ID)

	stored := session.NewStore(kv, nil).Load()
	require.Len(t, stored, 1)
	assert.Equal(t, "Anxiety check-in", stored[0].Name)
	assert.Len(t, stored[0].Messages, 2)

	assert.False(t, c.Responding())
	assert.Equal(t, StateSucceeded, c.State())
}

func TestSend_TitleAppliedOnlyOnce(t *testing.T) {
	titles := []string{"First title", "Second title"}
	backend := &fakeBackend{chat: func(ctx context.Context, message string) (*api.ChatResponse, error) {
		title := titles[0]
		titles = titles[1:]
		return &api.ChatResponse{Reply: "ok", Title: title}, nil
	}}
	c, mgr, _ := setup(t, backend)

	_, err := c.Send(context.Background(), "one")
	require.NoError(t, err)
	res, err := c.Send(context.Background(), "two")
	require.NoError(t, err)
	assert.False(t, res.TitleApplied)

	active, _ := mgr.Active()
	assert.Equal(t, "First title", active.Name)
	assert.Len(t, active.Messages, 4)
}

func TestSend_EmptyTitleKeepsName(t *testing.T) {
	backend := &fakeBackend{chat: func(ctx context.Context, message string) (*api.ChatResponse, error) {
		return &api.ChatResponse{Reply: "ok"}, nil
	}}
	c, mgr, _ := setup(t, backend)
	before, _ := mgr.Active()

	_, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)

	after, _ := mgr.Active()
	assert.Equal(t, before.Name, after.Name)
	assert.False(t, after.TitleGenerated)
}

func TestSend_FailureAppendsOneErrorMessage(t *testing.T) {
	backend := &fakeBackend{chat: func(ctx context.Context, message string) (*api.ChatResponse, error) {
		return nil, &api.Error{Kind: api.KindStatus, Status: 502}
	}}
	c, mgr, _ := setup(t, backend)

	res, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)

	msgs := mgr.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsUserMessage)
	assert.False(t, msgs[1].IsUserMessage)
	assert.Equal(t, DefaultErrorMessage, msgs[1].Message)
	assert.Empty(t, msgs[1].AIModelUsed)

	assert.False(t, c.Responding())
	assert.Equal(t, StateFailed, c.State())
}

func TestSend_BlankIgnored(t *testing.T) {
	called := false
	backend := &fakeBackend{chat: func(ctx context.Context, message string) (*api.ChatResponse, error) {
		called = true
		return &api.ChatResponse{Reply: "x"}, nil
	}}
	c, mgr, _ := setup(t, backend)

	res, err := c.Send(context.Background(), "   \n\t")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.False(t, called)
	assert.Empty(t, mgr.Messages())
	assert.Equal(t, StateIdle, c.State())
}

func TestSend_TrimsText(t *testing.T) {
	var got string
	backend := &fakeBackend{chat: func(ctx context.Context, message string) (*api.ChatResponse, error) {
		got = message
		return &api.ChatResponse{Reply: "x"}, nil
	}}
	c, mgr, _ := setup(t, backend)

	_, err := c.Send(context.Background(), "  hi there \n")
	require.NoError(t, err)
	assert.Equal(t, "hi there", got)
	assert.Equal(t, "hi there", mgr.Messages()[0].Message)
}

func TestSend_UserMessagePersistedBeforeCall(t *testing.T) {
	var kv storage.KV
	var c *Controller
	backend := &fakeBackend{}
	backend.chat = func(ctx context.Context, message string) (*api.ChatResponse, error) {
		stored := session.NewStore(kv, nil).Load()
		require.Len(t, stored, 1)
		require.Len(t, stored[0].Messages, 1)
		assert.Equal(t, "hello", stored[0].Messages[0].Message)
		assert.True(t, c.Responding())
		assert.Equal(t, StateSending, c.State())
		return &api.ChatResponse{Reply: "hi"}, nil
	}
	c, _, kv = setup(t, backend)

	_, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
}

func TestSend_NewSendSupersedesOld(t *testing.T) {
	started := make(chan struct{})
	backend := &fakeBackend{}
	backend.chat = func(ctx context.Context, message string) (*api.ChatResponse, error) {
		if message == "first" {
			close(started)
			<-ctx.Done()
			return nil, &api.Error{Kind: api.KindTransport, Cause: ctx.Err()}
		}
		return &api.ChatResponse{Reply: "reply to second"}, nil
	}
	c, mgr, _ := setup(t, backend)

	firstDone := make(chan Result, 1)
	go func() {
		res, err := c.Send(context.Background(), "first")
		assert.NoError(t, err)
		firstDone <- res
	}()
	<-started

	res, err := c.Send(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplied, res.Outcome)

	select {
	case first := <-firstDone:
		assert.Equal(t, OutcomeSuperseded, first.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("first send never returned")
	}

	msgs := mgr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Message)
	assert.Equal(t, "second", msgs[1].Message)
	assert.Equal(t, "reply to second", msgs[2].Message)
	assert.False(t, c.Responding())
}

func TestCancel_DiscardsCompletion(t *testing.T) {
	started := make(chan struct{})
	backend := &fakeBackend{chat: func(ctx context.Context, message string) (*api.ChatResponse, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c, mgr, _ := setup(t, backend)

	done := make(chan Result, 1)
	go func() {
		res, _ := c.Send(context.Background(), "hello")
		done <- res
	}()
	<-started
	c.Cancel()

	res := <-done
	assert.Equal(t, OutcomeSuperseded, res.Outcome)
	assert.Len(t, mgr.Messages(), 1)
	assert.False(t, c.Responding())
}

func TestSend_NoActiveSession(t *testing.T) {
	backend := &fakeBackend{chat: func(ctx context.Context, message string) (*api.ChatResponse, error) {
		return &api.ChatResponse{Reply: "x"}, nil
	}}
	c, mgr, _ := setup(t, backend)
	require.NoError(t, mgr.DeleteAll())

	_, err := c.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestSend_CustomLabels(t *testing.T) {
	backend := &fakeBackend{chat: func(ctx context.Context, message string) (*api.ChatResponse, error) {
		return nil, errors.New("down")
	}}
	kv := storage.NewMemoryKV()
	mgr := session.NewManager(session.NewStore(kv, nil), session.Options{})
	require.NoError(t, mgr.Hydrate())
	c := New(mgr, backend, Options{ErrorMessage: "offline"})

	_, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "offline", mgr.Messages()[1].Message)
}

// =============================================================================
// LANGUAGE HINT
// =============================================================================

func TestDetectLanguage(t *testing.T) {
	fail := false
	backend := &fakeBackend{detect: func(ctx context.Context, text string) (string, error) {
		if fail {
			return "", errors.New("down")
		}
		return "hi", nil
	}}
	c, _, _ := setup(t, backend)
	assert.Equal(t, DefaultLanguage, c.LanguageHint())

	assert.Equal(t, "hi", c.DetectLanguage(context.Background(), "नमस्ते"))
	assert.Equal(t, "hi", c.LanguageHint())

	fail = true
	assert.Equal(t, "hi", c.DetectLanguage(context.Background(), "hello"))
	assert.Equal(t, "hi", c.LanguageHint())
}

func TestDetectLanguage_GarbageKeepsHint(t *testing.T) {
	backend := &fakeBackend{detect: func(ctx context.Context, text string) (string, error) {
		return "???", nil
	}}
	c, _, _ := setup(t, backend)
	assert.Equal(t, DefaultLanguage, c.DetectLanguage(context.Background(), "hello"))
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"en", "en"},
		{"EN_us", "en-US"},
		{" gu ", "gu"},
		{"te", "te"},
		{"", ""},
		{"???", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLanguage(tt.in), "input %q", tt.in)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "sending", StateSending.String())
	assert.Equal(t, "unknown", State(42).String())
}
