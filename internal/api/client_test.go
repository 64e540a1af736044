// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mindchat/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:      srv.URL,
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
		Tokens:       StaticToken(token),
	})
}

func TestChat_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "I feel anxious today", req.Message)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply":"I'm sorry to hear that...","title":"Anxiety check-in","language":"en"}`))
	}, "tok-123")

	resp, err := client.Chat(context.Background(), "I feel anxious today")
	require.NoError(t, err)
	assert.Equal(t, "I'm sorry to hear that...", resp.Reply)
	assert.Equal(t, "Anxiety check-in", resp.Title)
	assert.Equal(t, "en", resp.Language)
}

func TestChat_NoTokenNoAuthHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"reply":"ok"}`))
	}, "")

	_, err := client.Chat(context.Background(), "hi")
	require.NoError(t, err)
}

func TestChat_ServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"upstream down"}`))
	}, "tok")

	_, err := client.Chat(context.Background(), "hi")
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindStatus, apiErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestChat_UndecodableBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}, "tok")

	_, err := client.Chat(context.Background(), "hi")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindDecode, apiErr.Kind)
}

func TestChat_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := New(Options{BaseURL: url})
	_, err := client.Chat(context.Background(), "hi")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestChat_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, "tok")
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Chat(ctx, "hi")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
}

func TestDetectLanguage_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect-language/", r.URL.Path)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req DetectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "नमस्ते", req.Text)
		_, _ = w.Write([]byte(`{"language":"hi"}`))
	}, "tok")

	lang, err := client.DetectLanguage(context.Background(), "नमस्ते")
	require.NoError(t, err)
	assert.Equal(t, "hi", lang)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"jwt","token_type":"bearer"}`))
	}, "stale")

	resp, err := client.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.AccessToken)

	_, err = client.Login(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", Detail(err))
}

func TestMe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid or expired token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":7,"email":"a@b.c","full_name":"Asha Rao","username":"asha"}`))
	}, "")

	user, err := client.Me(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "Asha Rao", user.DisplayName())

	_, err = client.Me(context.Background(), "bad")
	assert.True(t, IsUnauthorized(err))
}

func TestSetTokenSource(t *testing.T) {
	var seen atomic.Value
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"reply":"ok"}`))
	}, "one")

	client.SetTokenSource(StaticToken("two"))
	_, err := client.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Bearer two", seen.Load())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, cfg.API.BaseURL, opts.BaseURL)
	assert.Equal(t, 60*time.Second, opts.ChatTimeout)
	assert.Equal(t, 15*time.Second, opts.DetectTimeout)
	assert.Equal(t, 2, opts.RetryMax)
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "asha", User{Email: "a@b.c", Username: "asha"}.DisplayName())
	assert.Equal(t, "a@b.c", User{Email: "a@b.c"}.DisplayName())
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindStatus, Op: "POST /chat/", Status: 502}
	assert.Equal(t, "POST /chat/: HTTP 502", err.Error())
	assert.Equal(t, "decode", KindDecode.String())
}

func TestRegister(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		var req RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Email == "taken@b.c" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"Email already registered"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":3,"email":"` + req.Email + `","full_name":"` + req.FullName + `","username":"` + req.Username + `"}`))
	}, "")

	user, err := client.Register(context.Background(), RegisterRequest{Email: "new@b.c", Password: "pw", FullName: "New User", Username: "new"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "new", user.Username)

	_, err = client.Register(context.Background(), RegisterRequest{Email: "taken@b.c"})
	assert.Equal(t, "Email already registered", Detail(err))
}
