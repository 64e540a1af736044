// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mindchat/internal/api"
	"github.com/jeranaias/mindchat/internal/storage"
)

// fakeBackend accepts one password and one token.
type fakeBackend struct {
	password string
	token    string
	user     api.User
	meCalls  int
	down     bool
}

func (f *fakeBackend) Login(_ context.Context, email, password string) (*api.LoginResponse, error) {
	if f.down {
		return nil, &api.Error{Kind: api.KindTransport, Op: "POST /auth/login", Cause: errors.New("connection refused")}
	}
	if password != f.password {
		return nil, &api.Error{Kind: api.KindStatus, Op: "POST /auth/login", Status: 400, Message: "Invalid credentials"}
	}
	return &api.LoginResponse{AccessToken: f.token, TokenType: "bearer"}, nil
}

func (f *fakeBackend) Register(_ context.Context, req api.RegisterRequest) (*api.User, error) {
	if req.Email == f.user.Email {
		return nil, &api.Error{Kind: api.KindStatus, Status: 400, Message: "Email already registered"}
	}
	if f.down {
		return nil, &api.Error{Kind: api.KindTransport, Cause: errors.New("connection refused")}
	}
	return &api.User{ID: 2, Email: req.Email, Username: req.Username}, nil
}

func (f *fakeBackend) Me(_ context.Context, token string) (*api.User, error) {
	f.meCalls++
	if token != f.token {
		return nil, &api.Error{Kind: api.KindStatus, Op: "GET /auth/me", Status: 401, Message: "Invalid or expired token"}
	}
	u := f.user
	return &u, nil
}

func newBackend() *fakeBackend {
	return &fakeBackend{
		password: "secret",
		token:    "jwt-1",
		user:     api.User{ID: 1, Email: "asha@example.com", FullName: "Asha Rao", Username: "asha"},
	}
}

func TestLogin_Success(t *testing.T) {
	kv := storage.NewMemoryKV()
	store := NewStore(kv, newBackend(), nil)

	require.NoError(t, store.Login(context.Background(), " asha@example.com ", "secret"))
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "jwt-1", store.Token())

	user, err := store.RequireUser()
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", user.FullName)

	raw, err := kv.Get(StorageKey)
	require.NoError(t, err)
	var p persisted
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, "jwt-1", p.State.Token)
	assert.True(t, p.State.IsAuthenticated)
}

func TestLogin_FailureClearsState(t *testing.T) {
	kv := storage.NewMemoryKV()
	store := NewStore(kv, newBackend(), nil)
	require.NoError(t, store.Login(context.Background(), "asha@example.com", "secret"))

	err := store.Login(context.Background(), "asha@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())

	var le *LoginError
	assert.True(t, errors.As(err, &le))
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.Token())
	_, err = store.RequireUser()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogin_NoDetailFallsBack(t *testing.T) {
	backend := newBackend()
	backend.down = true
	store := NewStore(storage.NewMemoryKV(), backend, nil)

	err := store.Login(context.Background(), "asha@example.com", "secret")
	require.Error(t, err)
	assert.Equal(t, MsgLoginFailed, err.Error())
}

func TestHydrate_ValidToken(t *testing.T) {
	kv := storage.NewMemoryKV()
	backend := newBackend()
	require.NoError(t, NewStore(kv, backend, nil).Login(context.Background(), "asha@example.com", "secret"))

	fresh := NewStore(kv, backend, nil)
	require.NoError(t, fresh.Hydrate(context.Background()))
	assert.True(t, fresh.IsAuthenticated())
	assert.Equal(t, "jwt-1", fresh.Token())
}

func TestHydrate_RejectedTokenLogsOut(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(StorageKey, `{"state":{"token":"expired","user":{"id":1,"email":"a@b.c"},"isAuthenticated":true},"version":0}`))

	store := NewStore(kv, newBackend(), nil)
	require.NoError(t, store.Hydrate(context.Background()))
	assert.False(t, store.IsAuthenticated())

	raw, err := kv.Get(StorageKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"isAuthenticated":false`)
}

func TestHydrate_NoTokenSkipsBackend(t *testing.T) {
	backend := newBackend()
	store := NewStore(storage.NewMemoryKV(), backend, nil)
	require.NoError(t, store.Hydrate(context.Background()))
	assert.Zero(t, backend.meCalls)
	assert.False(t, store.IsAuthenticated())
}

func TestHydrate_CorruptStateIsLoggedOut(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(StorageKey, "{"))
	store := NewStore(kv, newBackend(), nil)
	require.NoError(t, store.Hydrate(context.Background()))
	assert.False(t, store.IsAuthenticated())
}

func TestLogout(t *testing.T) {
	kv := storage.NewMemoryKV()
	store := NewStore(kv, newBackend(), nil)
	require.NoError(t, store.Login(context.Background(), "asha@example.com", "secret"))

	require.NoError(t, store.Logout())
	assert.Equal(t, State{}, store.State())

	fresh := NewStore(kv, newBackend(), nil)
	require.NoError(t, fresh.Hydrate(context.Background()))
	assert.False(t, fresh.IsAuthenticated())
}

func TestSignup(t *testing.T) {
	store := NewStore(storage.NewMemoryKV(), newBackend(), nil)

	user, err := store.Signup(context.Background(), api.RegisterRequest{Email: "new@example.com", Password: "pw", Username: "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", user.Username)
	assert.False(t, store.IsAuthenticated())

	_, err = store.Signup(context.Background(), api.RegisterRequest{Email: "asha@example.com"})
	assert.EqualError(t, err, "Email already registered")
}

func TestStore_IsTokenSource(t *testing.T) {
	var _ api.TokenSource = (*Store)(nil)
}
