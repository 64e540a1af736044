// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds the signed-in user and their access token.
//
// State is persisted under the "auth-storage" key in the same key-value
// store as sessions, so every mindchat command shares one login.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/api"
	"github.com/jeranaias/mindchat/internal/logging"
	"github.com/jeranaias/mindchat/internal/storage"
)

// StorageKey is the key holding the persisted auth state.
const StorageKey = "auth-storage"

// Fallback messages when the backend gives no detail.
const (
	MsgLoginFailed  = "Login failed"
	MsgSignupFailed = "Signup failed"
)

// ErrNotAuthenticated is returned by operations that need a token.
var ErrNotAuthenticated = errors.New("not logged in")

// State is the authentication snapshot.
type State struct {
	Token           string    `json:"token"`
	User            *api.User `json:"user"`
	IsAuthenticated bool      `json:"isAuthenticated"`
}

// persisted wraps State in a versioned envelope.
type persisted struct {
	State   State `json:"state"`
	Version int   `json:"version"`
}

// Backend is the subset of api.Client the store uses.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.User, error)
	Me(ctx context.Context, token string) (*api.User, error)
}

// LoginError is returned by Login and Signup. Its message is safe to show
// to the user.
type LoginError struct {
	Message string
	Cause   error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Cause }

// Store is the explicit auth state object. It implements api.TokenSource.
type Store struct {
	mu      sync.RWMutex
	kv      storage.KV
	backend Backend
	logger  *zap.Logger
	state   State
}

// NewStore creates an empty store. Call Hydrate to load persisted state.
func NewStore(kv storage.KV, backend Backend, logger *zap.Logger) *Store {
	return &Store{
		kv:      kv,
		backend: backend,
		logger:  logging.OrNop(logger).Named("auth"),
	}
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

// Hydrate loads persisted state. A stored token is revalidated with
// /auth/me; when that fails the store logs out.
func (s *Store) Hydrate(ctx context.Context) error {
	loaded := s.load()

	s.mu.Lock()
	s.state = loaded
	s.mu.Unlock()

	if loaded.Token == "" {
		return nil
	}

	user, err := s.backend.Me(ctx, loaded.Token)
	if err != nil {
		s.logger.Info("stored token rejected, logging out", zap.Error(err))
		return s.Logout()
	}

	return s.set(State{Token: loaded.Token, User: user, IsAuthenticated: true})
}

// Login authenticates and persists the token and profile. On failure the
// state is cleared and a *LoginError carrying the server's detail (or
// "Login failed") is returned.
func (s *Store) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)

	resp, err := s.backend.Login(ctx, email, password)
	if err == nil {
		var user *api.User
		user, err = s.backend.Me(ctx, resp.AccessToken)
		if err == nil {
			s.logger.Info("logged in", zap.Int64("user_id", user.ID))
			return s.set(State{Token: resp.AccessToken, User: user, IsAuthenticated: true})
		}
	}

	if clearErr := s.set(State{}); clearErr != nil {
		s.logger.Warn("failed to clear auth state", zap.Error(clearErr))
	}
	return &LoginError{Message: detailOr(err, MsgLoginFailed), Cause: err}
}

// Signup registers an account without logging in.
func (s *Store) Signup(ctx context.Context, req api.RegisterRequest) (*api.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	user, err := s.backend.Register(ctx, req)
	if err != nil {
		return nil, &LoginError{Message: detailOr(err, MsgSignupFailed), Cause: err}
	}
	return user, nil
}

// Logout clears in-memory and persisted state.
func (s *Store) Logout() error {
	return s.set(State{})
}

// RequireUser returns the signed-in user or ErrNotAuthenticated.
func (s *Store) RequireUser() (api.User, error) {
	st := s.State()
	if !st.IsAuthenticated || st.User == nil {
		return api.User{}, ErrNotAuthenticated
	}
	return *st.User, nil
}

func (s *Store) set(st State) error {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	data, err := json.Marshal(persisted{State: st})
	if err != nil {
		return fmt.Errorf("failed to encode auth state: %w", err)
	}
	if err := s.kv.Set(StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to save auth state: %w", err)
	}
	return nil
}

// load reads persisted state. Missing or corrupt data is logged-out state.
func (s *Store) load() State {
	raw, err := s.kv.Get(StorageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("failed to read auth state", zap.Error(err))
		}
		return State{}
	}

	var p persisted
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("stored auth state is corrupt", zap.Error(err))
		return State{}
	}
	return p.State
}

func detailOr(err error, fallback string) string {
	if d := api.Detail(err); d != "" {
		return d
	}
	return fallback
}
