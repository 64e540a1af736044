// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/mindchat/internal/config"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a bad password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailRegistered is returned when registering an existing email.
	ErrEmailRegistered = errors.New("email already registered")
)

// User is an account known to the backend.
type User struct {
	ID           int64
	Email        string
	FullName     string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// userDirectory holds accounts in memory. Seeded accounts come from
// configuration; registered ones last until the process exits.
type userDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]*User
	nextID  int64
	now     func() time.Time
}

func newUserDirectory(seed []config.UserConfig, now func() time.Time) *userDirectory {
	d := &userDirectory{byEmail: make(map[string]*User), nextID: 1, now: now}
	for _, u := range seed {
		id := int64(u.ID)
		if id <= 0 {
			id = d.nextID
		}
		if id >= d.nextID {
			d.nextID = id + 1
		}
		d.byEmail[normalizeEmail(u.Email)] = &User{
			ID:           id,
			Email:        strings.TrimSpace(u.Email),
			FullName:     u.FullName,
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			CreatedAt:    now(),
		}
	}
	return d
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks password against the stored bcrypt hash.
func (d *userDirectory) Authenticate(email, password string) (*User, error) {
	u, ok := d.Lookup(email)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Register adds an account.
func (d *userDirectory) Register(email, password, fullName, username string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	key := normalizeEmail(email)
	if _, exists := d.byEmail[key]; exists {
		return nil, ErrEmailRegistered
	}
	u := &User{
		ID:           d.nextID,
		Email:        strings.TrimSpace(email),
		FullName:     strings.TrimSpace(fullName),
		Username:     strings.TrimSpace(username),
		PasswordHash: string(hash),
		CreatedAt:    d.now(),
	}
	d.nextID++
	d.byEmail[key] = u
	copied := *u
	return &copied, nil
}

// Lookup returns a copy of the account for email.
func (d *userDirectory) Lookup(email string) (*User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, false
	}
	copied := *u
	return &copied, true
}

// HashPassword returns a bcrypt hash suitable for [[server.users]]
// password_hash entries.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
