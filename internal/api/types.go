// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

// ChatRequest is the body of POST /chat/.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply to POST /chat/. Title and Language are optional.
type ChatResponse struct {
	Reply    string `json:"reply"`
	Title    string `json:"title,omitempty"`
	Language string `json:"language,omitempty"`
}

// DetectRequest is the body of POST /detect-language/.
type DetectRequest struct {
	Text string `json:"text"`
}

// DetectResponse is the reply to POST /detect-language/.
type DetectResponse struct {
	Language string `json:"language"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the reply to POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
}

// User is the profile returned by GET /auth/me.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Username string `json:"username,omitempty"`
}

// DisplayName prefers the full name, then the username, then the email.
func (u User) DisplayName() string {
	switch {
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// errorBody is the backend's error shape.
type errorBody struct {
	Detail string `json:"detail"`
}
