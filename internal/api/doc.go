// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the mindchat backend.
//
// It covers these endpoints:
//
//	POST /chat/            {message}          -> {reply, title, language}
//	POST /detect-language/ {text}             -> {language}
//	POST /auth/login       {email, password}  -> {access_token, token_type}
//	POST /auth/register   {email, password, full_name, username} -> user
//	GET  /auth/me                             -> {id, email, full_name, username}
//
// Requests carry "Authorization: Bearer <token>" from a TokenSource and an
// X-Request-ID header. Idempotent calls go through a retrying transport;
// /chat/ is sent exactly once.
//
// Failures are returned as *Error with a Kind so callers can tell transport
// problems from HTTP status failures and undecodable bodies.
package api
