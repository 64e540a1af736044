// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is the development backend behind `mindchat serve`. It
// speaks the same HTTP contract the chat client expects so the client can
// be run end to end without the hosted service.
//
// Endpoints:
//   - POST /auth/login        - exchange credentials for a bearer token
//   - POST /auth/register     - create an account
//   - GET  /auth/me           - profile of the bearer
//   - POST /chat/             - reply, title, and detected language
//   - POST /detect-language/  - script-based language detection
//   - GET  /health            - liveness
//   - GET  /metrics           - Prometheus metrics
//
// Errors use the {"detail": "..."} body the client decodes. Replies come
// from an OpenAI-compatible upstream when one is configured and from a
// local echo responder otherwise.
package server
