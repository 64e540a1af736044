// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud is a client for OpenAI-compatible chat completion APIs
// (Groq, OpenAI, OpenRouter, a local llama.cpp server). The development
// backend uses it to produce replies and session titles.
//
// # Usage
//
//	client := cloud.New(cloud.Options{
//	    BaseURL: "https://api.groq.com/openai/v1",
//	    APIKey:  key,
//	    Model:   "llama-3.1-8b-instant",
//	})
//	reply, err := client.Reply(ctx, "I can't sleep", "en")
//	title, err := client.Title(ctx, "I can't sleep")
//
// The API key is sent as a bearer token and never logged.
package cloud
