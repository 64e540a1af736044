// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for mindchat.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (MINDCHAT_*)
//   - ~/.mindchat/config.toml
//   - ~/.mindchat/config.json
//   - Built-in defaults
//
// MINDCHAT_HOME moves the whole directory, which is how tests and
// multi-profile setups isolate themselves.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := api.New(api.OptionsFromConfig(cfg))
//
// `mindchat config init` writes the defaults to disk as a starting point.
package config
