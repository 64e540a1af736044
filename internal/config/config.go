// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/jeranaias/mindchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete mindchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// API is the backend the client talks to.
	API APIConfig `toml:"api" json:"api"`

	// Storage selects where sessions and preferences live.
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Chat holds the fixed strings written into conversations.
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Voice configures the optional speech recognizer.
	Voice VoiceConfig `toml:"voice" json:"voice"`

	// Log configures the zap logger.
	Log LogConfig `toml:"log" json:"log"`

	// Server configures `mindchat serve`.
	Server ServerConfig `toml:"server" json:"server"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	// BaseURL of the backend, e.g. http://localhost:8000
	BaseURL string `toml:"base_url" json:"base_url" env:"MINDCHAT_API_URL"`

	// ChatTimeoutSecs bounds a single /chat/ call. 0 uses the default.
	ChatTimeoutSecs int `toml:"chat_timeout_secs" json:"chat_timeout_secs" env:"MINDCHAT_CHAT_TIMEOUT"`

	// DetectTimeoutSecs bounds /detect-language/ and /auth/* calls.
	DetectTimeoutSecs int `toml:"detect_timeout_secs" json:"detect_timeout_secs"`

	// RetryMax is the retry budget for idempotent calls. /chat/ is never retried.
	RetryMax int `toml:"retry_max" json:"retry_max"`
}

// StorageConfig selects the local key-value backend.
type StorageConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `toml:"backend" json:"backend" env:"MINDCHAT_STORAGE"`

	// Dir overrides the data directory (default: the config directory).
	Dir string `toml:"dir" json:"dir" env:"MINDCHAT_DATA_DIR"`
}

// ChatConfig holds conversation constants.
type ChatConfig struct {
	// ModelLabel is stamped on every assistant reply.
	ModelLabel string `toml:"model_label" json:"model_label" env:"MINDCHAT_MODEL_LABEL"`

	// ErrorMessage is the synthetic assistant message appended on failure.
	ErrorMessage string `toml:"error_message" json:"error_message"`

	// DefaultLanguage is the first voice recognition hint.
	DefaultLanguage string `toml:"default_language" json:"default_language"`
}

// VoiceConfig configures the external speech recognizer.
type VoiceConfig struct {
	// Command is an executable that prints transcript lines to stdout.
	// Empty means voice input is unsupported.
	Command string `toml:"command" json:"command" env:"MINDCHAT_VOICE_COMMAND"`

	// Args are passed before the language flag.
	Args []string `toml:"args" json:"args"`

	// LanguageFlag is the flag used to pass the language hint (default "--lang").
	LanguageFlag string `toml:"language_flag" json:"language_flag"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `toml:"level" json:"level" env:"MINDCHAT_LOG_LEVEL"`
	File        string `toml:"file" json:"file" env:"MINDCHAT_LOG_FILE"`
	Development bool   `toml:"development" json:"development"`
}

// ServerConfig configures the development backend.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr" env:"MINDCHAT_SERVER_ADDR"`

	// JWTSecret signs access tokens. Required to serve.
	JWTSecret string `toml:"jwt_secret" json:"jwt_secret" env:"MINDCHAT_JWT_SECRET"`

	TokenTTLMins int `toml:"token_ttl_mins" json:"token_ttl_mins"`

	// RateLimit is requests per second per client address; 0 disables.
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst"`

	// Upstream is an OpenAI-compatible chat completions API (Groq, OpenAI,
	// a local gateway). Empty URL serves canned replies.
	UpstreamURL   string `toml:"upstream_url" json:"upstream_url" env:"MINDCHAT_UPSTREAM_URL"`
	UpstreamKey   string `toml:"upstream_key" json:"upstream_key" env:"MINDCHAT_UPSTREAM_KEY"`
	UpstreamModel string `toml:"upstream_model" json:"upstream_model" env:"MINDCHAT_UPSTREAM_MODEL"`

	Users []UserConfig `toml:"users" json:"users"`
}

// UserConfig is an account accepted by the development backend.
type UserConfig struct {
	ID           int    `toml:"id" json:"id"`
	Email        string `toml:"email" json:"email"`
	FullName     string `toml:"full_name" json:"full_name"`
	Username     string `toml:"username" json:"username"`
	PasswordHash string `toml:"password_hash" json:"password_hash"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:           "http://localhost:8000",
			ChatTimeoutSecs:   60,
			DetectTimeoutSecs: 15,
			RetryMax:          2,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
		},
		Chat: ChatConfig{
			ModelLabel:      "Groq LLaMA 3.1 70B",
			ErrorMessage:    "⚠️ Error: Could not reach the AI server.",
			DefaultLanguage: "en",
		},
		Voice: VoiceConfig{
			LanguageFlag: "--lang",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:          "127.0.0.1:8000",
			TokenTTLMins:  60 * 24,
			RateLimit:     5,
			RateBurst:     10,
			UpstreamModel: "llama-3.1-8b-instant",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the mindchat configuration directory. MINDCHAT_HOME overrides
// the default of ~/.mindchat.
func Dir() (string, error) {
	if home := os.Getenv("MINDCHAT_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mindchat"), nil
}

// PathTOML returns the path to the TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the path to the JSON config file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DataDir returns the directory for the local store.
func (c *Config) DataDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	return Dir()
}

// LogPath returns the client log file path.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mindchat.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.mindchat/config.toml, falling back to config.json and then
// to defaults. Environment overrides are applied last, then validation.
// A missing file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := PathTOML()
	if err != nil {
		return nil, err
	}
	jsonPath, err := PathJSON()
	if err != nil {
		return nil, err
	}

	switch {
	case fileExists(tomlPath):
		if err := LoadTOML(cfg, tomlPath); err != nil {
			return nil, err
		}
	case fileExists(jsonPath):
		if err := LoadJSON(cfg, jsonPath); err != nil {
			return nil, err
		}
	}

	return finish(cfg)
}

// LoadFromPath loads a specific file; ".json" selects JSON, anything else TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, err
		}
	} else if err := LoadTOML(cfg, path); err != nil {
		return nil, err
	}
	return finish(cfg)
}

// LoadTOML decodes path over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML config %s: %w", path, err)
	}
	return nil
}

// LoadJSON decodes path over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON config %s: %w", path, err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with 0600 permissions since it may hold the
// upstream API key and the JWT secret.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# mindchat configuration file\n")
	sb.WriteString("# Generated by mindchat - edit with care\n\n")

	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies MINDCHAT_* environment variables declared in the
// struct tags. Unset variables leave the loaded values alone.
//
// Supported variables:
//   - MINDCHAT_API_URL, MINDCHAT_CHAT_TIMEOUT
//   - MINDCHAT_STORAGE, MINDCHAT_DATA_DIR
//   - MINDCHAT_MODEL_LABEL, MINDCHAT_VOICE_COMMAND
//   - MINDCHAT_LOG_LEVEL, MINDCHAT_LOG_FILE
//   - MINDCHAT_SERVER_ADDR, MINDCHAT_JWT_SECRET
//   - MINDCHAT_UPSTREAM_URL, MINDCHAT_UPSTREAM_KEY, MINDCHAT_UPSTREAM_MODEL
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.ChatTimeoutSecs <= 0 {
		c.API.ChatTimeoutSecs = d.API.ChatTimeoutSecs
	}
	if c.API.DetectTimeoutSecs <= 0 {
		c.API.DetectTimeoutSecs = d.API.DetectTimeoutSecs
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Chat.ModelLabel == "" {
		c.Chat.ModelLabel = d.Chat.ModelLabel
	}
	if c.Chat.ErrorMessage == "" {
		c.Chat.ErrorMessage = d.Chat.ErrorMessage
	}
	if c.Chat.DefaultLanguage == "" {
		c.Chat.DefaultLanguage = d.Chat.DefaultLanguage
	}
	if c.Voice.LanguageFlag == "" {
		c.Voice.LanguageFlag = d.Voice.LanguageFlag
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.TokenTTLMins <= 0 {
		c.Server.TokenTTLMins = d.Server.TokenTTLMins
	}
	if c.Server.UpstreamModel == "" {
		c.Server.UpstreamModel = d.Server.UpstreamModel
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration. It returns ValidateErrors listing
// every problem found, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL %q", c.API.BaseURL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("unsupported scheme %q, must be http or https", u.Scheme),
		})
	}

	if c.API.RetryMax < 0 || c.API.RetryMax > 10 {
		errs = append(errs, ValidationError{
			Field:   "api.retry_max",
			Message: "must be between 0 and 10",
		})
	}

	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite", c.Storage.Backend),
		})
	}

	if c.Server.UpstreamURL != "" {
		if _, err := url.Parse(c.Server.UpstreamURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "server.upstream_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}

	if c.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit",
			Message: "cannot be negative",
		})
	}

	seen := make(map[string]bool)
	for i, u := range c.Server.Users {
		field := fmt.Sprintf("server.users[%d]", i)
		if u.Email == "" {
			errs = append(errs, ValidationError{Field: field + ".email", Message: "is required"})
		}
		if u.PasswordHash == "" {
			errs = append(errs, ValidationError{Field: field + ".password_hash", Message: "is required"})
		}
		key := strings.ToLower(u.Email)
		if seen[key] {
			errs = append(errs, ValidationError{Field: field + ".email", Message: "duplicate email " + u.Email})
		}
		seen[key] = true
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ErrNoJWTSecret is returned by ValidateServer when serve has nothing to sign with.
var ErrNoJWTSecret = errors.New("server.jwt_secret is required to run the backend")

// ValidateServer checks the settings `mindchat serve` needs beyond Validate.
func (c *Config) ValidateServer() error {
	if c.Server.JWTSecret == "" {
		return ErrNoJWTSecret
	}
	return nil
}

// =============================================================================
// GLOBAL INSTANCE
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process configuration, loading it on first access.
// A broken config file falls back to defaults with a warning on stderr.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the process configuration.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the process configuration.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
