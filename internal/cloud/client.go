// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/logging"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultModel is used when Options.Model is empty.
	DefaultModel = "llama-3.1-8b-instant"

	// DefaultTimeout bounds a single completion call including retries.
	DefaultTimeout = 45 * time.Second

	// DefaultMaxRetries is the number of retries on 429 and 5xx.
	DefaultMaxRetries = 2

	// ReplyMaxTokens caps the main reply.
	ReplyMaxTokens = 300

	// TitleMaxTokens caps the generated title.
	TitleMaxTokens = 20

	retryWait    = 500 * time.Millisecond
	retryMaxWait = 4 * time.Second
)

// Errors returned by the client.
var (
	ErrNotConfigured = errors.New("cloud: no base URL configured")
	ErrAuthFailed    = errors.New("cloud: authentication failed")
	ErrRateLimited   = errors.New("cloud: rate limited")
	ErrEmptyResponse = errors.New("cloud: completion has no choices")
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// Message is one turn in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage returns a system turn.
func SystemMessage(content string) Message { return Message{Role: "system", Content: content} }

// UserMessage returns a user turn.
func UserMessage(content string) Message { return Message{Role: "user", Content: content} }

// CompletionRequest is the body of POST /chat/completions.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

// CompletionResponse is the non-streaming completion result.
type CompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Content returns the first choice's text, or "" when there is none.
func (r *CompletionResponse) Content() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

type apiErrorResponse struct {
	Error struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx response that is not an auth or rate-limit failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cloud: HTTP %d", e.Status)
	}
	return fmt.Sprintf("cloud: HTTP %d: %s", e.Status, e.Message)
}

// =============================================================================
// CLIENT
// =============================================================================

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

// Client calls a chat completions endpoint. It is safe for concurrent use.
type Client struct {
	rc      *resty.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
	baseURL string
}

// New creates a client. Retries cover 429 and 5xx responses and transport
// errors; a cancelled context is never retried.
func New(opts Options) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	base := strings.TrimRight(opts.BaseURL, "/")

	rc := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.MaxRetries).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if opts.APIKey != "" {
		rc.SetAuthToken(opts.APIKey)
	}

	return &Client{
		rc:      rc,
		model:   opts.Model,
		timeout: opts.Timeout,
		logger:  logging.OrNop(opts.Logger).Named("cloud"),
		baseURL: base,
	}
}

// Model returns the model name sent with each request.
func (c *Client) Model() string { return c.model }

// Complete sends messages and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out CompletionResponse
	var apiErr apiErrorResponse
	start := time.Now()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(CompletionRequest{Model: c.model, Messages: messages, MaxTokens: maxTokens}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("cloud: request failed: %w", err)
	}

	c.logger.Debug("completion",
		zap.String("model", c.model),
		zap.Int("status", resp.StatusCode()),
		zap.Int("attempts", resp.Request.Attempt),
		zap.Duration("elapsed", time.Since(start)))

	if resp.IsError() {
		return "", statusError(resp.StatusCode(), apiErr.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return out.Content(), nil
}

// Reply answers message in the detected language.
func (c *Client) Reply(ctx context.Context, message, language string) (string, error) {
	system := "You are a supportive, multilingual mental-health companion. " +
		"Always reply in the same language as the user. Detected language: " + language + "."
	return c.Complete(ctx, []Message{SystemMessage(system), UserMessage(message)}, ReplyMaxTokens)
}

// Title asks for a short title describing message.
func (c *Client) Title(ctx context.Context, message string) (string, error) {
	prompt := fmt.Sprintf("Generate a short 3-6 word title describing the topic of this message: %q. "+
		"Return ONLY the title, no explanation.", message)
	title, err := c.Complete(ctx, []Message{UserMessage(prompt)}, TitleMaxTokens)
	if err != nil {
		return "", err
	}
	return CleanTitle(title), nil
}

// CleanTitle strips the quotes and trailing punctuation models like to add.
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "\"'`*“”")
	s = strings.TrimPrefix(s, "Title:")
	s = strings.TrimRight(s, ".")
	return strings.TrimSpace(s)
}

func statusError(status int, message string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrAuthFailed, message)
		}
		return ErrAuthFailed
	case http.StatusTooManyRequests:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrRateLimited, message)
		}
		return ErrRateLimited
	default:
		return &APIError{Status: status, Message: message}
	}
}
