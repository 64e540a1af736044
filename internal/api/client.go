// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/config"
	"github.com/jeranaias/mindchat/internal/logging"
)

// Configuration constants.
const (
	DefaultChatTimeout   = 60 * time.Second
	DefaultDetectTimeout = 15 * time.Second
	DefaultRetryMax      = 2

	defaultRetryWaitMin = 250 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second

	// RequestIDHeader is set on every request for log correlation.
	RequestIDHeader = "X-Request-ID"
)

// TokenSource supplies the bearer token. An empty token sends no
// Authorization header.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() string { return string(t) }

// Options configures a Client.
type Options struct {
	BaseURL       string
	ChatTimeout   time.Duration
	DetectTimeout time.Duration
	RetryMax      int
	RetryWaitMin  time.Duration
	RetryWaitMax  time.Duration
	UserAgent     string
	Tokens        TokenSource
	Logger        *zap.Logger
}

// OptionsFromConfig maps the [api] config section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:       cfg.API.BaseURL,
		ChatTimeout:   time.Duration(cfg.API.ChatTimeoutSecs) * time.Second,
		DetectTimeout: time.Duration(cfg.API.DetectTimeoutSecs) * time.Second,
		RetryMax:      cfg.API.RetryMax,
	}
}

// Client talks to the mindchat backend. It is safe for concurrent use.
type Client struct {
	// once sends each request exactly once.
	once *resty.Client
	// retrying retries idempotent requests on connection errors and 5xx.
	retrying *resty.Client

	chatTimeout   time.Duration
	detectTimeout time.Duration
	logger        *zap.Logger

	mu     sync.RWMutex
	tokens TokenSource
}

// New creates a client.
func New(opts Options) *Client {
	if opts.ChatTimeout <= 0 {
		opts.ChatTimeout = DefaultChatTimeout
	}
	if opts.DetectTimeout <= 0 {
		opts.DetectTimeout = DefaultDetectTimeout
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = defaultRetryWaitMin
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = defaultRetryWaitMax
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "mindchat/1.0"
	}
	logger := logging.OrNop(opts.Logger).Named("api")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.Logger = retryLogger{logger.Sugar()}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	base := strings.TrimRight(opts.BaseURL, "/")
	newResty := func(transport http.RoundTripper) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetTransport(transport).
			SetHeader("User-Agent", opts.UserAgent).
			SetHeader("Accept", "application/json")
	}

	return &Client{
		once:          newResty(retryClient.HTTPClient.Transport),
		retrying:      newResty(&retryablehttp.RoundTripper{Client: retryClient}),
		chatTimeout:   opts.ChatTimeout,
		detectTimeout: opts.DetectTimeout,
		logger:        logger,
		tokens:        opts.Tokens,
	}
}

// SetTokenSource replaces the token source.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Chat sends one user message. It is never retried: a retried /chat/ could
// produce two replies.
func (c *Client) Chat(ctx context.Context, message string) (*ChatResponse, error) {
	var out ChatResponse
	err := c.do(ctx, c.once, c.chatTimeout, http.MethodPost, "/chat/", c.token(), ChatRequest{Message: message}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DetectLanguage asks the backend for the language of text.
func (c *Client) DetectLanguage(ctx context.Context, text string) (string, error) {
	var out DetectResponse
	err := c.do(ctx, c.retrying, c.detectTimeout, http.MethodPost, "/detect-language/", c.token(), DetectRequest{Text: text}, &out)
	if err != nil {
		return "", err
	}
	return out.Language, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, c.once, c.detectTimeout, http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &Error{Kind: KindDecode, Op: "POST /auth/login", Status: http.StatusOK, Cause: errors.New("response has no access_token")}
	}
	return &out, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var out User
	if err := c.do(ctx, c.once, c.detectTimeout, http.MethodPost, "/auth/register", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the profile for token. An empty token uses the TokenSource.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	if token == "" {
		token = c.token()
	}
	var out User
	if err := c.do(ctx, c.retrying, c.detectTimeout, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

func (c *Client) do(ctx context.Context, rc *resty.Client, timeout time.Duration, method, path, token string, body, out any) error {
	op := method + " " + path
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	requestID := uuid.NewString()
	req := rc.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, requestID)
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Error(err))
		return &Error{Kind: KindTransport, Op: op, Cause: err}
	}

	c.logger.Debug("request done",
		zap.String("op", op),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)))

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		apiErr := &Error{Kind: KindStatus, Op: op, Status: resp.StatusCode()}
		var eb errorBody
		if json.Unmarshal(resp.Body(), &eb) == nil {
			apiErr.Message = eb.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &Error{Kind: KindDecode, Op: op, Status: resp.StatusCode(), Cause: err}
	}
	return nil
}

// retryLogger routes retryablehttp's leveled logging into zap. Attempt
// failures are expected noise and stay at debug.
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.s.Warnw(msg, kv...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
