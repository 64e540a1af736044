// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exchange

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/jeranaias/mindchat/internal/api"
	"github.com/jeranaias/mindchat/internal/config"
	"github.com/jeranaias/mindchat/internal/logging"
	"github.com/jeranaias/mindchat/internal/model"
	"github.com/jeranaias/mindchat/internal/session"
)

// Defaults used when Options leave a field empty.
const (
	DefaultModelLabel   = "Groq LLaMA 3.1 70B"
	DefaultErrorMessage = "⚠️ Error: Could not reach the AI server."
	DefaultLanguage     = "en"
)

// ErrNoActiveSession is returned by Send when there is nothing to send to.
var ErrNoActiveSession = errors.New("no active session")

// =============================================================================
// STATE
// =============================================================================

// State is the phase of the most recent send.
type State int

const (
	StateIdle State = iota
	StateSending
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome says what a Send call did.
type Outcome int

const (
	// OutcomeIgnored means the text was blank and nothing happened.
	OutcomeIgnored Outcome = iota
	// OutcomeReplied means the assistant reply was appended.
	OutcomeReplied
	// OutcomeFailed means the synthetic error message was appended.
	OutcomeFailed
	// OutcomeSuperseded means a newer send took over; the completion was dropped.
	OutcomeSuperseded
)

// Result describes a finished Send.
type Result struct {
	Outcome   Outcome
	SessionID int64
	// TitleApplied is true when this send renamed the session.
	TitleApplied bool
	// Language is what the backend reported for the message, if anything.
	Language string
	// Err is the backend failure behind OutcomeFailed.
	Err error
}

// Backend is the subset of api.Client the controller uses.
type Backend interface {
	Chat(ctx context.Context, message string) (*api.ChatResponse, error)
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Options configures a Controller.
type Options struct {
	ModelLabel      string
	ErrorMessage    string
	DefaultLanguage string
	Logger          *zap.Logger
}

// OptionsFromConfig maps the [chat] config section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ModelLabel:      cfg.Chat.ModelLabel,
		ErrorMessage:    cfg.Chat.ErrorMessage,
		DefaultLanguage: cfg.Chat.DefaultLanguage,
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs message exchanges against the active session.
type Controller struct {
	sessions *session.Manager
	backend  Backend
	opts     Options
	logger   *zap.Logger

	mu         sync.Mutex
	token      uint64
	cancel     context.CancelFunc
	state      State
	responding bool
	hint       string
}

// New creates a controller.
func New(sessions *session.Manager, backend Backend, opts Options) *Controller {
	if opts.ModelLabel == "" {
		opts.ModelLabel = DefaultModelLabel
	}
	if opts.ErrorMessage == "" {
		opts.ErrorMessage = DefaultErrorMessage
	}
	hint := NormalizeLanguage(opts.DefaultLanguage)
	if hint == "" {
		hint = DefaultLanguage
	}
	return &Controller{
		sessions: sessions,
		backend:  backend,
		opts:     opts,
		logger:   logging.OrNop(opts.Logger).Named("exchange"),
		hint:     hint,
	}
}

// Send appends text to the active session as a user message, asks the
// backend for a reply, and appends the reply or an error message. Blank
// text is ignored. A Send already in flight is cancelled and its
// completion discarded.
//
// The returned error covers local failures only (no active session, store
// writes). Backend failures are reported through Result.
func (c *Controller) Send(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Outcome: OutcomeIgnored}, nil
	}

	active, ok := c.sessions.Active()
	if !ok {
		return Result{}, ErrNoActiveSession
	}

	ctx, tok := c.begin(ctx)

	userMsg := model.NewUserMessage(c.sessions.NextID(), text, c.sessions.Now())
	if _, err := c.sessions.AppendMessage(active.ID, userMsg); err != nil {
		c.finish(tok, StateFailed)
		return Result{SessionID: active.ID}, err
	}

	resp, callErr := c.backend.Chat(ctx, text)

	// Completion runs under mu so a newer send can't interleave its user
	// message between the stale check and our append.
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok != c.token {
		c.logger.Debug("discarding superseded reply", zap.Uint64("token", tok))
		return Result{Outcome: OutcomeSuperseded, SessionID: active.ID}, nil
	}
	defer c.finishLocked(tok)

	if callErr != nil {
		c.logger.Warn("chat request failed", zap.Int64("session_id", active.ID), zap.Error(callErr))
		errMsg := model.NewErrorMessage(c.sessions.NextID(), c.opts.ErrorMessage, c.sessions.Now())
		c.state = StateFailed
		if _, err := c.sessions.AppendMessage(active.ID, errMsg); err != nil {
			return Result{Outcome: OutcomeFailed, SessionID: active.ID, Err: callErr}, err
		}
		return Result{Outcome: OutcomeFailed, SessionID: active.ID, Err: callErr}, nil
	}

	result := Result{Outcome: OutcomeReplied, SessionID: active.ID, Language: resp.Language}

	if strings.TrimSpace(resp.Title) != "" {
		applied, err := c.sessions.ApplyTitle(active.ID, resp.Title)
		if err != nil {
			c.logger.Warn("failed to apply title", zap.Error(err))
		}
		result.TitleApplied = applied
	}

	reply := model.NewAssistantMessage(c.sessions.NextID(), resp.Reply, c.opts.ModelLabel, c.sessions.Now())
	if _, err := c.sessions.AppendMessage(active.ID, reply); err != nil {
		c.state = StateFailed
		return result, err
	}
	c.state = StateSucceeded
	return result, nil
}

// Cancel aborts the send in flight, if any. Its completion is discarded.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.token++
	c.responding = false
	c.state = StateIdle
}

// Responding reports whether a send is waiting on the backend.
func (c *Controller) Responding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responding
}

// State returns the phase of the latest send.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) begin(parent context.Context) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	c.token++
	c.cancel = cancel
	c.state = StateSending
	c.responding = true
	return ctx, c.token
}

func (c *Controller) finish(tok uint64, st State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok != c.token {
		return
	}
	c.state = st
	c.finishLocked(tok)
}

func (c *Controller) finishLocked(tok uint64) {
	if tok != c.token {
		return
	}
	c.responding = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// =============================================================================
// LANGUAGE HINT
// =============================================================================

// LanguageHint returns the language to use for the next voice recognition.
func (c *Controller) LanguageHint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hint
}

// DetectLanguage asks the backend for text's language and keeps it as the
// next hint. Failures are logged and the previous hint stays.
func (c *Controller) DetectLanguage(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return c.LanguageHint()
	}

	lang, err := c.backend.DetectLanguage(ctx, text)
	if err != nil {
		c.logger.Debug("language detection failed", zap.Error(err))
		return c.LanguageHint()
	}
	norm := NormalizeLanguage(lang)
	if norm == "" {
		c.logger.Debug("ignoring unparseable language", zap.String("language", lang))
		return c.LanguageHint()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hint = norm
	return norm
}

// NormalizeLanguage canonicalizes a BCP 47 tag ("EN_us" -> "en-US").
// It returns "" for anything unparseable.
func NormalizeLanguage(tag string) string {
	tag = strings.TrimSpace(strings.ReplaceAll(tag, "_", "-"))
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil || t == language.Und {
		return ""
	}
	return t.String()
}
