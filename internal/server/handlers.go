// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type detectRequest struct {
	Text string `json:"text"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u *User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Username:  u.Username,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "email and password are required")
		return
	}

	user, err := s.users.Authenticate(req.Email, req.Password)
	if err != nil {
		s.metrics.logins.WithLabelValues("rejected").Inc()
		abortDetail(c, http.StatusBadRequest, "Invalid credentials")
		return
	}
	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		_ = c.Error(err)
		abortDetail(c, http.StatusInternalServerError, "Could not issue token")
		return
	}

	s.metrics.logins.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         toUserResponse(user),
	})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "a valid email and a password of at least 6 characters are required")
		return
	}

	user, err := s.users.Register(req.Email, req.Password, req.FullName, req.Username)
	if errors.Is(err, ErrEmailRegistered) {
		abortDetail(c, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		_ = c.Error(err)
		abortDetail(c, http.StatusInternalServerError, "Could not create account")
		return
	}

	s.logger.Info("registered user", zap.Int64("user_id", user.ID))
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *Server) handleMe(c *gin.Context) {
	user, ok := s.users.Lookup(c.GetString(ctxUserEmail))
	if !ok {
		abortDetail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		abortDetail(c, http.StatusUnprocessableEntity, "message is required")
		return
	}

	lang := DetectScriptLanguage(req.Message)
	ctx := c.Request.Context()

	reply, err := s.responder.Reply(ctx, req.Message, lang)
	if err != nil {
		s.metrics.replies.WithLabelValues("failed", lang).Inc()
		s.logger.Warn("reply failed",
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Error(err))
		abortDetail(c, http.StatusInternalServerError, "Failed to connect to the AI service")
		return
	}

	// A failed title costs the client nothing: it keeps asking until one
	// sticks.
	title, err := s.responder.Title(ctx, req.Message)
	if err != nil {
		s.logger.Debug("title failed", zap.Error(err))
		title = ""
	}

	s.metrics.replies.WithLabelValues("ok", lang).Inc()
	c.JSON(http.StatusOK, gin.H{
		"reply":    reply,
		"language": lang,
		"title":    title,
	})
}

func (s *Server) handleDetectLanguage(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "text is required")
		return
	}
	c.JSON(http.StatusOK, gin.H{"language": DetectScriptLanguage(req.Text)})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"upstream":  s.upstreamName,
		"uptime_ms": s.now().Sub(s.started).Milliseconds(),
	})
}
