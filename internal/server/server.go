// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/cloud"
	"github.com/jeranaias/mindchat/internal/config"
	"github.com/jeranaias/mindchat/internal/logging"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize caps request bodies.
	MaxRequestBodySize = 64 * 1024

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 5 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Options overrides collaborators. Zero values are filled from config.
type Options struct {
	Logger    *zap.Logger
	Responder Responder
	Now       func() time.Time
}

// Server is the development backend.
type Server struct {
	cfg          config.ServerConfig
	engine       *gin.Engine
	users        *userDirectory
	tokens       *tokenIssuer
	responder    Responder
	upstreamName string
	metrics      *metrics
	logger       *zap.Logger
	now          func() time.Time
	started      time.Time
}

// New builds a server from the [server] config section.
func New(cfg *config.Config, opts Options) (*Server, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := logging.OrNop(opts.Logger).Named("server")
	sc := cfg.Server

	s := &Server{
		cfg:     sc,
		users:   newUserDirectory(sc.Users, now),
		tokens:  &tokenIssuer{secret: []byte(sc.JWTSecret), ttl: time.Duration(sc.TokenTTLMins) * time.Minute, now: now},
		metrics: newMetrics(),
		logger:  logger,
		now:     now,
		started: now(),
	}

	switch {
	case opts.Responder != nil:
		s.responder = opts.Responder
		s.upstreamName = "custom"
	case sc.UpstreamURL != "":
		s.responder = cloud.New(cloud.Options{
			BaseURL: sc.UpstreamURL,
			APIKey:  sc.UpstreamKey,
			Model:   sc.UpstreamModel,
			Logger:  logger,
		})
		s.upstreamName = sc.UpstreamModel
	default:
		s.responder = EchoResponder{}
		s.upstreamName = "echo"
		logger.Warn("no upstream configured; replies are echoed")
	}

	s.engine = s.routes(cfg.Log.Development)
	return s, nil
}

func (s *Server) routes(development bool) *gin.Engine {
	if !development && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		requestID(),
		requestLogger(s.logger),
		recordMetrics(s.metrics),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			s.logger.Error("panic in handler",
				zap.Any("panic", recovered),
				zap.String("path", c.Request.URL.Path),
				zap.Stack("stack"))
			abortDetail(c, http.StatusInternalServerError, "Internal server error")
		}),
		limitBody(MaxRequestBodySize),
	)

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	api := r.Group("/")
	if s.cfg.RateLimit > 0 {
		api.Use(rateLimit(newIPRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst, s.now), s.metrics))
	}

	authGroup := api.Group("/auth")
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/register", s.handleRegister)
	authGroup.GET("/me", requireAuth(s.tokens), s.handleMe)

	api.POST("/chat/", requireAuth(s.tokens), s.handleChat)
	api.POST("/detect-language/", s.handleDetectLanguage)

	return r
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()), zap.String("upstream", s.upstreamName))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("stopped")
	return nil
}
