// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/api"
	"github.com/jeranaias/mindchat/internal/auth"
	"github.com/jeranaias/mindchat/internal/config"
	"github.com/jeranaias/mindchat/internal/exchange"
	"github.com/jeranaias/mindchat/internal/logging"
	"github.com/jeranaias/mindchat/internal/prefs"
	"github.com/jeranaias/mindchat/internal/session"
	"github.com/jeranaias/mindchat/internal/storage"
)

// App is the wired client: one store, one login, one session manager.
// Nothing talks to the backend until a command asks it to.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	KV       storage.KV
	Store    *session.Store
	Sessions *session.Manager
	API      *api.Client
	Auth     *auth.Store
	Exchange *exchange.Controller
	Prefs    *prefs.Store
	DataDir  string
}

// loadConfig reads the config file and applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if o.dataDir != "" {
		cfg.Storage.Dir = o.dataDir
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.apiURL != "" {
		cfg.API.BaseURL = o.apiURL
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --api-url: %w", err)
		}
	}

	config.SetGlobal(cfg)
	return cfg, nil
}

// openApp wires every client component. The TUI owns the terminal, so the
// client always logs to a file.
func openApp(o *rootOptions) (*App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		OutputPaths: []string{logPath},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start logging: %w", err)
	}

	dir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	kv, err := storage.Open(cfg.Storage.Backend, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	apiOpts := api.OptionsFromConfig(cfg)
	apiOpts.UserAgent = "mindchat/" + Version
	apiOpts.Logger = logger
	client := api.New(apiOpts)

	authStore := auth.NewStore(kv, client, logger)
	client.SetTokenSource(authStore)

	store := session.NewStore(kv, logger)
	mgr := session.NewManager(store, session.Options{Logger: logger})

	exOpts := exchange.OptionsFromConfig(cfg)
	exOpts.Logger = logger

	logger.Debug("client started",
		zap.String("version", Version),
		zap.String("backend", cfg.Storage.Backend),
		zap.String("data_dir", dir))

	return &App{
		Config:   cfg,
		Logger:   logger,
		KV:       kv,
		Store:    store,
		Sessions: mgr,
		API:      client,
		Auth:     authStore,
		Exchange: exchange.New(mgr, client, exOpts),
		Prefs:    prefs.NewStore(kv),
		DataDir:  dir,
	}, nil
}

// Close cancels any send in flight and releases the store.
func (a *App) Close() {
	a.Exchange.Cancel()
	if err := a.KV.Close(); err != nil {
		a.Logger.Warn("failed to close store", zap.Error(err))
	}
	_ = a.Logger.Sync()
}
