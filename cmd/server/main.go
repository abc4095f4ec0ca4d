// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

// The server command runs the Mothership admin console: GitHub OAuth
// login, the upstream API proxy, and the SPA shell.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/openela/mothership-console/internal/api"
	"github.com/openela/mothership-console/internal/auth"
	"github.com/openela/mothership-console/internal/config"
	"github.com/openela/mothership-console/internal/logging"
	"github.com/openela/mothership-console/internal/session"
	"github.com/openela/mothership-console/internal/shell"
	"github.com/openela/mothership-console/internal/supervisor"
	"github.com/openela/mothership-console/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Console exited with error")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory, err := session.NewStoreFactory(session.StoreType(cfg.Session.Store), cfg.Session.StorePath)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer factory.Close()

	store := factory.CreateStore()
	sessions := session.NewManager(store, session.ManagerConfig{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Server.IsProduction(),
	})

	github := auth.NewGitHubClient(cfg.OAuth.GitHubAPIURL)
	gateway := auth.NewGateway(&cfg.OAuth, cfg.Server.PublicOrigin, sessions, github)

	renderer, err := shell.New(cfg.Shell.AssetsDir, cfg.Upstream.RepoBaseURL)
	if err != nil {
		return fmt.Errorf("spa shell: %w", err)
	}

	handler, err := api.New(cfg, sessions, gateway, renderer).Handler()
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddStorageService(services.NewSessionCleanupService(store, cfg.Session.CleanupInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().
		Str("addr", addr).
		Str("environment", cfg.Server.Environment).
		Str("session_store", cfg.Session.Store).
		Str("api", cfg.Upstream.APIURL).
		Str("admin_api", cfg.Upstream.AdminAPIURL).
		Msg("Mothership console listening")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logging.Info().Msg("Console shut down")
	return nil
}
