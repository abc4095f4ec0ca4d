// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

// Package api assembles the console's HTTP surface: OAuth endpoints, the
// upstream proxy mounts, observability endpoints, and the SPA shell
// catch-all.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openela/mothership-console/internal/auth"
	"github.com/openela/mothership-console/internal/config"
	"github.com/openela/mothership-console/internal/middleware"
	"github.com/openela/mothership-console/internal/proxy"
	"github.com/openela/mothership-console/internal/session"
	"github.com/openela/mothership-console/internal/shell"
)

// Auth endpoints get a strict per-IP rate limit; everything else on the
// console is either proxied or static.
var authRateLimit = struct {
	requests int
	window   time.Duration
}{requests: 10, window: time.Minute}

// Router wires the console's dependencies into one http.Handler.
type Router struct {
	cfg      *config.Config
	sessions *session.Manager
	gateway  *auth.Gateway
	shell    *shell.Renderer
}

// New creates the router. Handler() does the actual route assembly.
func New(cfg *config.Config, sessions *session.Manager, gateway *auth.Gateway, renderer *shell.Renderer) *Router {
	return &Router{
		cfg:      cfg,
		sessions: sessions,
		gateway:  gateway,
		shell:    renderer,
	}
}

// Handler assembles the full route tree.
func (rt *Router) Handler() (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Prometheus)
	r.Use(rt.sessions.Attach)

	// OAuth endpoints. The callback shares the limiter with the start
	// endpoint so a redirect loop cannot hammer GitHub.
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(authRateLimit.requests, authRateLimit.window))
		r.Get("/connect/github", rt.gateway.Connect)
		r.Get("/_auth", rt.gateway.Callback)
	})
	r.Get("/_logout", rt.gateway.Logout)

	// Proxy mounts. Registered as catch-all subtrees so every method and
	// sub-path reaches the upstream untouched.
	for _, route := range proxy.Routes(rt.cfg.Upstream.APIURL, rt.cfg.Upstream.AdminAPIURL) {
		h, err := proxy.NewHandler(route)
		if err != nil {
			return nil, fmt.Errorf("proxy route %s: %w", route.Prefix, err)
		}
		r.Handle(route.Prefix+"/*", h)
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handleHealthz)

	r.Get("/favicon.png", rt.shell.ServeFavicon)
	r.Handle("/assets/*", rt.shell.ServeAssets())

	// Catch-all: every client route renders the shell; navigation is owned
	// by the browser router.
	r.Get("/*", rt.shell.ServeShell)

	return r, nil
}

// handleHealthz is the liveness probe. It reports process health only;
// upstream reachability is the proxy's concern.
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}
