// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

// Package proxy forwards browser API calls to the Mothership upstreams.
// The console never interprets API traffic: requests and responses stream
// through byte-for-byte, with only the mount prefix stripped and, on admin
// routes, the session's GitHub token injected as a bearer credential.
package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/openela/mothership-console/internal/logging"
	"github.com/openela/mothership-console/internal/metrics"
	"github.com/openela/mothership-console/internal/session"
)

// Route declares one proxied mount.
type Route struct {
	// Prefix is the console-side mount point, e.g. "/ui/api".
	Prefix string

	// Upstream is the backend base URL.
	Upstream string

	// RequiresAuth injects the session's access token and rejects
	// requests that have none before any upstream dial.
	RequiresAuth bool
}

// Handler proxies one Route.
type Handler struct {
	route Route
	rp    *httputil.ReverseProxy
}

// NewHandler builds a reverse proxy for the route. The mount prefix is
// stripped from the forwarded path and the outbound Host is the
// upstream's.
func NewHandler(route Route) (*Handler, error) {
	target, err := url.Parse(route.Upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream %q: %w", route.Upstream, err)
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = strippedPath(route.Prefix, pr.In.URL.Path)
			pr.Out.URL.RawPath = ""
			pr.Out.Host = target.Host

			if route.RequiresAuth {
				if sess := session.FromContext(pr.In.Context()); sess != nil {
					pr.Out.Header.Set("Authorization", "Bearer "+sess.AccessToken)
				}
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			metrics.RecordProxyRequest(route.Prefix, strconv.Itoa(resp.StatusCode))
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logging.Error().Err(err).Str("route", route.Prefix).Msg("Upstream request failed")
			metrics.ProxyUpstreamErrorsTotal.WithLabelValues(route.Prefix).Inc()
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	return &Handler{route: route, rp: rp}, nil
}

// ServeHTTP forwards the request. Admin routes without a committed access
// token are rejected here, before any upstream connection is made.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.route.RequiresAuth {
		sess := session.FromContext(r.Context())
		if sess == nil || sess.AccessToken == "" {
			metrics.ProxyRejectedTotal.WithLabelValues(h.route.Prefix).Inc()
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, "Unauthorized")
			return
		}
	}
	h.rp.ServeHTTP(w, r)
}

// strippedPath removes the mount prefix, keeping a leading slash.
func strippedPath(prefix, path string) string {
	p := strings.TrimPrefix(path, prefix)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Routes returns the console's proxy table: the public API mount and the
// authenticated admin mount, processed by the same Handler.
func Routes(apiURL, adminAPIURL string) []Route {
	return []Route{
		{Prefix: "/ui/api", Upstream: apiURL, RequiresAuth: false},
		{Prefix: "/ui/admin-api", Upstream: adminAPIURL, RequiresAuth: true},
	}
}
