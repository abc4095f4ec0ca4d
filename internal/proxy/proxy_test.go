// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openela/mothership-console/internal/session"
)

type upstreamCall struct {
	path  string
	query string
	auth  string
	host  string
	body  string
}

func newUpstream(t *testing.T, status int, respBody string) (*httptest.Server, *atomic.Int64, chan upstreamCall) {
	t.Helper()
	calls := make(chan upstreamCall, 8)
	var count atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		body, _ := io.ReadAll(r.Body)
		calls <- upstreamCall{
			path:  r.URL.Path,
			query: r.URL.RawQuery,
			auth:  r.Header.Get("Authorization"),
			host:  r.Host,
			body:  string(body),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, &count, calls
}

func loggedInRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	sess := session.New(time.Hour)
	sess.Username = "octocat"
	sess.AccessToken = "gho_token"
	return req.WithContext(session.NewContext(req.Context(), sess))
}

func TestPublicRouteStripsPrefixAndForwards(t *testing.T) {
	srv, _, calls := newUpstream(t, http.StatusOK, `{"entries":[]}`)
	h, err := NewHandler(Route{Prefix: "/ui/api", Upstream: srv.URL})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/api/v1/entries?pageToken=abc", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"entries":[]}` {
		t.Errorf("body = %q", got)
	}

	call := <-calls
	if call.path != "/v1/entries" {
		t.Errorf("upstream path = %q, want /v1/entries", call.path)
	}
	if call.query != "pageToken=abc" {
		t.Errorf("query = %q", call.query)
	}
	if call.auth != "" {
		t.Errorf("public route must not carry credentials, got %q", call.auth)
	}
}

func TestPublicRouteIgnoresSessionCredentials(t *testing.T) {
	srv, _, calls := newUpstream(t, http.StatusOK, `{}`)
	h, err := NewHandler(Route{Prefix: "/ui/api", Upstream: srv.URL})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loggedInRequest(http.MethodGet, "/ui/api/v1/entries", nil))

	if call := <-calls; call.auth != "" {
		t.Errorf("public route forwarded credentials: %q", call.auth)
	}
}

func TestAdminRouteInjectsBearer(t *testing.T) {
	srv, _, calls := newUpstream(t, http.StatusOK, `{}`)
	h, err := NewHandler(Route{Prefix: "/ui/admin-api", Upstream: srv.URL, RequiresAuth: true})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loggedInRequest(http.MethodPost, "/ui/admin-api/v1/entries/e1:retract", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	call := <-calls
	if call.auth != "Bearer gho_token" {
		t.Errorf("Authorization = %q, want Bearer gho_token", call.auth)
	}
	if call.path != "/v1/entries/e1:retract" {
		t.Errorf("path = %q", call.path)
	}
}

func TestAdminRouteRejectsAnonymousBeforeUpstream(t *testing.T) {
	srv, count, _ := newUpstream(t, http.StatusOK, `{}`)
	h, err := NewHandler(Route{Prefix: "/ui/admin-api", Upstream: srv.URL, RequiresAuth: true})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	// No session at all
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/admin-api/v1/workers", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if rec.Body.String() != "Unauthorized" {
		t.Errorf("body = %q, want Unauthorized", rec.Body.String())
	}

	// Anonymous session without a token
	req := httptest.NewRequest(http.MethodGet, "/ui/admin-api/v1/workers", nil)
	req = req.WithContext(session.NewContext(req.Context(), session.New(time.Hour)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	if n := count.Load(); n != 0 {
		t.Errorf("upstream saw %d requests, want 0", n)
	}
}

func TestUpstreamErrorStatusPassesThrough(t *testing.T) {
	srv, _, _ := newUpstream(t, http.StatusConflict, `{"code":10,"message":"state conflict"}`)
	h, err := NewHandler(Route{Prefix: "/ui/api", Upstream: srv.URL})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/api/v1/entries/x", nil))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 passed through", rec.Code)
	}
	if rec.Body.String() != `{"code":10,"message":"state conflict"}` {
		t.Errorf("error body must pass through verbatim, got %q", rec.Body.String())
	}
}

func TestUnreachableUpstreamYields502(t *testing.T) {
	h, err := NewHandler(Route{Prefix: "/ui/api", Upstream: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/api/v1/entries", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHostOverride(t *testing.T) {
	srv, _, calls := newUpstream(t, http.StatusOK, `{}`)
	h, err := NewHandler(Route{Prefix: "/ui/api", Upstream: srv.URL})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "http://console.test/ui/api/v1/batches", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	call := <-calls
	if call.host == "console.test" {
		t.Error("outbound Host must be the upstream's, not the console's")
	}
}

func TestRequestBodyStreamsThrough(t *testing.T) {
	srv, _, calls := newUpstream(t, http.StatusOK, `{}`)
	h, err := NewHandler(Route{Prefix: "/ui/admin-api", Upstream: srv.URL, RequiresAuth: true})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	body := `{"workerId":"builder-7"}`
	req := loggedInRequest(http.MethodPost, "/ui/admin-api/v1/workers", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if call := <-calls; call.body != body {
		t.Errorf("upstream body = %q, want %q", call.body, body)
	}
}

func TestRoutesTable(t *testing.T) {
	routes := Routes("http://api:6678", "http://admin:6688")
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if routes[0].Prefix != "/ui/api" || routes[0].RequiresAuth {
		t.Errorf("public route misconfigured: %+v", routes[0])
	}
	if routes[1].Prefix != "/ui/admin-api" || !routes[1].RequiresAuth {
		t.Errorf("admin route misconfigured: %+v", routes[1])
	}
}

func TestStrippedPath(t *testing.T) {
	cases := []struct {
		prefix, path, want string
	}{
		{"/ui/api", "/ui/api/v1/entries", "/v1/entries"},
		{"/ui/api", "/ui/api", "/"},
		{"/ui/admin-api", "/ui/admin-api/v1/workers/w1", "/v1/workers/w1"},
	}
	for _, tc := range cases {
		if got := strippedPath(tc.prefix, tc.path); got != tc.want {
			t.Errorf("strippedPath(%q, %q) = %q, want %q", tc.prefix, tc.path, got, tc.want)
		}
	}
}
