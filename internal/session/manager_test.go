// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAttachCreatesSessionOnFirstRequest(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, DefaultManagerConfig())

	var seen *Session
	handler := m.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == nil {
		t.Fatal("handler should see a session in context")
	}
	if seen.LoggedIn() {
		t.Error("fresh session must be anonymous")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "mship_session" {
		t.Errorf("cookie name = %q", c.Name)
	}
	if !c.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if c.Value != seen.ID {
		t.Error("cookie must carry the session ID")
	}
}

func TestAttachResolvesExistingSession(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, DefaultManagerConfig())

	sess := New(time.Hour)
	sess.Username = "octocat"
	sess.AccessToken = "gho_token"
	if err := store.Set(context.Background(), sess); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var seen *Session
	handler := m.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "mship_session", Value: sess.ID})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == nil || seen.ID != sess.ID {
		t.Fatal("existing session should be resolved from cookie")
	}
	if seen.Username != "octocat" {
		t.Errorf("resolved session lost username: %+v", seen)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("no new cookie should be issued for a valid session")
	}
}

func TestAttachReplacesExpiredSession(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, DefaultManagerConfig())

	expired := New(time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Set(context.Background(), expired); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var seen *Session
	handler := m.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "mship_session", Value: expired.ID})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == nil || seen.ID == expired.ID {
		t.Fatal("expired session must be replaced with a fresh one")
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Error("replacement session should issue a new cookie")
	}
}

func TestSecureCookieFlags(t *testing.T) {
	cfg := DefaultManagerConfig()
	cfg.Secure = true
	m := NewManager(NewMemoryStore(), cfg)

	handler := m.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if !cookies[0].Secure {
		t.Error("production cookie must be Secure")
	}
	if cookies[0].SameSite != http.SameSiteStrictMode {
		t.Error("production cookie must be SameSite=Strict")
	}
}

func TestManagerDestroy(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, DefaultManagerConfig())
	ctx := context.Background()

	sess := New(time.Hour)
	if err := store.Set(ctx, sess); err != nil {
		t.Fatalf("Set: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := m.Destroy(ctx, rec, sess.ID); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if _, err := store.Get(ctx, sess.ID); err == nil {
		t.Error("session should be gone from the store")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Error("destroy must clear the session cookie")
	}
}

func TestFromContextWithoutMiddleware(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("expected nil session, got %+v", got)
	}
}
