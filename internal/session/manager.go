// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openela/mothership-console/internal/logging"
)

type contextKey string

// sessionContextKey carries the resolved *Session through the request context.
const sessionContextKey contextKey = "mothership_session"

// ManagerConfig holds cookie and lifetime settings for the session manager.
type ManagerConfig struct {
	// CookieName is the name of the session cookie.
	CookieName string

	// TTL is the session time-to-live.
	TTL time.Duration

	// Secure marks the cookie Secure and SameSite=Strict. Enabled in
	// production; development keeps SameSite=Lax so plain-http logins work.
	Secure bool
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		CookieName: "mship_session",
		TTL:        365 * 24 * time.Hour,
		Secure:     false,
	}
}

// Manager resolves the session cookie to a Session and writes changes back
// to the store. Every request gets a session: anonymous browsers get a
// fresh one on first contact.
type Manager struct {
	store  Store
	config ManagerConfig
}

// NewManager creates a session manager over the given store.
func NewManager(store Store, config ManagerConfig) *Manager {
	if config.CookieName == "" {
		config.CookieName = "mship_session"
	}
	if config.TTL <= 0 {
		config.TTL = 365 * 24 * time.Hour
	}
	return &Manager{store: store, config: config}
}

// Attach is middleware that resolves the session cookie, lazily creating a
// session when none exists, and stashes the Session in the request context.
func (m *Manager) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.resolve(r)
		if sess == nil {
			sess = New(m.config.TTL)
			if err := m.store.Set(r.Context(), sess); err != nil {
				logging.Error().Err(err).Msg("Failed to persist new session")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			m.setCookie(w, sess.ID)
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolve looks up the session referenced by the request cookie.
// Returns nil when there is no usable session.
func (m *Manager) resolve(r *http.Request) *Session {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sess, err := m.store.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
			logging.Error().Err(err).Msg("Session lookup error")
		}
		return nil
	}
	return sess
}

// Save persists session mutations made by a handler.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	return m.store.Set(ctx, sess)
}

// Destroy removes the session from the store and clears the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, id string) error {
	if err := m.store.Destroy(ctx, id); err != nil {
		return err
	}
	m.clearCookie(w)
	return nil
}

// setCookie writes the session cookie on the response.
func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	sameSite := http.SameSiteLaxMode
	if m.config.Secure {
		sameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.config.TTL.Seconds()),
		Secure:   m.config.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

// clearCookie expires the session cookie.
func (m *Manager) clearCookie(w http.ResponseWriter) {
	sameSite := http.SameSiteLaxMode
	if m.config.Secure {
		sameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   m.config.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

// FromContext returns the Session placed in the context by Attach,
// or nil when the request did not pass through the middleware.
func FromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(sessionContextKey).(*Session); ok {
		return sess
	}
	return nil
}

// NewContext returns a context carrying the given session. Intended for
// tests that exercise handlers without the Attach middleware.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}
