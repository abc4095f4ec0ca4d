// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

// Package session provides cookie-backed server-side sessions for the
// console. A session exists for every browser, logged in or not; login
// commits the GitHub username and access token onto it, and the
// anti-forgery state for an in-flight OAuth exchange lives on it too.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// Session-related errors
var (
	// ErrSessionNotFound is returned when a session is not found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session exists but has expired.
	ErrSessionExpired = errors.New("session expired")
)

// Session is the per-browser state tracked by the console.
type Session struct {
	// ID is the opaque session identifier carried by the cookie.
	ID string `json:"id"`

	// Username is the authenticated GitHub login, empty until login
	// completes.
	Username string `json:"username,omitempty"`

	// AccessToken is the GitHub OAuth access token, relayed to the
	// admin upstream. Empty until login completes.
	AccessToken string `json:"access_token,omitempty"`

	// OAuthState is the anti-forgery state for an in-flight OAuth
	// exchange. Single use: written at login start, cleared on commit.
	OAuthState string `json:"oauth_state,omitempty"`

	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the session expires.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// LoggedIn reports whether the session carries committed credentials.
func (s *Session) LoggedIn() bool {
	return s.Username != "" && s.AccessToken != ""
}

// New creates an anonymous session with a fresh ID and the given lifetime.
func New(ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        generateID(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// generateID generates a cryptographically secure session ID.
func generateID() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a time-derived ID
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(bytes)
}

// Store defines the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns ErrSessionNotFound if not found.
	// Returns ErrSessionExpired if the session exists but is expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores or replaces a session.
	Set(ctx context.Context, session *Session) error

	// Destroy removes a session by ID. Not an error if absent.
	Destroy(ctx context.Context, id string) error

	// CleanupExpired removes all expired sessions.
	// Returns the count of deleted sessions.
	CleanupExpired(ctx context.Context) (int, error)
}

// MemoryStore is an in-memory implementation of Store. Suitable for
// development; sessions do not survive restarts. For production use
// BadgerStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// Get retrieves a session by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}

	// Return a copy to prevent external modification of stored state
	copied := *session
	return &copied, nil
}

// Set stores or replaces a session.
func (s *MemoryStore) Set(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *session
	s.sessions[session.ID] = &stored
	return nil
}

// Destroy removes a session by ID.
func (s *MemoryStore) Destroy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// CleanupExpired removes all expired sessions.
func (s *MemoryStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if session.IsExpired() {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}
