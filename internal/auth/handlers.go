// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/openela/mothership-console/internal/config"
	"github.com/openela/mothership-console/internal/logging"
	"github.com/openela/mothership-console/internal/metrics"
	"github.com/openela/mothership-console/internal/session"
)

// Redirect targets for the login flow. Success and verification failure
// both land on /entries; only a broken or forged callback goes back to /.
const (
	landingPath = "/"
	entriesPath = "/entries"
)

// Gateway implements the OAuth login surface: /connect/github, /_auth
// and /_logout.
type Gateway struct {
	oauth    *oauth2.Config
	github   *GitHubClient
	sessions *session.Manager
	team     string
}

// NewGateway builds the gateway from OAuth configuration. The callback URL
// is derived from the console's public origin.
func NewGateway(cfg *config.OAuthConfig, publicOrigin string, sessions *session.Manager, github *GitHubClient) *Gateway {
	return &Gateway{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  publicOrigin + "/_auth",
			Scopes:       []string{"read:user", "read:org"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.GitHubURL + "/login/oauth/authorize",
				TokenURL: cfg.GitHubURL + "/login/oauth/access_token",
			},
		},
		github:   github,
		sessions: sessions,
		team:     cfg.Team,
	}
}

// Connect handles GET /connect/github: generates an anti-forgery state,
// stores it on the session, and redirects to GitHub's authorize URL.
func (g *Gateway) Connect(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, landingPath, http.StatusFound)
		return
	}

	state, err := generateState()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to generate OAuth state")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess.OAuthState = state
	if err := g.sessions.Save(r.Context(), sess); err != nil {
		logging.Error().Err(err).Msg("Failed to persist OAuth state")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, g.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /_auth, the OAuth redirect target.
//
// A callback with a missing, unknown or mismatched state is answered with
// an idempotent redirect to the landing page: refreshing the callback URL
// after a completed login must not error. A valid state whose verification
// fails (exchange error, identity fetch error, membership not active)
// redirects to /entries with no credentials committed.
func (g *Gateway) Callback(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	state := r.URL.Query().Get("state")

	if sess == nil || sess.LoggedIn() || sess.OAuthState == "" || state == "" || state != sess.OAuthState {
		http.Redirect(w, r, landingPath, http.StatusFound)
		return
	}

	// State is single use: consume it before anything can fail.
	sess.OAuthState = ""
	if err := g.sessions.Save(r.Context(), sess); err != nil {
		logging.Error().Err(err).Msg("Failed to clear OAuth state")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" || r.URL.Query().Get("error") != "" {
		metrics.RecordLogin("denied")
		http.Redirect(w, r, entriesPath, http.StatusFound)
		return
	}

	token, err := g.oauth.Exchange(r.Context(), code)
	if err != nil {
		logging.Warn().Err(err).Msg("OAuth code exchange failed")
		metrics.RecordLogin("error")
		http.Redirect(w, r, entriesPath, http.StatusFound)
		return
	}

	username, err := g.verify(r, token.AccessToken)
	if err != nil {
		logging.Warn().Err(err).Msg("Login verification failed")
		metrics.RecordLogin("denied")
		http.Redirect(w, r, entriesPath, http.StatusFound)
		return
	}

	sess.Username = username
	sess.AccessToken = token.AccessToken
	if err := g.sessions.Save(r.Context(), sess); err != nil {
		logging.Error().Err(err).Msg("Failed to commit login to session")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	metrics.RecordLogin("success")
	logging.Info().Str("username", username).Msg("Login completed")
	http.Redirect(w, r, entriesPath, http.StatusFound)
}

// verify resolves the token's owner and requires an active membership in
// the configured team.
func (g *Gateway) verify(r *http.Request, accessToken string) (string, error) {
	username, err := g.github.User(r.Context(), accessToken)
	if err != nil {
		return "", err
	}
	if err := g.github.TeamMembership(r.Context(), accessToken, g.team, username); err != nil {
		return "", fmt.Errorf("user %s: %w", username, err)
	}
	return username, nil
}

// Logout handles GET /_logout: destroys the local session and redirects to
// the landing page. The GitHub token is not revoked provider-side.
func (g *Gateway) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess != nil {
		if err := g.sessions.Destroy(r.Context(), w, sess.ID); err != nil {
			logging.Error().Err(err).Msg("Failed to destroy session on logout")
		}
	}
	http.Redirect(w, r, landingPath, http.StatusFound)
}

// generateState generates a cryptographically secure anti-forgery state.
func generateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
