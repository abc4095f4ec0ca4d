// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates console configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables. Environment variables keep the legacy flat names the console
// has always used (SECRET, CLIENT_ID, API_URI, ...).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the console server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Session  SessionConfig  `koanf:"session"`
	OAuth    OAuthConfig    `koanf:"oauth"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Shell    ShellConfig    `koanf:"shell"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port" validate:"gte=1,lte=65535"`

	// Environment is "development" or "production". Production enables
	// strict cookie flags and the session secret length check.
	Environment string `koanf:"environment" validate:"oneof=development production"`

	// PublicOrigin is the externally visible base URL of the console,
	// used to build the OAuth callback URL.
	PublicOrigin string `koanf:"public_origin"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// IsProduction reports whether the server runs in production mode.
func (s *ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

// SessionConfig holds session store and cookie settings.
type SessionConfig struct {
	// Secret protects the session layer. Must be at least 32 characters
	// in production; the server refuses to start otherwise.
	Secret string `koanf:"secret"`

	// Store selects the backend: "memory" or "badger".
	Store string `koanf:"store" validate:"oneof=memory badger"`

	// StorePath is the BadgerDB directory when Store is "badger".
	StorePath string `koanf:"store_path"`

	// TTL is the session lifetime. Sessions are long-lived; the console
	// relies on the GitHub token staying valid, not on short sessions.
	TTL time.Duration `koanf:"ttl"`

	// CookieName is the session cookie name.
	CookieName string `koanf:"cookie_name"`

	// CleanupInterval is how often expired sessions are purged.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// OAuthConfig holds GitHub OAuth application settings.
type OAuthConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`

	// Team is the GitHub team whose active members may log in,
	// in "org/teams/slug" form.
	Team string `koanf:"team"`

	// GitHubURL is the OAuth authorize/token host.
	GitHubURL string `koanf:"github_url" validate:"omitempty,url"`

	// GitHubAPIURL is the REST API host used for identity and
	// membership checks. Overridable so tests can point at a mock.
	GitHubAPIURL string `koanf:"github_api_url" validate:"omitempty,url"`
}

// UpstreamConfig holds the two proxied API backends.
type UpstreamConfig struct {
	// APIURL is the public, unauthenticated Mothership API.
	APIURL string `koanf:"api_url" validate:"required,url"`

	// AdminAPIURL is the authenticated admin API.
	AdminAPIURL string `koanf:"admin_api_url" validate:"required,url"`

	// RepoBaseURL is substituted into the SPA shell for building
	// package repository links.
	RepoBaseURL string `koanf:"repo_base_url" validate:"required,url"`
}

// ShellConfig holds SPA shell settings.
type ShellConfig struct {
	// AssetsDir is the directory holding index.html and static assets.
	AssetsDir string `koanf:"assets_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// minSecretLength is the minimum session secret length in production.
const minSecretLength = 32

// Validate checks the configuration, combining struct tag validation with
// rules that depend on the environment mode. Any error here is fatal at
// boot: a misconfigured console must not start listening.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Server.IsProduction() {
		if len(c.Session.Secret) < minSecretLength {
			return fmt.Errorf("session secret must be at least %d characters in production (got %d)",
				minSecretLength, len(c.Session.Secret))
		}
		if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" {
			return fmt.Errorf("oauth client_id and client_secret are required in production")
		}
		if c.Server.PublicOrigin == "" {
			return fmt.Errorf("server public_origin is required in production")
		}
	}

	if c.Session.Store == "badger" && c.Session.StorePath == "" {
		return fmt.Errorf("session store_path is required when store is badger")
	}

	return nil
}
