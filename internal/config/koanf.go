// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mothership-console/config.yaml",
	"/etc/mothership-console/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. Defaults are
// layered first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            9111,
			Environment:     "development",
			PublicOrigin:    "http://localhost:9111",
			ShutdownTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			Secret:          "",
			Store:           "memory",
			StorePath:       "/data/sessions",
			TTL:             365 * 24 * time.Hour,
			CookieName:      "mship_session",
			CleanupInterval: time.Hour,
		},
		OAuth: OAuthConfig{
			ClientID:     "",
			ClientSecret: "",
			Team:         "openela/teams/tsc",
			GitHubURL:    "https://github.com",
			GitHubAPIURL: "https://api.github.com",
		},
		Upstream: UpstreamConfig{
			APIURL:      "http://localhost:6678",
			AdminAPIURL: "http://localhost:6688",
			RepoBaseURL: "https://github.com/openela-main",
		},
		Shell: ShellConfig{
			AssetsDir: "ui/dist",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using koanf with layered sources:
//  1. Defaults (struct above)
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables, mapped through the legacy flat names
	// (SECRET -> session.secret, API_URI -> upstream.api_url, ...)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// The flat names predate the nested config structure and are kept so
// existing deployments do not have to change:
//
//   - SECRET       -> session.secret
//   - CLIENT_ID    -> oauth.client_id
//   - API_URI      -> upstream.api_url
//   - NODE_ENV     -> server.environment (legacy alias of ENVIRONMENT)
//
// Unmapped variables are dropped so unrelated environment noise cannot
// pollute the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"environment":      "server.environment",
		"node_env":         "server.environment",
		"host":             "server.host",
		"port":             "server.port",
		"self":             "server.public_origin",
		"shutdown_timeout": "server.shutdown_timeout",

		// Session mappings
		"secret":                   "session.secret",
		"session_store":            "session.store",
		"session_store_path":       "session.store_path",
		"session_ttl":              "session.ttl",
		"session_cookie_name":      "session.cookie_name",
		"session_cleanup_interval": "session.cleanup_interval",

		// OAuth mappings
		"client_id":      "oauth.client_id",
		"client_secret":  "oauth.client_secret",
		"github_team":    "oauth.team",
		"github_url":     "oauth.github_url",
		"github_api_url": "oauth.github_api_url",

		// Upstream mappings
		"api_uri":       "upstream.api_url",
		"admin_api_uri": "upstream.admin_api_url",
		"repo_base_uri": "upstream.repo_base_url",

		// Shell mappings
		"assets_dir": "shell.assets_dir",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
