// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth implements GitHub OAuth login for the console: the redirect
// to GitHub, the callback that exchanges the code and verifies team
// membership, and logout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/openela/mothership-console/internal/logging"
	"github.com/openela/mothership-console/internal/metrics"
)

// githubAPIVersion is the REST API version the console pins.
const githubAPIVersion = "2022-11-28"

// GitHub verification errors
var (
	// ErrMembershipInactive means the user belongs to the team but the
	// membership is pending or otherwise not active.
	ErrMembershipInactive = errors.New("team membership not active")

	// ErrNotAMember means GitHub reported no membership at all.
	ErrNotAMember = errors.New("not a team member")
)

// GitHubClient talks to the GitHub REST API for identity and team
// membership checks. Calls run through a circuit breaker so a GitHub
// outage cannot pile up goroutines behind dead dials.
type GitHubClient struct {
	apiURL string
	http   *http.Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewGitHubClient creates a verification client against the given API base
// URL (https://api.github.com in production, a mock in tests).
//
// Circuit breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
func NewGitHubClient(apiURL string) *GitHubClient {
	cbName := "github-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("GitHub circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &GitHubClient{
		apiURL: apiURL,
		http:   &http.Client{Timeout: 30 * time.Second},
		cb:     cb,
		name:   cbName,
	}
}

// User resolves the login name of the token's owner.
func (c *GitHubClient) User(ctx context.Context, accessToken string) (string, error) {
	var user struct {
		Login string `json:"login"`
	}
	if err := c.getJSON(ctx, c.apiURL+"/user", accessToken, &user); err != nil {
		return "", fmt.Errorf("fetch github user: %w", err)
	}
	if user.Login == "" {
		return "", fmt.Errorf("github user response carried no login")
	}
	return user.Login, nil
}

// TeamMembership checks the user's membership in the given team
// ("org/teams/slug" form). Only an "active" state authorizes login;
// "pending" or a missing membership does not.
func (c *GitHubClient) TeamMembership(ctx context.Context, accessToken, team, username string) error {
	var membership struct {
		State string `json:"state"`
	}
	url := fmt.Sprintf("%s/orgs/%s/memberships/%s", c.apiURL, team, username)
	if err := c.getJSON(ctx, url, accessToken, &membership); err != nil {
		return fmt.Errorf("fetch team membership: %w", err)
	}
	if membership.State == "" {
		return ErrNotAMember
	}
	if membership.State != "active" {
		return fmt.Errorf("%w: state %q", ErrMembershipInactive, membership.State)
	}
	return nil
}

// getJSON performs an authenticated GET through the circuit breaker and
// decodes the response body into out.
func (c *GitHubClient) getJSON(ctx context.Context, url, accessToken string, out interface{}) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("github request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("github returned status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode github response: %w", err)
		}
		return nil, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("GitHub request rejected by circuit breaker")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		}
		return err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	return nil
}

// stateToString converts a gobreaker state to a label value.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// stateToFloat converts a gobreaker state to a gauge value.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
