// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"time"

	"github.com/openela/mothership-console/internal/logging"
	"github.com/openela/mothership-console/internal/session"
)

// SessionCleanupService periodically sweeps expired sessions out of the
// store. Badger expires most records by TTL on its own; the sweep covers
// the memory store and records written before a TTL change.
type SessionCleanupService struct {
	store    session.Store
	interval time.Duration
}

// NewSessionCleanupService creates the sweep service.
func NewSessionCleanupService(store session.Store, interval time.Duration) *SessionCleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionCleanupService{store: store, interval: interval}
}

// Serve implements suture.Service. A failing sweep is logged and retried
// on the next tick; only context cancellation ends the service.
func (s *SessionCleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.store.CleanupExpired(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("Session cleanup failed")
				continue
			}
			if n > 0 {
				logging.Debug().Int("removed", n).Msg("Expired sessions purged")
			}
		}
	}
}

// String identifies the service in suture's event log.
func (s *SessionCleanupService) String() string {
	return "session-cleanup"
}
