// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// StoreType selects the session storage backend.
type StoreType string

const (
	// StoreMemory uses in-memory storage (default, not persistent).
	StoreMemory StoreType = "memory"

	// StoreBadger uses BadgerDB for persistent session storage.
	StoreBadger StoreType = "badger"
)

// StoreFactory creates session stores based on configuration.
type StoreFactory struct {
	db *badger.DB
}

// NewStoreFactory creates a store factory. If storeType is "badger", it
// opens a BadgerDB at the given path; for "memory" no database is opened.
func NewStoreFactory(storeType StoreType, path string) (*StoreFactory, error) {
	factory := &StoreFactory{}

	if storeType == StoreBadger {
		opts := badger.DefaultOptions(path)
		opts.Logger = nil // Suppress BadgerDB logs

		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for sessions: %w", err)
		}
		factory.db = db
	}

	return factory, nil
}

// CreateStore creates a Store based on the factory's configuration.
func (f *StoreFactory) CreateStore() Store {
	if f.db != nil {
		return NewBadgerStore(f.db)
	}
	return NewMemoryStore()
}

// Close closes the underlying BadgerDB if one was opened.
func (f *StoreFactory) Close() error {
	if f.db != nil {
		return f.db.Close()
	}
	return nil
}
