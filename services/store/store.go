// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store provides transactional persistence for Realm Sync records
// on top of BadgerDB.
//
// Every mutation runs as a single serializable Badger transaction. Records
// are JSON-encoded under typed key prefixes:
//
//	user/<id>
//	useremail/<lower(email)>          → user id
//	session/<token>
//	project/<id>
//	document/<projectID>/<id>
//	entity/<projectID>/<id>
//	fact/<projectID>/<id>
//	alert/<projectID>/<id>
//	note/<projectID>/<id>
//
// The denormalized ProjectStats counters are adjusted through Tx.AdjustStats
// inside the same transaction as the child-record writes, so the counters
// are a function of the actual child events rather than a separately
// tracked running total.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a record does not exist. Queries surface it
// as a null/empty response; mutations map it to HTTP 404.
var ErrNotFound = errors.New("record not found")

// Config holds configuration for the store's Badger instance.
type Config struct {
	// Path is the directory for database files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives Badger's internal log output.
	// If nil, internal logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable synchronous writes.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a configuration for tests: in-memory, no sync.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is the Realm Sync persistence layer.
//
// # Thread Safety
//
// Safe for concurrent use. Badger provides serializable snapshot isolation;
// conflicting Update transactions fail with badger.ErrConflict and are
// retried once by Update.
type Store struct {
	db *badger.DB
}

// Open creates a Store with the given configuration.
//
// The caller must Close the store when done.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an in-memory store for testing.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx is a typed view over one Badger transaction. The per-resource accessor
// methods live in the sibling files of this package.
type Tx struct {
	txn *badger.Txn
}

// View executes fn within a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// Update executes fn within a read-write transaction and commits if fn
// returns nil. A serialization conflict is retried once.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
	if errors.Is(err, badger.ErrConflict) {
		err = s.db.Update(func(txn *badger.Txn) error {
			return fn(&Tx{txn: txn})
		})
	}
	return err
}

// =============================================================================
// Generic record helpers
// =============================================================================

// getJSON reads and decodes the record at key into out.
// Returns ErrNotFound if the key does not exist.
func (tx *Tx) getJSON(key []byte, out any) error {
	item, err := tx.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

// setJSON encodes v and writes it at key.
func (tx *Tx) setJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return tx.txn.Set(key, data)
}

// deleteKey removes key. Deleting a missing key is not an error.
func (tx *Tx) deleteKey(key []byte) error {
	return tx.txn.Delete(key)
}

// iterPrefix decodes every record under prefix and calls fn with it.
// Iteration stops on the first error.
func iterPrefix[T any](tx *Tx, prefix []byte, fn func(rec T) error) error {
	it := tx.txn.NewIterator(badger.IteratorOptions{
		Prefix:         prefix,
		PrefetchValues: true,
		PrefetchSize:   64,
	})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var rec T
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
		if err != nil {
			return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// collectPrefix returns every record under prefix as a slice.
func collectPrefix[T any](tx *Tx, prefix []byte) ([]T, error) {
	var out []T
	err := iterPrefix(tx, prefix, func(rec T) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}
