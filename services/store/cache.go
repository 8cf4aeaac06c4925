// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func cacheKey(key string) []byte {
	return []byte("cache/" + key)
}

// GetCached reads a cache entry into out. Expired entries are reported as
// ErrNotFound; Badger drops them lazily.
func (tx *Tx) GetCached(key string, out any) error {
	return tx.getJSON(cacheKey(key), out)
}

// SetCached writes a cache entry. A ttl of zero stores it without expiry.
func (tx *Tx) SetCached(key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}
	entry := badger.NewEntry(cacheKey(key), data)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return tx.txn.SetEntry(entry)
}

// DeleteCached removes a cache entry.
func (tx *Tx) DeleteCached(key string) error {
	return tx.deleteKey(cacheKey(key))
}
