// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
)

// DefaultCacheTTL bounds how long a model result is reused before the
// document is re-examined.
const DefaultCacheTTL = 7 * 24 * time.Hour

// ResultCache memoizes model results keyed by prompt version, model, and a
// content digest, so unchanged documents do not trigger repeat calls.
type ResultCache struct {
	store *store.Store
	ttl   time.Duration
}

// NewResultCache creates a cache over the given store. A ttl of zero uses
// DefaultCacheTTL.
func NewResultCache(s *store.Store, ttl time.Duration) *ResultCache {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache{store: s, ttl: ttl}
}

// Key derives the cache key for one model call. Any change to the prompt
// wording, the model, the canon, or the document content produces a new key.
func (c *ResultCache) Key(kind, model, canonContext, content string) string {
	digest := sha256.Sum256([]byte(canonContext + "\x00" + content))
	return fmt.Sprintf("%s|%s|%s|%s", kind, PromptVersion, model, hex.EncodeToString(digest[:]))
}

// GetCheck returns a cached check result, or ok=false on a miss.
func (c *ResultCache) GetCheck(ctx context.Context, key string) (datatypes.CheckResult, bool) {
	var result datatypes.CheckResult
	err := c.store.View(ctx, func(tx *store.Tx) error {
		return tx.GetCached(key, &result)
	})
	if errors.Is(err, store.ErrNotFound) {
		return result, false
	}
	if err != nil {
		slog.Warn("Check cache read failed", "error", err)
		return result, false
	}
	return result, true
}

// PutCheck stores a check result under key.
func (c *ResultCache) PutCheck(ctx context.Context, key string, result datatypes.CheckResult) {
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		return tx.SetCached(key, result, c.ttl)
	})
	if err != nil {
		slog.Warn("Check cache write failed", "error", err)
	}
}

// GetExtraction returns a cached extraction result, or ok=false on a miss.
func (c *ResultCache) GetExtraction(ctx context.Context, key string) (datatypes.ExtractionResult, bool) {
	var result datatypes.ExtractionResult
	err := c.store.View(ctx, func(tx *store.Tx) error {
		return tx.GetCached(key, &result)
	})
	if errors.Is(err, store.ErrNotFound) {
		return result, false
	}
	if err != nil {
		slog.Warn("Extraction cache read failed", "error", err)
		return result, false
	}
	return result, true
}

// PutExtraction stores an extraction result under key.
func (c *ResultCache) PutExtraction(ctx context.Context, key string, result datatypes.ExtractionResult) {
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		return tx.SetCached(key, result, c.ttl)
	})
	if err != nil {
		slog.Warn("Extraction cache write failed", "error", err)
	}
}
