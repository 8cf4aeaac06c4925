// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
)

func TestUserEmailIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		return tx.PutUser(&datatypes.User{ID: "u1", Email: "ines@example.com"})
	}))

	err := s.View(ctx, func(tx *Tx) error {
		got, err := tx.UserByEmail("ines@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)

		_, err = tx.UserByEmail("other@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestUserByEmailDistinguishesStorageErrors(t *testing.T) {
	s := newTestStore(t)

	// A discarded transaction fails reads with a storage error, not a
	// missing key. That must not surface as an unknown address.
	txn := s.db.NewTransaction(false)
	txn.Discard()
	_, err := (&Tx{txn: txn}).UserByEmail("ines@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestReindexEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		u := &datatypes.User{ID: "u1", Email: "old@example.com"}
		if err := tx.PutUser(u); err != nil {
			return err
		}
		u.Email = "new@example.com"
		if err := tx.ReindexEmail("old@example.com", "new@example.com", "u1"); err != nil {
			return err
		}
		return tx.PutUser(u)
	}))

	err := s.View(ctx, func(tx *Tx) error {
		got, err := tx.UserByEmail("new@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)

		_, err = tx.UserByEmail("old@example.com")
		assert.ErrorIs(t, err, ErrNotFound, "old index entry is gone")
		return nil
	})
	require.NoError(t, err)
}

func TestSessionTouch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		return tx.PutSession(&datatypes.SessionToken{
			Token: "tok", UserID: "u1", CreatedAt: 100, LastSeenAt: 100,
		})
	}))

	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		return tx.TouchSession("tok", 500)
	}))

	err := s.View(ctx, func(tx *Tx) error {
		sess, err := tx.GetSession("tok")
		require.NoError(t, err)
		assert.Equal(t, int64(500), sess.LastSeenAt)
		assert.Equal(t, int64(100), sess.CreatedAt)
		return nil
	})
	require.NoError(t, err)
}

func TestEffectiveUsageLazyReset(t *testing.T) {
	now := time.Now().UnixMilli()
	u := &datatypes.User{
		ExtractionCount:  7,
		ChatCount:        3,
		UsagePeriodStart: now,
	}

	ex, ch := EffectiveUsage(u, now)
	assert.Equal(t, 7, ex)
	assert.Equal(t, 3, ch)

	// An elapsed period reads as zero before any write happens.
	later := now + UsagePeriod.Milliseconds()
	ex, ch = EffectiveUsage(u, later)
	assert.Zero(t, ex)
	assert.Zero(t, ch)
}

func TestIncrementUsageResetsElapsedPeriod(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := int64(1_000)

	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		return tx.PutUser(&datatypes.User{
			ID: "u1", ExtractionCount: 9, ChatCount: 4, UsagePeriodStart: start,
		})
	}))

	later := start + UsagePeriod.Milliseconds() + 1
	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		u, err := tx.IncrementExtractionUsage("u1", later)
		if err != nil {
			return err
		}
		assert.Equal(t, 1, u.ExtractionCount, "counter restarts for the new period")
		assert.Equal(t, 0, u.ChatCount, "both counters reset together")
		assert.Equal(t, later, u.UsagePeriodStart)
		return nil
	}))
}

func TestCacheRoundTripAndTTL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type verdict struct {
		Summary string `json:"summary"`
	}

	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		if err := tx.SetCached("k1", verdict{Summary: "clean"}, time.Hour); err != nil {
			return err
		}
		return tx.SetCached("k2", verdict{Summary: "stale"}, time.Millisecond)
	}))

	time.Sleep(10 * time.Millisecond)

	err := s.View(ctx, func(tx *Tx) error {
		var v verdict
		require.NoError(t, tx.GetCached("k1", &v))
		assert.Equal(t, "clean", v.Summary)

		assert.ErrorIs(t, tx.GetCached("k2", &v), ErrNotFound, "expired entries read as missing")
		return nil
	})
	require.NoError(t, err)
}
