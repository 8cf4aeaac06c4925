// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realmsync/realmsync/services/canon"
	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
)

func newTestScheduler(t *testing.T) (*scheduler, *store.Store) {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	sched := NewScheduler(s, canon.NewChecker(s), SchedulerConfig{}).(*scheduler)
	return sched, s
}

func TestDefaultSchedulerConfig(t *testing.T) {
	cfg := DefaultSchedulerConfig()

	assert.Equal(t, time.Hour, cfg.Interval)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionSweepEvery)
	assert.Equal(t, 30*24*time.Hour, cfg.StaleSessionWindow)
}

func TestSweepSessionsRemovesStaleOnly(t *testing.T) {
	sched, s := newTestScheduler(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()
	stale := time.Now().Add(-sched.config.StaleSessionWindow - time.Hour).UnixMilli()

	require.NoError(t, s.Update(ctx, func(tx *store.Tx) error {
		if err := tx.PutSession(&datatypes.SessionToken{
			Token: "fresh", UserID: "u1", LastSeenAt: now,
		}); err != nil {
			return err
		}
		return tx.PutSession(&datatypes.SessionToken{
			Token: "stale", UserID: "u1", LastSeenAt: stale,
		})
	}))

	result, err := sched.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SessionsDeleted)

	err = s.View(ctx, func(tx *store.Tx) error {
		_, err := tx.GetSession("fresh")
		require.NoError(t, err)
		_, err = tx.GetSession("stale")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestSweepUsageTouchesElapsedPeriodsOnly(t *testing.T) {
	sched, s := newTestScheduler(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()
	elapsed := now - store.UsagePeriod.Milliseconds() - 1

	require.NoError(t, s.Update(ctx, func(tx *store.Tx) error {
		if err := tx.PutUser(&datatypes.User{
			ID: "live", ExtractionCount: 5, UsagePeriodStart: now,
		}); err != nil {
			return err
		}
		return tx.PutUser(&datatypes.User{
			ID: "expired", ExtractionCount: 5, ChatCount: 2, UsagePeriodStart: elapsed,
		})
	}))

	result, err := sched.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.UsageResets)

	err = s.View(ctx, func(tx *store.Tx) error {
		live, err := tx.GetUser("live")
		require.NoError(t, err)
		assert.Equal(t, 5, live.ExtractionCount, "live period untouched")

		expired, err := tx.GetUser("expired")
		require.NoError(t, err)
		assert.Zero(t, expired.ExtractionCount)
		assert.Zero(t, expired.ChatCount)
		return nil
	})
	require.NoError(t, err)
}

func TestDemoAccountReset(t *testing.T) {
	sched, s := newTestScheduler(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx *store.Tx) error {
		if err := tx.PutUser(&datatypes.User{ID: "demo1", Demo: true}); err != nil {
			return err
		}
		// A project the demo user dirtied.
		return tx.PutProject(&datatypes.Project{ID: "scratch", OwnerID: "demo1", Name: "Scratch"})
	}))

	result, err := sched.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DemoUsersReset)

	err = s.View(ctx, func(tx *store.Tx) error {
		projects, err := tx.ProjectsByOwner("demo1")
		require.NoError(t, err)
		require.Len(t, projects, 1, "scratch project replaced by the sample")
		assert.Contains(t, projects[0].Name, "sample")

		docs, err := tx.DocumentsByProject(projects[0].ID)
		require.NoError(t, err)
		assert.NotEmpty(t, docs)
		return nil
	})
	require.NoError(t, err)
}

func TestStartStop(t *testing.T) {
	sched, _ := newTestScheduler(t)
	ctx := context.Background()

	require.NoError(t, sched.Start(ctx))
	assert.Error(t, sched.Start(ctx), "double start is rejected")
	require.NoError(t, sched.Stop())
	assert.NoError(t, sched.Stop(), "stopping twice is a no-op")

	// A stopped scheduler can be started again.
	require.NoError(t, sched.Start(ctx))
	require.NoError(t, sched.Stop())
}
