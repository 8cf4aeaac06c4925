// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package jobs runs the scheduled maintenance work of Realm Sync: stale
// session-token cleanup, usage-counter resets, and demo-account reseeding.
//
// The scheduler wakes at a short interval and each job decides from its own
// cadence whether to act, so a missed tick (restart, long sweep) just
// delays the job to the next wake-up instead of skipping a period.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/realmsync/realmsync/services/canon"
	"github.com/realmsync/realmsync/services/store"
)

// SchedulerConfig controls sweep cadence.
type SchedulerConfig struct {
	// Interval is how often the scheduler wakes up. Default: 1 hour.
	Interval time.Duration

	// SessionSweepEvery is the cadence of stale-session cleanup.
	// Default: 7 days.
	SessionSweepEvery time.Duration

	// StaleSessionWindow is how long a token may go unseen before it is
	// deleted. Default: 30 days.
	StaleSessionWindow time.Duration

	// DemoResetEvery is the cadence of demo-account reseeding.
	// Default: 24 hours.
	DemoResetEvery time.Duration

	// UsageSweepEvery is the cadence of the usage-counter sweep.
	// Default: 24 hours.
	UsageSweepEvery time.Duration
}

// DefaultSchedulerConfig returns production cadences.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:           time.Hour,
		SessionSweepEvery:  7 * 24 * time.Hour,
		StaleSessionWindow: 30 * 24 * time.Hour,
		DemoResetEvery:     24 * time.Hour,
		UsageSweepEvery:    24 * time.Hour,
	}
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	SessionsDeleted int `json:"sessions_deleted"`
	UsageResets     int `json:"usage_resets"`
	DemoUsersReset  int `json:"demo_users_reset"`
}

// Scheduler runs maintenance sweeps in the background.
type Scheduler interface {
	// Start launches the background loop. Returns an error if already
	// running.
	Start(ctx context.Context) error

	// Stop signals the loop to exit. Safe to call repeatedly.
	Stop() error

	// RunNow performs one full sweep immediately, ignoring cadence.
	RunNow(ctx context.Context) (SweepResult, error)
}

type scheduler struct {
	store   *store.Store
	checker *canon.Checker
	config  SchedulerConfig

	mu      sync.Mutex
	running bool
	done    chan struct{}

	lastSessionSweep time.Time
	lastDemoReset    time.Time
	lastUsageSweep   time.Time
}

// NewScheduler builds a stopped scheduler.
func NewScheduler(s *store.Store, checker *canon.Checker, cfg SchedulerConfig) Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultSchedulerConfig().Interval
	}
	if cfg.SessionSweepEvery == 0 {
		cfg.SessionSweepEvery = DefaultSchedulerConfig().SessionSweepEvery
	}
	if cfg.StaleSessionWindow == 0 {
		cfg.StaleSessionWindow = DefaultSchedulerConfig().StaleSessionWindow
	}
	if cfg.DemoResetEvery == 0 {
		cfg.DemoResetEvery = DefaultSchedulerConfig().DemoResetEvery
	}
	if cfg.UsageSweepEvery == 0 {
		cfg.UsageSweepEvery = DefaultSchedulerConfig().UsageSweepEvery
	}
	return &scheduler{
		store:   s,
		checker: checker,
		config:  cfg,
		done:    make(chan struct{}),
	}
}

func (s *scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	slog.Info("Maintenance scheduler starting", "interval", s.config.Interval.String())
	go s.runLoop(ctx)
	return nil
}

func (s *scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	slog.Info("Maintenance scheduler stopping")
	close(s.done)
	s.running = false
	return nil
}

func (s *scheduler) RunNow(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	deleted, err := s.sweepSessions(ctx)
	if err != nil {
		return result, fmt.Errorf("session sweep: %w", err)
	}
	result.SessionsDeleted = deleted

	resets, err := s.sweepUsage(ctx)
	if err != nil {
		return result, fmt.Errorf("usage sweep: %w", err)
	}
	result.UsageResets = resets

	demos, err := s.resetDemoAccounts(ctx)
	if err != nil {
		return result, fmt.Errorf("demo reset: %w", err)
	}
	result.DemoUsersReset = demos

	return result, nil
}

func (s *scheduler) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.executeSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Maintenance scheduler stopped (context cancelled)")
			return
		case <-s.done:
			slog.Info("Maintenance scheduler stopped (stop requested)")
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

// executeSweep runs whichever jobs are due. Job errors are logged, never
// fatal to the loop.
func (s *scheduler) executeSweep(ctx context.Context) {
	now := time.Now()

	if now.Sub(s.lastSessionSweep) >= s.config.SessionSweepEvery {
		if deleted, err := s.sweepSessions(ctx); err != nil {
			slog.Error("Stale session sweep failed", "error", err)
		} else {
			s.lastSessionSweep = now
			if deleted > 0 {
				slog.Info("Stale sessions deleted", "count", deleted)
			}
		}
	}

	if now.Sub(s.lastUsageSweep) >= s.config.UsageSweepEvery {
		if resets, err := s.sweepUsage(ctx); err != nil {
			slog.Error("Usage sweep failed", "error", err)
		} else {
			s.lastUsageSweep = now
			if resets > 0 {
				slog.Info("Stale usage counters reset", "count", resets)
			}
		}
	}

	if now.Sub(s.lastDemoReset) >= s.config.DemoResetEvery {
		if demos, err := s.resetDemoAccounts(ctx); err != nil {
			slog.Error("Demo account reset failed", "error", err)
		} else {
			s.lastDemoReset = now
			if demos > 0 {
				slog.Info("Demo accounts reset", "count", demos)
			}
		}
	}
}

// sweepSessions deletes session tokens unseen for the stale window.
func (s *scheduler) sweepSessions(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.config.StaleSessionWindow).UnixMilli()
	deleted := 0
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		deleted = 0
		sessions, err := tx.Sessions()
		if err != nil {
			return err
		}
		for _, sess := range sessions {
			if sess.LastSeenAt >= cutoff {
				continue
			}
			if err := tx.DeleteSession(sess.Token); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// sweepUsage zeroes counters whose period has elapsed without touching
// users inside a live period.
func (s *scheduler) sweepUsage(ctx context.Context) (int, error) {
	now := time.Now().UnixMilli()
	resets := 0
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		resets = 0
		users, err := tx.Users()
		if err != nil {
			return err
		}
		for i := range users {
			u := &users[i]
			extractions, chats := store.EffectiveUsage(u, now)
			if extractions == u.ExtractionCount && chats == u.ChatCount {
				continue
			}
			u.ExtractionCount = 0
			u.ChatCount = 0
			u.UsagePeriodStart = now
			u.UpdatedAt = now
			if err := tx.PutUser(u); err != nil {
				return err
			}
			resets++
		}
		return nil
	})
	return resets, err
}

// resetDemoAccounts deletes every demo user's projects and reseeds the
// sample project so demo logins always start from the same state.
func (s *scheduler) resetDemoAccounts(ctx context.Context) (int, error) {
	var demoUsers []string
	err := s.store.View(ctx, func(tx *store.Tx) error {
		users, err := tx.Users()
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.Demo {
				demoUsers = append(demoUsers, u.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, userID := range demoUsers {
		var projectIDs []string
		err := s.store.View(ctx, func(tx *store.Tx) error {
			projects, err := tx.ProjectsByOwner(userID)
			if err != nil {
				return err
			}
			for _, p := range projects {
				projectIDs = append(projectIDs, p.ID)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
		for _, id := range projectIDs {
			if err := s.checker.DeleteProject(ctx, id); err != nil {
				return 0, err
			}
		}
		if err := SeedDemoProject(ctx, s.store, userID); err != nil {
			return 0, err
		}
	}
	return len(demoUsers), nil
}
