// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"time"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
)

// UsagePeriod is the rolling window for per-user usage counters. Counters
// reset lazily on the first increment after the window elapses.
const UsagePeriod = 30 * 24 * time.Hour

func usageExpired(u *datatypes.User, now int64) bool {
	return now-u.UsagePeriodStart >= UsagePeriod.Milliseconds()
}

// EffectiveUsage returns the user's extraction and chat counts for the
// current period, treating an elapsed period as zero even before the lazy
// reset has run.
func EffectiveUsage(u *datatypes.User, now int64) (extractions, chats int) {
	if usageExpired(u, now) {
		return 0, 0
	}
	return u.ExtractionCount, u.ChatCount
}

// IncrementExtractionUsage bumps the user's extraction counter for the
// current period and returns the updated record.
func (tx *Tx) IncrementExtractionUsage(userID string, now int64) (*datatypes.User, error) {
	return tx.bumpUsage(userID, now, func(u *datatypes.User) {
		u.ExtractionCount++
	})
}

// IncrementChatUsage bumps the user's chat counter for the current period
// and returns the updated record.
func (tx *Tx) IncrementChatUsage(userID string, now int64) (*datatypes.User, error) {
	return tx.bumpUsage(userID, now, func(u *datatypes.User) {
		u.ChatCount++
	})
}

func (tx *Tx) bumpUsage(userID string, now int64, bump func(*datatypes.User)) (*datatypes.User, error) {
	user, err := tx.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if usageExpired(user, now) {
		user.ExtractionCount = 0
		user.ChatCount = 0
		user.UsagePeriodStart = now
	}
	bump(user)
	user.UpdatedAt = now
	if err := tx.PutUser(user); err != nil {
		return nil, err
	}
	return user, nil
}
