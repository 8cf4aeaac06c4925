// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"time"
)

// AuditEvent records one security-relevant action.
type AuditEvent struct {
	// Timestamp is when the event occurred (UTC).
	Timestamp time.Time

	// UserID identifies the actor, or "anonymous".
	UserID string

	// Action is the operation: "create", "update", "delete", "login".
	Action string

	// ResourceType and ResourceID name the affected record.
	ResourceType string
	ResourceID   string

	// Outcome is "success" or "denied".
	Outcome string

	// Detail holds event-specific context.
	Detail map[string]any
}

// AuditLogger records audit events. Implementations must not block request
// handling; buffering or asynchronous delivery is the implementation's
// responsibility.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent)
}

// NopAuditLogger discards all events, the default for self-hosted use.
type NopAuditLogger struct{}

func (l *NopAuditLogger) Log(_ context.Context, _ AuditEvent) {}

var _ AuditLogger = (*NopAuditLogger)(nil)
