// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package canon

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
)

func newID() string {
	return uuid.NewString()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// ResolveAlert transitions an alert to resolved.
func (c *Checker) ResolveAlert(ctx context.Context, projectID, alertID string) error {
	return c.transition(ctx, projectID, alertID, datatypes.AlertResolved)
}

// DismissAlert transitions an alert to dismissed.
func (c *Checker) DismissAlert(ctx context.Context, projectID, alertID string) error {
	return c.transition(ctx, projectID, alertID, datatypes.AlertDismissed)
}

// ReopenAlert transitions a resolved or dismissed alert back to open.
func (c *Checker) ReopenAlert(ctx context.Context, projectID, alertID string) error {
	return c.transition(ctx, projectID, alertID, datatypes.AlertOpen)
}

// transition moves an alert to the target state. The project's AlertCount
// tracks open alerts: it is decremented only when the alert actually leaves
// open and incremented only when it actually enters open, so redundant
// invocations are no-ops and the counter can never double-decrement.
func (c *Checker) transition(ctx context.Context, projectID, alertID string,
	to datatypes.AlertStatus) error {

	return c.store.Update(ctx, func(tx *store.Tx) error {
		alert, err := tx.GetAlert(projectID, alertID)
		if err != nil {
			return err
		}
		if alert.Status == to {
			return nil
		}

		delta := 0
		if alert.Status == datatypes.AlertOpen {
			delta--
		}
		if to == datatypes.AlertOpen {
			delta++
		}

		alert.Status = to
		alert.UpdatedAt = nowMillis()
		if err := tx.PutAlert(alert); err != nil {
			return err
		}
		if delta != 0 {
			return tx.AdjustStats(projectID, store.StatsDelta{Alerts: delta})
		}
		return nil
	})
}

// RemoveAlert deletes an alert in any lifecycle state. The AlertCount is
// decremented only when the deleted alert was still open.
func (c *Checker) RemoveAlert(ctx context.Context, projectID, alertID string) error {
	return c.store.Update(ctx, func(tx *store.Tx) error {
		alert, err := tx.GetAlert(projectID, alertID)
		if err != nil {
			return err
		}
		if err := tx.DeleteAlert(projectID, alertID); err != nil {
			return err
		}
		if alert.Status == datatypes.AlertOpen {
			return tx.AdjustStats(projectID, store.StatsDelta{Alerts: -1})
		}
		return nil
	})
}

// ResolveWithCanonUpdate resolves an alert by accepting a corrected value
// into canon, as one transaction:
//
//  1. the target fact's object becomes newValue and its evidence snippet is
//     rewritten to quote the corrected value,
//  2. the fact's source document content is patched the same way and drops
//     back to processing status pending so re-extraction picks it up,
//  3. the alert transitions to resolved (decrementing AlertCount once if it
//     was open).
func (c *Checker) ResolveWithCanonUpdate(ctx context.Context, projectID, alertID,
	factID, newValue string) error {

	return c.store.Update(ctx, func(tx *store.Tx) error {
		alert, err := tx.GetAlert(projectID, alertID)
		if err != nil {
			return err
		}
		fact, err := tx.GetFact(projectID, factID)
		if err != nil {
			return err
		}

		now := nowMillis()
		oldObject := fact.Object
		oldSnippet := fact.EvidenceSnippet

		fact.Object = newValue
		if oldSnippet != "" && oldObject != "" {
			fact.EvidenceSnippet = strings.ReplaceAll(oldSnippet, oldObject, newValue)
		}
		fact.UpdatedAt = now
		if err := tx.PutFact(fact); err != nil {
			return err
		}

		doc, err := tx.GetDocument(projectID, fact.DocumentID)
		if err != nil {
			return err
		}
		if oldSnippet != "" && fact.EvidenceSnippet != oldSnippet {
			doc.Content = strings.ReplaceAll(doc.Content, oldSnippet, fact.EvidenceSnippet)
		}
		doc.ProcessingStatus = datatypes.ProcessingPending
		doc.UpdatedAt = now
		if err := tx.PutDocument(doc); err != nil {
			return err
		}

		if alert.Status == datatypes.AlertResolved {
			return nil
		}
		wasOpen := alert.Status == datatypes.AlertOpen
		alert.Status = datatypes.AlertResolved
		alert.UpdatedAt = now
		if err := tx.PutAlert(alert); err != nil {
			return err
		}
		if wasOpen {
			return tx.AdjustStats(projectID, store.StatsDelta{Alerts: -1})
		}
		return nil
	})
}
