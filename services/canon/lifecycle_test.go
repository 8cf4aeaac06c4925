// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package canon

import (
	"context"
	"testing"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedAlert stores an open alert and bumps the project counter.
func seedAlert(t *testing.T, s *store.Store, fx fixture, factIDs []string) *datatypes.Alert {
	t.Helper()
	now := nowMillis()
	alert := &datatypes.Alert{
		ID:         newID(),
		ProjectID:  fx.Project.ID,
		DocumentID: fx.Document.ID,
		Type:       datatypes.AlertContradiction,
		Severity:   datatypes.SeverityError,
		Title:      "Eye color contradiction",
		FactIDs:    factIDs,
		Status:     datatypes.AlertOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		if err := tx.PutAlert(alert); err != nil {
			return err
		}
		return tx.AdjustStats(fx.Project.ID, store.StatsDelta{Alerts: 1})
	})
	require.NoError(t, err)
	return alert
}

func getAlert(t *testing.T, s *store.Store, projectID, alertID string) *datatypes.Alert {
	t.Helper()
	var a *datatypes.Alert
	err := s.View(context.Background(), func(tx *store.Tx) error {
		var err error
		a, err = tx.GetAlert(projectID, alertID)
		return err
	})
	require.NoError(t, err)
	return a
}

func TestResolveAlert_DecrementsOnce(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)
	alert := seedAlert(t, s, fx, nil)
	require.Equal(t, 1, getProject(t, s, fx.Project.ID).Stats.AlertCount)

	require.NoError(t, checker.ResolveAlert(context.Background(), fx.Project.ID, alert.ID))
	assert.Equal(t, datatypes.AlertResolved, getAlert(t, s, fx.Project.ID, alert.ID).Status)
	assert.Equal(t, 0, getProject(t, s, fx.Project.ID).Stats.AlertCount)

	// Resolving an already-resolved alert must not decrement again.
	require.NoError(t, checker.ResolveAlert(context.Background(), fx.Project.ID, alert.ID))
	assert.Equal(t, 0, getProject(t, s, fx.Project.ID).Stats.AlertCount)
}

func TestDismissThenResolve_SingleDecrement(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)
	alert := seedAlert(t, s, fx, nil)

	require.NoError(t, checker.DismissAlert(context.Background(), fx.Project.ID, alert.ID))
	require.NoError(t, checker.ResolveAlert(context.Background(), fx.Project.ID, alert.ID))

	assert.Equal(t, datatypes.AlertResolved, getAlert(t, s, fx.Project.ID, alert.ID).Status)
	assert.Equal(t, 0, getProject(t, s, fx.Project.ID).Stats.AlertCount,
		"moving between non-open states must not touch the counter twice")
}

func TestReopenAlert_RestoresCount(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)
	alert := seedAlert(t, s, fx, nil)

	require.NoError(t, checker.DismissAlert(context.Background(), fx.Project.ID, alert.ID))
	require.NoError(t, checker.ReopenAlert(context.Background(), fx.Project.ID, alert.ID))

	assert.Equal(t, datatypes.AlertOpen, getAlert(t, s, fx.Project.ID, alert.ID).Status)
	assert.Equal(t, 1, getProject(t, s, fx.Project.ID).Stats.AlertCount)

	// Reopening an open alert is a no-op.
	require.NoError(t, checker.ReopenAlert(context.Background(), fx.Project.ID, alert.ID))
	assert.Equal(t, 1, getProject(t, s, fx.Project.ID).Stats.AlertCount)
}

func TestAlertCount_NeverNegative(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)

	// Counter is already zero; a dismissed alert stored without a counter
	// bump simulates drift from an older write path.
	alert := &datatypes.Alert{
		ID:        newID(),
		ProjectID: fx.Project.ID,
		Type:      datatypes.AlertAmbiguity,
		Severity:  datatypes.SeverityWarning,
		Status:    datatypes.AlertOpen,
	}
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		return tx.PutAlert(alert)
	})
	require.NoError(t, err)

	require.NoError(t, checker.ResolveAlert(context.Background(), fx.Project.ID, alert.ID))
	assert.Equal(t, 0, getProject(t, s, fx.Project.ID).Stats.AlertCount)
}

func TestRemoveAlert(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)

	open := seedAlert(t, s, fx, nil)
	resolved := seedAlert(t, s, fx, nil)
	require.NoError(t, checker.ResolveAlert(context.Background(), fx.Project.ID, resolved.ID))
	require.Equal(t, 1, getProject(t, s, fx.Project.ID).Stats.AlertCount)

	require.NoError(t, checker.RemoveAlert(context.Background(), fx.Project.ID, resolved.ID))
	assert.Equal(t, 1, getProject(t, s, fx.Project.ID).Stats.AlertCount,
		"removing a resolved alert must not decrement")

	require.NoError(t, checker.RemoveAlert(context.Background(), fx.Project.ID, open.ID))
	assert.Equal(t, 0, getProject(t, s, fx.Project.ID).Stats.AlertCount)
	assert.Empty(t, listAlerts(t, s, fx.Project.ID))
}

func TestRemoveAlert_MissingAlert(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)

	err := checker.RemoveAlert(context.Background(), fx.Project.ID, "no-such-alert")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResolveWithCanonUpdate(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)
	entity := seedEntity(t, s, fx.Project.ID, "Marcus", nil)
	fact := seedFact(t, s, fx.Project.ID, entity.ID, fx.Document.ID,
		"Marcus", "has", "blue eyes", "Marcus has blue eyes.")
	alert := seedAlert(t, s, fx, []string{fact.ID})

	// Mark the document processed so the reset back to pending is visible.
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		doc, err := tx.GetDocument(fx.Project.ID, fx.Document.ID)
		if err != nil {
			return err
		}
		doc.ProcessingStatus = datatypes.ProcessingCompleted
		return tx.PutDocument(doc)
	})
	require.NoError(t, err)

	err = checker.ResolveWithCanonUpdate(context.Background(),
		fx.Project.ID, alert.ID, fact.ID, "brown eyes")
	require.NoError(t, err)

	err = s.View(context.Background(), func(tx *store.Tx) error {
		updatedFact, err := tx.GetFact(fx.Project.ID, fact.ID)
		require.NoError(t, err)
		assert.Equal(t, "brown eyes", updatedFact.Object)
		assert.Equal(t, "Marcus has brown eyes.", updatedFact.EvidenceSnippet)

		doc, err := tx.GetDocument(fx.Project.ID, fx.Document.ID)
		require.NoError(t, err)
		assert.Equal(t, "Marcus rode north. Marcus has brown eyes.", doc.Content)
		assert.Equal(t, datatypes.ProcessingPending, doc.ProcessingStatus)

		updatedAlert, err := tx.GetAlert(fx.Project.ID, alert.ID)
		require.NoError(t, err)
		assert.Equal(t, datatypes.AlertResolved, updatedAlert.Status)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 0, getProject(t, s, fx.Project.ID).Stats.AlertCount)
}

func TestResolveWithCanonUpdate_AlreadyResolved(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)
	entity := seedEntity(t, s, fx.Project.ID, "Marcus", nil)
	fact := seedFact(t, s, fx.Project.ID, entity.ID, fx.Document.ID,
		"Marcus", "has", "blue eyes", "Marcus has blue eyes.")
	alert := seedAlert(t, s, fx, []string{fact.ID})
	require.NoError(t, checker.ResolveAlert(context.Background(), fx.Project.ID, alert.ID))

	err := checker.ResolveWithCanonUpdate(context.Background(),
		fx.Project.ID, alert.ID, fact.ID, "brown eyes")
	require.NoError(t, err)

	// The canon edit still applies, the counter stays untouched.
	err = s.View(context.Background(), func(tx *store.Tx) error {
		updatedFact, err := tx.GetFact(fx.Project.ID, fact.ID)
		require.NoError(t, err)
		assert.Equal(t, "brown eyes", updatedFact.Object)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, getProject(t, s, fx.Project.ID).Stats.AlertCount)
}
