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
	"time"

	"github.com/google/uuid"
	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedDocument adds another document to the project and bumps the counter.
func seedDocument(t *testing.T, s *store.Store, projectID, title, content string, order int) *datatypes.Document {
	t.Helper()
	now := time.Now().UnixMilli()
	doc := &datatypes.Document{
		ID:               uuid.NewString(),
		ProjectID:        projectID,
		Title:            title,
		Content:          content,
		OrderIndex:       order,
		ProcessingStatus: datatypes.ProcessingCompleted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		if err := tx.PutDocument(doc); err != nil {
			return err
		}
		return tx.AdjustStats(projectID, store.StatsDelta{Documents: 1})
	})
	require.NoError(t, err)
	return doc
}

func TestDeleteDocument_CascadesFactsAndAlerts(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)
	entity := seedEntity(t, s, fx.Project.ID, "Marcus", nil)
	fact := seedFact(t, s, fx.Project.ID, entity.ID, fx.Document.ID,
		"Marcus", "has", "blue eyes", "Marcus has blue eyes.")
	seedAlert(t, s, fx, []string{fact.ID})

	res, err := checker.DeleteDocument(context.Background(), fx.Project.ID, fx.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DocumentsDeleted)
	assert.Equal(t, 1, res.FactsDeleted)
	assert.Equal(t, 1, res.AlertsDeleted)

	stats := getProject(t, s, fx.Project.ID).Stats
	assert.Equal(t, 0, stats.DocumentCount)
	assert.Equal(t, 0, stats.FactCount)
	assert.Equal(t, 0, stats.AlertCount)
	assert.Equal(t, 1, stats.EntityCount, "entities survive document deletion")
	assert.Empty(t, listAlerts(t, s, fx.Project.ID))
}

// TestDeleteDocument_CrossDocumentAlerts exercises the survival rule: an
// alert on another document dies when all its referenced facts came from
// the deleted one, and survives when at least one referenced fact lives.
func TestDeleteDocument_CrossDocumentAlerts(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)
	other := seedDocument(t, s, fx.Project.ID, "Chapter Two",
		"Years later, Marcus returned.", 1)
	entity := seedEntity(t, s, fx.Project.ID, "Marcus", nil)

	doomedFact := seedFact(t, s, fx.Project.ID, entity.ID, fx.Document.ID,
		"Marcus", "has", "blue eyes", "Marcus has blue eyes.")
	livingFact := seedFact(t, s, fx.Project.ID, entity.ID, other.ID,
		"Marcus", "returned after", "ten years", "Years later, Marcus returned.")

	otherFx := fixture{Project: fx.Project, Document: other}
	doomedAlert := seedAlert(t, s, otherFx, []string{doomedFact.ID})
	survivingAlert := seedAlert(t, s, otherFx, []string{doomedFact.ID, livingFact.ID})
	noFactAlert := seedAlert(t, s, otherFx, nil)

	res, err := checker.DeleteDocument(context.Background(), fx.Project.ID, fx.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.AlertsDeleted)

	remaining := listAlerts(t, s, fx.Project.ID)
	require.Len(t, remaining, 2)
	ids := []string{remaining[0].ID, remaining[1].ID}
	assert.NotContains(t, ids, doomedAlert.ID)
	assert.Contains(t, ids, survivingAlert.ID)
	assert.Contains(t, ids, noFactAlert.ID)

	assert.Equal(t, 2, getProject(t, s, fx.Project.ID).Stats.AlertCount)
}

func TestDeleteDocument_AlreadyDeleted(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)

	res, err := checker.DeleteDocument(context.Background(), fx.Project.ID, fx.Document.ID)
	require.NoError(t, err)
	require.Equal(t, 1, res.DocumentsDeleted)

	res, err = checker.DeleteDocument(context.Background(), fx.Project.ID, fx.Document.ID)
	require.NoError(t, err)
	assert.Zero(t, res.DocumentsDeleted)
	assert.Equal(t, 0, getProject(t, s, fx.Project.ID).Stats.DocumentCount,
		"repeated deletion must not decrement twice")
}

func TestDeleteEntity_CascadesFactsKeepsNotes(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)
	entity := seedEntity(t, s, fx.Project.ID, "Marcus", nil)
	fact := seedFact(t, s, fx.Project.ID, entity.ID, fx.Document.ID,
		"Marcus", "has", "blue eyes", "Marcus has blue eyes.")
	seedAlert(t, s, fx, []string{fact.ID})

	note := &datatypes.Note{
		ID:        uuid.NewString(),
		ProjectID: fx.Project.ID,
		EntityID:  entity.ID,
		Body:      "Gray at the temples.",
	}
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		if err := tx.PutNote(note); err != nil {
			return err
		}
		return tx.AdjustStats(fx.Project.ID, store.StatsDelta{Notes: 1})
	})
	require.NoError(t, err)

	res, err := checker.DeleteEntity(context.Background(), fx.Project.ID, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.EntitiesDeleted)
	assert.Equal(t, 1, res.FactsDeleted)
	assert.Equal(t, 1, res.AlertsDeleted)

	err = s.View(context.Background(), func(tx *store.Tx) error {
		_, err := tx.GetEntity(fx.Project.ID, entity.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		notes, err := tx.NotesByProject(fx.Project.ID, "")
		require.NoError(t, err)
		assert.Len(t, notes, 1, "notes survive entity deletion")
		return nil
	})
	require.NoError(t, err)

	stats := getProject(t, s, fx.Project.ID).Stats
	assert.Equal(t, 0, stats.EntityCount)
	assert.Equal(t, 0, stats.FactCount)
	assert.Equal(t, 0, stats.AlertCount)
	assert.Equal(t, 1, stats.NoteCount)
}

func TestDeleteProject_RemovesEverything(t *testing.T) {
	checker, s := newTestChecker(t)
	fx := seedProject(t, s)
	entity := seedEntity(t, s, fx.Project.ID, "Marcus", nil)
	fact := seedFact(t, s, fx.Project.ID, entity.ID, fx.Document.ID,
		"Marcus", "has", "blue eyes", "Marcus has blue eyes.")
	seedAlert(t, s, fx, []string{fact.ID})

	require.NoError(t, checker.DeleteProject(context.Background(), fx.Project.ID))

	err := s.View(context.Background(), func(tx *store.Tx) error {
		_, err := tx.GetProject(fx.Project.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		docs, err := tx.DocumentsByProject(fx.Project.ID)
		require.NoError(t, err)
		assert.Empty(t, docs)

		entities, err := tx.EntitiesByProject(fx.Project.ID)
		require.NoError(t, err)
		assert.Empty(t, entities)

		facts, err := tx.FactsByProject(fx.Project.ID)
		require.NoError(t, err)
		assert.Empty(t, facts)

		alerts, err := tx.AlertsByProject(fx.Project.ID)
		require.NoError(t, err)
		assert.Empty(t, alerts)
		return nil
	})
	require.NoError(t, err)

	// A second deletion of the same project is a no-op.
	require.NoError(t, checker.DeleteProject(context.Background(), fx.Project.ID))
}
