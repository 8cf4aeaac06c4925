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
	"github.com/stretchr/testify/require"
)

// newTestChecker returns a Checker over an in-memory store.
func newTestChecker(t *testing.T) (*Checker, *store.Store) {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewChecker(s), s
}

type fixture struct {
	Project  *datatypes.Project
	Document *datatypes.Document
}

// seedProject creates a project with one pending document.
func seedProject(t *testing.T, s *store.Store) fixture {
	t.Helper()
	now := time.Now().UnixMilli()
	project := &datatypes.Project{
		ID:        uuid.NewString(),
		OwnerID:   uuid.NewString(),
		Name:      "The Shattered Crown",
		Kind:      datatypes.ProjectNovel,
		CreatedAt: now,
		UpdatedAt: now,
	}
	document := &datatypes.Document{
		ID:               uuid.NewString(),
		ProjectID:        project.ID,
		Title:            "Chapter One",
		Content:          "Marcus rode north. Marcus has blue eyes.",
		OrderIndex:       0,
		ProcessingStatus: datatypes.ProcessingPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	project.Stats.DocumentCount = 1

	err := s.Update(context.Background(), func(tx *store.Tx) error {
		if err := tx.PutProject(project); err != nil {
			return err
		}
		return tx.PutDocument(document)
	})
	require.NoError(t, err)
	return fixture{Project: project, Document: document}
}

// seedEntity stores a confirmed entity and bumps the project counter.
func seedEntity(t *testing.T, s *store.Store, projectID, name string, aliases []string) *datatypes.Entity {
	t.Helper()
	now := time.Now().UnixMilli()
	entity := &datatypes.Entity{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		Kind:      datatypes.EntityCharacter,
		Aliases:   aliases,
		Status:    datatypes.ReviewConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		if err := tx.PutEntity(entity); err != nil {
			return err
		}
		return tx.AdjustStats(projectID, store.StatsDelta{Entities: 1})
	})
	require.NoError(t, err)
	return entity
}

// seedFact stores a confirmed fact and bumps the project counter.
func seedFact(t *testing.T, s *store.Store, projectID, entityID, documentID,
	subject, predicate, object, snippet string) *datatypes.Fact {
	t.Helper()
	now := time.Now().UnixMilli()
	fact := &datatypes.Fact{
		ID:              uuid.NewString(),
		ProjectID:       projectID,
		EntityID:        entityID,
		DocumentID:      documentID,
		Subject:         subject,
		Predicate:       predicate,
		Object:          object,
		Confidence:      0.9,
		EvidenceSnippet: snippet,
		Status:          datatypes.ReviewConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		if err := tx.PutFact(fact); err != nil {
			return err
		}
		return tx.AdjustStats(projectID, store.StatsDelta{Facts: 1})
	})
	require.NoError(t, err)
	return fact
}

// getProject re-reads the project record.
func getProject(t *testing.T, s *store.Store, id string) *datatypes.Project {
	t.Helper()
	var p *datatypes.Project
	err := s.View(context.Background(), func(tx *store.Tx) error {
		var err error
		p, err = tx.GetProject(id)
		return err
	})
	require.NoError(t, err)
	return p
}

// listAlerts returns every alert of the project.
func listAlerts(t *testing.T, s *store.Store, projectID string) []datatypes.Alert {
	t.Helper()
	var alerts []datatypes.Alert
	err := s.View(context.Background(), func(tx *store.Tx) error {
		var err error
		alerts, err = tx.AlertsByProject(projectID)
		return err
	})
	require.NoError(t, err)
	return alerts
}
