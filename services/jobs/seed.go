// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
)

// SeedDemoProject creates the sample project demo accounts start from: one
// project, one document, one confirmed character with a confirmed fact, so
// the continuity surfaces have something to show immediately.
func SeedDemoProject(ctx context.Context, s *store.Store, ownerID string) error {
	now := time.Now().UnixMilli()

	project := &datatypes.Project{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Name:    "The Hollow Crown (sample)",
		Kind:    datatypes.ProjectNovel,
		Stats: datatypes.ProjectStats{
			DocumentCount: 1,
			EntityCount:   1,
			FactCount:     1,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	document := &datatypes.Document{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Title:     "Chapter 1",
		Content: "Ser Alric rode through the ashen gate at dusk. His grey eyes " +
			"swept the empty courtyard, and his hand never left the hilt of " +
			"the sword he had carried since the fall of Windmere.",
		ProcessingStatus: datatypes.ProcessingCompleted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	entity := &datatypes.Entity{
		ID:               uuid.New().String(),
		ProjectID:        project.ID,
		Name:             "Ser Alric",
		Kind:             datatypes.EntityCharacter,
		Aliases:          []string{"The Knight of Windmere"},
		Status:           datatypes.ReviewConfirmed,
		FirstMentionedIn: document.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	fact := &datatypes.Fact{
		ID:              uuid.New().String(),
		ProjectID:       project.ID,
		EntityID:        entity.ID,
		DocumentID:      document.ID,
		Subject:         "Ser Alric",
		Predicate:       "has",
		Object:          "grey eyes",
		Confidence:      0.95,
		EvidenceSnippet: "His grey eyes swept the empty courtyard",
		Status:          datatypes.ReviewConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	return s.Update(ctx, func(tx *store.Tx) error {
		if err := tx.PutProject(project); err != nil {
			return err
		}
		if err := tx.PutDocument(document); err != nil {
			return err
		}
		if err := tx.PutEntity(entity); err != nil {
			return err
		}
		return tx.PutFact(fact)
	})
}
