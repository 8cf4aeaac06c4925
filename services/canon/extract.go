// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package canon

import (
	"context"
	"errors"
	"log/slog"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
)

// ExtractionOutcome reports what ApplyExtraction persisted.
type ExtractionOutcome struct {
	EntitiesCreated int
	FactsCreated    int
}

// ApplyExtraction persists the entities and facts proposed by the
// extraction service for one document.
//
// Proposed entities that match an existing entity by name or alias
// (case-insensitively) are not duplicated; new aliases from the proposal
// are merged onto the existing record instead. New entities and facts are
// created in review status pending with FirstMentionedIn pointing at the
// source document. Facts naming an unknown entity are skipped. Counters
// move with the records in the same transaction. If the document was
// deleted mid-extraction, nothing is persisted.
func (c *Checker) ApplyExtraction(ctx context.Context, projectID, documentID string,
	result datatypes.ExtractionResult) (ExtractionOutcome, error) {

	var out ExtractionOutcome
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		out = ExtractionOutcome{}

		_, err := tx.GetDocument(projectID, documentID)
		if errors.Is(err, store.ErrNotFound) {
			slog.Info("Skipping extraction apply, document no longer exists",
				"project_id", projectID, "document_id", documentID)
			return nil
		}
		if err != nil {
			return err
		}

		now := nowMillis()

		// Entities first so facts can resolve names created in this batch.
		var created []*datatypes.Entity
		existing, err := tx.EntitiesByProject(projectID)
		if err != nil {
			return err
		}

		resolve := func(name string) *datatypes.Entity {
			for _, e := range created {
				if e.MatchesName(name) {
					return e
				}
			}
			for i := range existing {
				if existing[i].MatchesName(name) {
					return &existing[i]
				}
			}
			return nil
		}

		for _, proposed := range result.Entities {
			if proposed.Name == "" {
				continue
			}
			if match := resolve(proposed.Name); match != nil {
				if merged := mergeAliases(match, proposed.Aliases); merged {
					match.UpdatedAt = now
					if err := tx.PutEntity(match); err != nil {
						return err
					}
				}
				continue
			}
			kind := proposed.Kind
			if !datatypes.ValidEntityKind(kind) {
				kind = datatypes.EntityConcept
			}
			entity := &datatypes.Entity{
				ID:               newID(),
				ProjectID:        projectID,
				Name:             proposed.Name,
				Kind:             kind,
				Aliases:          proposed.Aliases,
				Status:           datatypes.ReviewPending,
				FirstMentionedIn: documentID,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := tx.PutEntity(entity); err != nil {
				return err
			}
			created = append(created, entity)
			out.EntitiesCreated++
		}

		for _, proposed := range result.Facts {
			entity := resolve(proposed.EntityName)
			if entity == nil {
				slog.Warn("Extracted fact names unknown entity, skipping",
					"project_id", projectID, "entity_name", proposed.EntityName)
				continue
			}
			fact := &datatypes.Fact{
				ID:              newID(),
				ProjectID:       projectID,
				EntityID:        entity.ID,
				DocumentID:      documentID,
				Subject:         proposed.Subject,
				Predicate:       proposed.Predicate,
				Object:          proposed.Object,
				Confidence:      proposed.Confidence,
				EvidenceSnippet: proposed.EvidenceSnippet,
				Status:          datatypes.ReviewPending,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := tx.PutFact(fact); err != nil {
				return err
			}
			out.FactsCreated++
		}

		if out.EntitiesCreated != 0 || out.FactsCreated != 0 {
			return tx.AdjustStats(projectID, store.StatsDelta{
				Entities: out.EntitiesCreated,
				Facts:    out.FactsCreated,
			})
		}
		return nil
	})
	if err != nil {
		return ExtractionOutcome{}, err
	}
	return out, nil
}

// mergeAliases appends unseen aliases onto the entity. Reports whether the
// record changed.
func mergeAliases(entity *datatypes.Entity, aliases []string) bool {
	changed := false
	for _, alias := range aliases {
		if alias == "" || entity.MatchesName(alias) {
			continue
		}
		entity.Aliases = append(entity.Aliases, alias)
		changed = true
	}
	return changed
}
