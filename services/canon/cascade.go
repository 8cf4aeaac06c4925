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

// CascadeResult reports what a cascading deletion actually removed.
type CascadeResult struct {
	DocumentsDeleted int `json:"documents_deleted"`
	EntitiesDeleted  int `json:"entities_deleted"`
	FactsDeleted     int `json:"facts_deleted"`
	AlertsDeleted    int `json:"alerts_deleted"`
}

// DeleteDocument removes a document with its dependent records:
//
//   - every fact extracted from the document,
//   - every alert attached to the document,
//   - every alert elsewhere in the project whose referenced facts no
//     longer exist once this document's facts are gone.
//
// An alert survives exactly when at least one of its referenced facts
// still exists. Project stats are decremented by what was actually
// deleted, all in one transaction. Deleting an already-deleted document
// is a graceful no-op.
func (c *Checker) DeleteDocument(ctx context.Context, projectID, documentID string) (CascadeResult, error) {
	var res CascadeResult
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		res = CascadeResult{}

		_, err := tx.GetDocument(projectID, documentID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		facts, err := tx.FactsByDocument(projectID, documentID)
		if err != nil {
			return err
		}
		deletedFacts := make(map[string]bool, len(facts))
		for _, fact := range facts {
			if err := tx.DeleteFact(projectID, fact.ID); err != nil {
				return err
			}
			deletedFacts[fact.ID] = true
		}
		res.FactsDeleted = len(facts)

		openAlerts, alertsDeleted, err := cascadeAlerts(tx, projectID, deletedFacts, documentID)
		if err != nil {
			return err
		}
		res.AlertsDeleted = alertsDeleted

		if err := tx.DeleteDocument(projectID, documentID); err != nil {
			return err
		}
		res.DocumentsDeleted = 1

		return tx.AdjustStats(projectID, store.StatsDelta{
			Documents: -1,
			Facts:     -res.FactsDeleted,
			Alerts:    -openAlerts,
		})
	})
	if err != nil {
		return CascadeResult{}, err
	}
	if res.DocumentsDeleted > 0 {
		slog.Info("Deleted document with cascade",
			"project_id", projectID, "document_id", documentID,
			"facts", res.FactsDeleted, "alerts", res.AlertsDeleted)
	}
	return res, nil
}

// DeleteEntity removes an entity, its facts, and the alerts that lose
// their last surviving fact reference. Entity notes stay; they belong to
// the project scope and keep their entity ID as a dangling annotation.
func (c *Checker) DeleteEntity(ctx context.Context, projectID, entityID string) (CascadeResult, error) {
	var res CascadeResult
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		res = CascadeResult{}

		_, err := tx.GetEntity(projectID, entityID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		facts, err := tx.FactsByEntity(projectID, entityID)
		if err != nil {
			return err
		}
		deletedFacts := make(map[string]bool, len(facts))
		for _, fact := range facts {
			if err := tx.DeleteFact(projectID, fact.ID); err != nil {
				return err
			}
			deletedFacts[fact.ID] = true
		}
		res.FactsDeleted = len(facts)

		openAlerts, alertsDeleted, err := cascadeAlerts(tx, projectID, deletedFacts, "")
		if err != nil {
			return err
		}
		res.AlertsDeleted = alertsDeleted

		if err := tx.DeleteEntity(projectID, entityID); err != nil {
			return err
		}
		res.EntitiesDeleted = 1

		return tx.AdjustStats(projectID, store.StatsDelta{
			Entities: -1,
			Facts:    -res.FactsDeleted,
			Alerts:   -openAlerts,
		})
	})
	if err != nil {
		return CascadeResult{}, err
	}
	return res, nil
}

// DeleteProject removes the project and every record scoped to it.
// Already-deleted projects are a graceful no-op.
func (c *Checker) DeleteProject(ctx context.Context, projectID string) error {
	return c.store.Update(ctx, func(tx *store.Tx) error {
		_, err := tx.GetProject(projectID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		docs, err := tx.DocumentsByProject(projectID)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if err := tx.DeleteDocument(projectID, d.ID); err != nil {
				return err
			}
		}
		entities, err := tx.EntitiesByProject(projectID)
		if err != nil {
			return err
		}
		for _, e := range entities {
			if err := tx.DeleteEntity(projectID, e.ID); err != nil {
				return err
			}
		}
		facts, err := tx.FactsByProject(projectID)
		if err != nil {
			return err
		}
		for _, f := range facts {
			if err := tx.DeleteFact(projectID, f.ID); err != nil {
				return err
			}
		}
		alerts, err := tx.AlertsByProject(projectID)
		if err != nil {
			return err
		}
		for _, a := range alerts {
			if err := tx.DeleteAlert(projectID, a.ID); err != nil {
				return err
			}
		}
		notes, err := tx.NotesByProject(projectID, "")
		if err != nil {
			return err
		}
		for _, n := range notes {
			if err := tx.DeleteNote(projectID, n.ID); err != nil {
				return err
			}
		}

		return tx.DeleteProject(projectID)
	})
}

// cascadeAlerts deletes the alerts that do not survive a batch of fact
// deletions. An alert is removed when it is attached to deletedDocID, or
// when it references at least one fact and none of its referenced facts
// survive. Returns the number of removed alerts that were still open (the
// AlertCount decrement) and the total removed.
func cascadeAlerts(tx *store.Tx, projectID string, deletedFacts map[string]bool,
	deletedDocID string) (openDeleted, totalDeleted int, err error) {

	alerts, err := tx.AlertsByProject(projectID)
	if err != nil {
		return 0, 0, err
	}

	for _, alert := range alerts {
		if !alertDoomed(tx, projectID, alert, deletedFacts, deletedDocID) {
			continue
		}
		if err := tx.DeleteAlert(projectID, alert.ID); err != nil {
			return 0, 0, err
		}
		totalDeleted++
		if alert.Status == datatypes.AlertOpen {
			openDeleted++
		}
	}
	return openDeleted, totalDeleted, nil
}

// alertDoomed decides whether an alert survives the deletion batch.
func alertDoomed(tx *store.Tx, projectID string, alert datatypes.Alert,
	deletedFacts map[string]bool, deletedDocID string) bool {

	if deletedDocID != "" && alert.DocumentID == deletedDocID {
		return true
	}
	if len(alert.FactIDs) == 0 {
		return false
	}
	for _, factID := range alert.FactIDs {
		if deletedFacts[factID] {
			continue
		}
		if _, err := tx.GetFact(projectID, factID); err == nil {
			// At least one referenced fact still exists.
			return false
		}
	}
	return true
}
