// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package canon implements the continuity core of Realm Sync: turning
// check-service results into persisted alerts, the alert lifecycle state
// machine, and the cascades that keep facts, alerts, and the denormalized
// project counters consistent when documents or entities are removed.
//
// Every operation runs as one store transaction. Counter adjustments are
// issued inside the same transaction as the child-record writes they
// account for, so the counters cannot drift from the live row counts.
package canon

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
)

// CanonSourceTitle is the evidence source label for snippets quoted from
// established canon rather than the document under check.
const CanonSourceTitle = "Canon"

// Checker owns the continuity logic over the store.
type Checker struct {
	store *store.Store
}

// NewChecker creates a Checker over the given store.
func NewChecker(s *store.Store) *Checker {
	return &Checker{store: s}
}

// CreateAlerts persists the alerts proposed by a continuity check.
//
// For each proposed alert, entity IDs are resolved by matching the
// affected-entity names case-insensitively against the canon context
// (names and aliases), unioned with entities named by evidence items, and
// deduplicated. Fact IDs are resolved from the facts of matched canon
// entities whose evidence snippet is referenced by an evidence item, also
// deduplicated. Evidence is persisted with its source document title;
// canon-sourced evidence carries the literal title "Canon".
//
// If the target document was deleted between check initiation and alert
// creation, nothing is created and the call reports zero alerts without
// error. The project's AlertCount grows by the number of alerts actually
// created, in the same transaction as the alert writes.
func (c *Checker) CreateAlerts(ctx context.Context, projectID, documentID string,
	result datatypes.CheckResult, canonCtx []datatypes.CanonEntity) (int, error) {

	created := 0
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		created = 0

		doc, err := tx.GetDocument(projectID, documentID)
		if errors.Is(err, store.ErrNotFound) {
			// Document vanished mid-check. Alerts without a source are
			// meaningless, so this batch is dropped.
			slog.Info("Skipping alert creation, document no longer exists",
				"project_id", projectID, "document_id", documentID)
			return nil
		}
		if err != nil {
			return err
		}

		now := nowMillis()
		for _, proposed := range result.Alerts {
			alert := buildAlert(projectID, documentID, doc.Title, proposed, canonCtx, now)
			if err := tx.PutAlert(alert); err != nil {
				return err
			}
			created++
		}

		if created > 0 {
			return tx.AdjustStats(projectID, store.StatsDelta{Alerts: created})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if created > 0 {
		slog.Info("Continuity check created alerts",
			"project_id", projectID, "document_id", documentID, "alerts", created)
	}
	return created, nil
}

// buildAlert assembles one Alert record from a proposal and the canon
// context the check service saw.
func buildAlert(projectID, documentID, docTitle string, proposed datatypes.ProposedAlert,
	canonCtx []datatypes.CanonEntity, now int64) *datatypes.Alert {

	matched := matchEntities(proposed, canonCtx)

	entityIDs := make([]string, 0, len(matched))
	seenEntity := make(map[string]bool, len(matched))
	for _, ce := range matched {
		if !seenEntity[ce.Entity.ID] {
			seenEntity[ce.Entity.ID] = true
			entityIDs = append(entityIDs, ce.Entity.ID)
		}
	}

	var factIDs []string
	seenFact := make(map[string]bool)
	for _, ce := range matched {
		for _, fact := range ce.Facts {
			if seenFact[fact.ID] || !factReferenced(fact, proposed.Evidence) {
				continue
			}
			seenFact[fact.ID] = true
			factIDs = append(factIDs, fact.ID)
		}
	}

	evidence := make([]datatypes.EvidenceItem, 0, len(proposed.Evidence))
	for _, ev := range proposed.Evidence {
		sourceTitle := docTitle
		if ev.FromCanon {
			sourceTitle = CanonSourceTitle
		}
		evidence = append(evidence, datatypes.EvidenceItem{
			Snippet:     ev.Snippet,
			SourceTitle: sourceTitle,
			EntityName:  ev.EntityName,
		})
	}

	alertType := proposed.Type
	if !datatypes.ValidAlertType(alertType) {
		alertType = datatypes.AlertAmbiguity
	}
	severity := proposed.Severity
	if severity != datatypes.SeverityError && severity != datatypes.SeverityWarning {
		severity = datatypes.SeverityWarning
	}

	return &datatypes.Alert{
		ID:           newID(),
		ProjectID:    projectID,
		DocumentID:   documentID,
		Type:         alertType,
		Severity:     severity,
		Title:        proposed.Title,
		Description:  proposed.Description,
		SuggestedFix: proposed.SuggestedFix,
		FactIDs:      factIDs,
		EntityIDs:    entityIDs,
		Evidence:     evidence,
		Status:       datatypes.AlertOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// matchEntities returns the canon entities named by the proposal, via
// AffectedEntities and via evidence-item entity names. Order follows the
// canon context; each entity appears at most once.
func matchEntities(proposed datatypes.ProposedAlert,
	canonCtx []datatypes.CanonEntity) []datatypes.CanonEntity {

	names := make([]string, 0, len(proposed.AffectedEntities)+len(proposed.Evidence))
	names = append(names, proposed.AffectedEntities...)
	for _, ev := range proposed.Evidence {
		if ev.EntityName != "" {
			names = append(names, ev.EntityName)
		}
	}

	var matched []datatypes.CanonEntity
	seen := make(map[string]bool)
	for _, ce := range canonCtx {
		if seen[ce.Entity.ID] {
			continue
		}
		for _, name := range names {
			if ce.Entity.MatchesName(name) {
				seen[ce.Entity.ID] = true
				matched = append(matched, ce)
				break
			}
		}
	}
	return matched
}

// factReferenced reports whether any evidence item quotes the fact's
// evidence snippet, in part or in full.
func factReferenced(fact datatypes.Fact, evidence []datatypes.CheckEvidence) bool {
	if fact.EvidenceSnippet == "" {
		return false
	}
	for _, ev := range evidence {
		if ev.Snippet == "" {
			continue
		}
		if strings.Contains(ev.Snippet, fact.EvidenceSnippet) ||
			strings.Contains(fact.EvidenceSnippet, ev.Snippet) {
			return true
		}
	}
	return false
}

// LoadCanon returns the project's confirmed entities with their confirmed
// facts, the context handed to the check service.
func LoadCanon(tx *store.Tx, projectID string) ([]datatypes.CanonEntity, error) {
	entities, err := tx.EntitiesByProject(projectID)
	if err != nil {
		return nil, err
	}

	var out []datatypes.CanonEntity
	for _, entity := range entities {
		if entity.Status != datatypes.ReviewConfirmed {
			continue
		}
		facts, err := tx.FactsByEntity(projectID, entity.ID)
		if err != nil {
			return nil, err
		}
		confirmed := facts[:0]
		for _, fact := range facts {
			if fact.Status == datatypes.ReviewConfirmed {
				confirmed = append(confirmed, fact)
			}
		}
		out = append(out, datatypes.CanonEntity{Entity: entity, Facts: confirmed})
	}
	return out, nil
}
