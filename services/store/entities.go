// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"github.com/realmsync/realmsync/services/realmd/datatypes"
)

// GetEntity returns the entity or ErrNotFound.
func (tx *Tx) GetEntity(projectID, id string) (*datatypes.Entity, error) {
	var e datatypes.Entity
	if err := tx.getJSON(entityKey(projectID, id), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// PutEntity writes the entity record.
func (tx *Tx) PutEntity(e *datatypes.Entity) error {
	return tx.setJSON(entityKey(e.ProjectID, e.ID), e)
}

// DeleteEntity removes the entity record only; owned facts and dependent
// alerts cascade via canon.DeleteEntity.
func (tx *Tx) DeleteEntity(projectID, id string) error {
	return tx.deleteKey(entityKey(projectID, id))
}

// EntitiesByProject returns every entity of the project.
func (tx *Tx) EntitiesByProject(projectID string) ([]datatypes.Entity, error) {
	return collectPrefix[datatypes.Entity](tx, entityPrefix(projectID))
}

// EntityByName resolves a name or alias to an entity, case-insensitively.
// Returns ErrNotFound when nothing matches.
func (tx *Tx) EntityByName(projectID, name string) (*datatypes.Entity, error) {
	var found *datatypes.Entity
	err := iterPrefix(tx, entityPrefix(projectID), func(e datatypes.Entity) error {
		if found == nil && e.MatchesName(name) {
			found = &e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}
