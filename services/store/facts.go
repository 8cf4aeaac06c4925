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

// GetFact returns the fact or ErrNotFound.
func (tx *Tx) GetFact(projectID, id string) (*datatypes.Fact, error) {
	var f datatypes.Fact
	if err := tx.getJSON(factKey(projectID, id), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// PutFact writes the fact record.
func (tx *Tx) PutFact(f *datatypes.Fact) error {
	return tx.setJSON(factKey(f.ProjectID, f.ID), f)
}

// DeleteFact removes the fact record.
func (tx *Tx) DeleteFact(projectID, id string) error {
	return tx.deleteKey(factKey(projectID, id))
}

// FactsByProject returns every fact of the project.
func (tx *Tx) FactsByProject(projectID string) ([]datatypes.Fact, error) {
	return collectPrefix[datatypes.Fact](tx, factPrefix(projectID))
}

// FactsByEntity returns the facts attached to one entity.
func (tx *Tx) FactsByEntity(projectID, entityID string) ([]datatypes.Fact, error) {
	var out []datatypes.Fact
	err := iterPrefix(tx, factPrefix(projectID), func(f datatypes.Fact) error {
		if f.EntityID == entityID {
			out = append(out, f)
		}
		return nil
	})
	return out, err
}

// FactsByDocument returns the facts extracted from one document.
func (tx *Tx) FactsByDocument(projectID, documentID string) ([]datatypes.Fact, error) {
	var out []datatypes.Fact
	err := iterPrefix(tx, factPrefix(projectID), func(f datatypes.Fact) error {
		if f.DocumentID == documentID {
			out = append(out, f)
		}
		return nil
	})
	return out, err
}
