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

// GetNote returns the note or ErrNotFound.
func (tx *Tx) GetNote(projectID, id string) (*datatypes.Note, error) {
	var n datatypes.Note
	if err := tx.getJSON(noteKey(projectID, id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// PutNote writes the note record.
func (tx *Tx) PutNote(n *datatypes.Note) error {
	return tx.setJSON(noteKey(n.ProjectID, n.ID), n)
}

// DeleteNote removes the note record.
func (tx *Tx) DeleteNote(projectID, id string) error {
	return tx.deleteKey(noteKey(projectID, id))
}

// NotesByProject returns every note of the project. When entityID is
// non-empty, only notes scoped to that entity are returned.
func (tx *Tx) NotesByProject(projectID, entityID string) ([]datatypes.Note, error) {
	var out []datatypes.Note
	err := iterPrefix(tx, notePrefix(projectID), func(n datatypes.Note) error {
		if entityID == "" || n.EntityID == entityID {
			out = append(out, n)
		}
		return nil
	})
	return out, err
}
