// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"sort"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
)

// GetDocument returns the document or ErrNotFound.
func (tx *Tx) GetDocument(projectID, id string) (*datatypes.Document, error) {
	var d datatypes.Document
	if err := tx.getJSON(documentKey(projectID, id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// PutDocument writes the document record.
func (tx *Tx) PutDocument(d *datatypes.Document) error {
	return tx.setJSON(documentKey(d.ProjectID, d.ID), d)
}

// DeleteDocument removes the document record only. Cascading fact and alert
// deletion is the checker's job (canon.DeleteDocument).
func (tx *Tx) DeleteDocument(projectID, id string) error {
	return tx.deleteKey(documentKey(projectID, id))
}

// DocumentsByProject returns the project's documents sorted by OrderIndex.
func (tx *Tx) DocumentsByProject(projectID string) ([]datatypes.Document, error) {
	docs, err := collectPrefix[datatypes.Document](tx, documentPrefix(projectID))
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].OrderIndex < docs[j].OrderIndex
	})
	return docs, nil
}
