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

// GetProject returns the project or ErrNotFound.
func (tx *Tx) GetProject(id string) (*datatypes.Project, error) {
	var p datatypes.Project
	if err := tx.getJSON(projectKey(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PutProject writes the project record.
func (tx *Tx) PutProject(p *datatypes.Project) error {
	return tx.setJSON(projectKey(p.ID), p)
}

// DeleteProject removes the project record. Child records are removed by
// the caller (canon.DeleteProject cascades them in the same transaction).
func (tx *Tx) DeleteProject(id string) error {
	return tx.deleteKey(projectKey(id))
}

// ProjectsByOwner returns every project owned by ownerID.
func (tx *Tx) ProjectsByOwner(ownerID string) ([]datatypes.Project, error) {
	var out []datatypes.Project
	err := iterPrefix(tx, []byte("project/"), func(p datatypes.Project) error {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

// StatsDelta describes counter adjustments produced by child-record events.
type StatsDelta struct {
	Documents int
	Entities  int
	Facts     int
	Alerts    int
	Notes     int
}

// AdjustStats applies delta to the project's denormalized counters inside
// the current transaction. Counters are clamped at zero: decrements are
// only issued for actual child deletions or state transitions, so a clamp
// firing indicates drift, which must not be amplified into negative counts.
func (tx *Tx) AdjustStats(projectID string, delta StatsDelta) error {
	p, err := tx.GetProject(projectID)
	if err != nil {
		return err
	}
	p.Stats.DocumentCount = clampZero(p.Stats.DocumentCount + delta.Documents)
	p.Stats.EntityCount = clampZero(p.Stats.EntityCount + delta.Entities)
	p.Stats.FactCount = clampZero(p.Stats.FactCount + delta.Facts)
	p.Stats.AlertCount = clampZero(p.Stats.AlertCount + delta.Alerts)
	p.Stats.NoteCount = clampZero(p.Stats.NoteCount + delta.Notes)
	return tx.PutProject(p)
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
