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

// GetAlert returns the alert or ErrNotFound.
func (tx *Tx) GetAlert(projectID, id string) (*datatypes.Alert, error) {
	var a datatypes.Alert
	if err := tx.getJSON(alertKey(projectID, id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// PutAlert writes the alert record.
func (tx *Tx) PutAlert(a *datatypes.Alert) error {
	return tx.setJSON(alertKey(a.ProjectID, a.ID), a)
}

// DeleteAlert removes the alert record.
func (tx *Tx) DeleteAlert(projectID, id string) error {
	return tx.deleteKey(alertKey(projectID, id))
}

// AlertsByProject returns every alert of the project.
func (tx *Tx) AlertsByProject(projectID string) ([]datatypes.Alert, error) {
	return collectPrefix[datatypes.Alert](tx, alertPrefix(projectID))
}

// AlertsByStatus returns the project's alerts in the given lifecycle state.
func (tx *Tx) AlertsByStatus(projectID string, status datatypes.AlertStatus) ([]datatypes.Alert, error) {
	var out []datatypes.Alert
	err := iterPrefix(tx, alertPrefix(projectID), func(a datatypes.Alert) error {
		if a.Status == status {
			out = append(out, a)
		}
		return nil
	})
	return out, err
}
