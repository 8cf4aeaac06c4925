// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
)

// GetUser returns the user or ErrNotFound.
func (tx *Tx) GetUser(id string) (*datatypes.User, error) {
	var u datatypes.User
	if err := tx.getJSON(userKey(id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// PutUser writes the user record and maintains the email index.
func (tx *Tx) PutUser(u *datatypes.User) error {
	if u.Email != "" {
		if err := tx.txn.Set(userEmailKey(u.Email), []byte(u.ID)); err != nil {
			return err
		}
	}
	return tx.setJSON(userKey(u.ID), u)
}

// UserByEmail resolves an email to a user via the email index.
// Returns ErrNotFound when no account uses the address.
func (tx *Tx) UserByEmail(email string) (*datatypes.User, error) {
	item, err := tx.txn.Get(userEmailKey(email))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get email index %s: %w", email, err)
	}
	var id string
	if err := item.Value(func(val []byte) error {
		id = string(val)
		return nil
	}); err != nil {
		return nil, err
	}
	return tx.GetUser(id)
}

// ReindexEmail moves the email index entry when a user changes address.
func (tx *Tx) ReindexEmail(oldEmail, newEmail, userID string) error {
	if oldEmail != "" && !strings.EqualFold(oldEmail, newEmail) {
		if err := tx.deleteKey(userEmailKey(oldEmail)); err != nil {
			return err
		}
	}
	return tx.txn.Set(userEmailKey(newEmail), []byte(userID))
}

// Users returns every user record.
func (tx *Tx) Users() ([]datatypes.User, error) {
	return collectPrefix[datatypes.User](tx, []byte("user/"))
}

// GetSession returns the session token record or ErrNotFound.
func (tx *Tx) GetSession(token string) (*datatypes.SessionToken, error) {
	var s datatypes.SessionToken
	if err := tx.getJSON(sessionKey(token), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// PutSession writes the session token record.
func (tx *Tx) PutSession(s *datatypes.SessionToken) error {
	if s.Token == "" {
		return fmt.Errorf("session token must not be empty: %w", datatypes.ErrValidation)
	}
	return tx.setJSON(sessionKey(s.Token), s)
}

// DeleteSession removes a session token.
func (tx *Tx) DeleteSession(token string) error {
	return tx.deleteKey(sessionKey(token))
}

// Sessions returns every session token record.
func (tx *Tx) Sessions() ([]datatypes.SessionToken, error) {
	return collectPrefix[datatypes.SessionToken](tx, []byte("session/"))
}

// TouchSession updates LastSeenAt on the session, keeping it out of the
// weekly stale cleanup.
func (tx *Tx) TouchSession(token string, now int64) error {
	s, err := tx.GetSession(token)
	if err != nil {
		return err
	}
	s.LastSeenAt = now
	return tx.PutSession(s)
}
