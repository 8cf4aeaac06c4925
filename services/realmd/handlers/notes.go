// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
)

// CreateNote handles POST /v1/projects/:projectId/notes. A note optionally
// attaches to one entity of the same project.
func (h *Handlers) CreateNote(c *gin.Context) {
	var req datatypes.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}

	userID := caller(c).UserID
	projectID := c.Param("projectId")
	now := nowMillis()
	note := &datatypes.Note{
		ID:        newID(),
		ProjectID: projectID,
		EntityID:  req.EntityID,
		AuthorID:  userID,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		if req.EntityID != "" {
			if _, err := tx.GetEntity(projectID, req.EntityID); err != nil {
				return fmt.Errorf("entity %s: %w", req.EntityID, err)
			}
		}
		if err := tx.PutNote(note); err != nil {
			return err
		}
		return tx.AdjustStats(projectID, store.StatsDelta{Notes: 1})
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, "note.create", "note", note.ID, "success")
	c.JSON(http.StatusCreated, note)
}

// ListNotes handles GET /v1/projects/:projectId/notes with an optional
// ?entity_id= filter.
func (h *Handlers) ListNotes(c *gin.Context) {
	info := caller(c)
	projectID := c.Param("projectId")
	if info == nil {
		c.JSON(http.StatusOK, []datatypes.Note{})
		return
	}
	if _, err := h.ownedProject(c.Request.Context(), info.UserID, projectID); err != nil {
		c.JSON(http.StatusOK, []datatypes.Note{})
		return
	}

	var notes []datatypes.Note
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		var err error
		notes, err = tx.NotesByProject(projectID, c.Query("entity_id"))
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if notes == nil {
		notes = []datatypes.Note{}
	}
	c.JSON(http.StatusOK, notes)
}

// UpdateNote handles PATCH /v1/projects/:projectId/notes/:noteId.
func (h *Handlers) UpdateNote(c *gin.Context) {
	var req datatypes.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}

	userID := caller(c).UserID
	projectID := c.Param("projectId")
	var note *datatypes.Note
	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		n, err := tx.GetNote(projectID, c.Param("noteId"))
		if err != nil {
			return err
		}
		n.Body = req.Body
		n.UpdatedAt = nowMillis()
		note = n
		return tx.PutNote(n)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

// DeleteNote handles DELETE /v1/projects/:projectId/notes/:noteId.
func (h *Handlers) DeleteNote(c *gin.Context) {
	userID := caller(c).UserID
	projectID := c.Param("projectId")
	noteID := c.Param("noteId")

	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		if _, err := tx.GetNote(projectID, noteID); err != nil {
			return err
		}
		if err := tx.DeleteNote(projectID, noteID); err != nil {
			return err
		}
		return tx.AdjustStats(projectID, store.StatsDelta{Notes: -1})
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, "note.delete", "note", noteID, "success")
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
