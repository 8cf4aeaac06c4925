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

// CreateFact handles POST /v1/projects/:projectId/facts. Manually created
// facts are confirmed immediately; the referenced entity and document must
// belong to the project.
func (h *Handlers) CreateFact(c *gin.Context) {
	var req datatypes.CreateFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}

	userID := caller(c).UserID
	projectID := c.Param("projectId")
	now := nowMillis()
	fact := &datatypes.Fact{
		ID:              newID(),
		ProjectID:       projectID,
		EntityID:        req.EntityID,
		DocumentID:      req.DocumentID,
		Subject:         req.Subject,
		Predicate:       req.Predicate,
		Object:          req.Object,
		Confidence:      req.Confidence,
		EvidenceSnippet: req.EvidenceSnippet,
		Status:          datatypes.ReviewConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		if _, err := tx.GetEntity(projectID, req.EntityID); err != nil {
			return fmt.Errorf("entity %s: %w", req.EntityID, err)
		}
		if _, err := tx.GetDocument(projectID, req.DocumentID); err != nil {
			return fmt.Errorf("document %s: %w", req.DocumentID, err)
		}
		if err := tx.PutFact(fact); err != nil {
			return err
		}
		return tx.AdjustStats(projectID, store.StatsDelta{Facts: 1})
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, "fact.create", "fact", fact.ID, "success")
	c.JSON(http.StatusCreated, fact)
}

// ListFacts handles GET /v1/projects/:projectId/facts with optional
// ?entity_id= and ?document_id= filters.
func (h *Handlers) ListFacts(c *gin.Context) {
	info := caller(c)
	projectID := c.Param("projectId")
	if info == nil {
		c.JSON(http.StatusOK, []datatypes.Fact{})
		return
	}
	if _, err := h.ownedProject(c.Request.Context(), info.UserID, projectID); err != nil {
		c.JSON(http.StatusOK, []datatypes.Fact{})
		return
	}

	entityID := c.Query("entity_id")
	documentID := c.Query("document_id")

	var facts []datatypes.Fact
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		var err error
		switch {
		case entityID != "":
			facts, err = tx.FactsByEntity(projectID, entityID)
		case documentID != "":
			facts, err = tx.FactsByDocument(projectID, documentID)
		default:
			facts, err = tx.FactsByProject(projectID)
		}
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if facts == nil {
		facts = []datatypes.Fact{}
	}
	c.JSON(http.StatusOK, facts)
}

// UpdateFactStatus handles PATCH /v1/projects/:projectId/facts/:factId/status
// to confirm or reject an extraction proposal.
func (h *Handlers) UpdateFactStatus(c *gin.Context) {
	var req datatypes.UpdateFactStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}
	status := datatypes.ReviewStatus(req.Status)
	if !datatypes.ValidReviewStatus(status) {
		respondError(c, fmt.Errorf("unknown review status %q: %w", req.Status, datatypes.ErrValidation))
		return
	}

	userID := caller(c).UserID
	projectID := c.Param("projectId")
	var fact *datatypes.Fact
	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		f, err := tx.GetFact(projectID, c.Param("factId"))
		if err != nil {
			return err
		}
		f.Status = status
		f.UpdatedAt = nowMillis()
		fact = f
		return tx.PutFact(f)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fact)
}

// DeleteFact handles DELETE /v1/projects/:projectId/facts/:factId.
func (h *Handlers) DeleteFact(c *gin.Context) {
	userID := caller(c).UserID
	projectID := c.Param("projectId")
	factID := c.Param("factId")

	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		if _, err := tx.GetFact(projectID, factID); err != nil {
			return err
		}
		if err := tx.DeleteFact(projectID, factID); err != nil {
			return err
		}
		return tx.AdjustStats(projectID, store.StatsDelta{Facts: -1})
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, "fact.delete", "fact", factID, "success")
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
