// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
)

// CreateEntity handles POST /v1/projects/:projectId/entities. Manually
// created entities are confirmed immediately.
func (h *Handlers) CreateEntity(c *gin.Context) {
	var req datatypes.CreateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}
	if err := datatypes.ValidateName(req.Name); err != nil {
		respondError(c, err)
		return
	}
	kind := datatypes.EntityKind(req.Kind)
	if !datatypes.ValidEntityKind(kind) {
		respondError(c, fmt.Errorf("unknown entity kind %q: %w", req.Kind, datatypes.ErrValidation))
		return
	}

	userID := caller(c).UserID
	projectID := c.Param("projectId")
	now := nowMillis()
	entity := &datatypes.Entity{
		ID:               newID(),
		ProjectID:        projectID,
		Name:             req.Name,
		Kind:             kind,
		Aliases:          req.Aliases,
		Status:           datatypes.ReviewConfirmed,
		FirstMentionedIn: req.FirstMentionedIn,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		if existing, err := tx.EntityByName(projectID, req.Name); err == nil {
			return fmt.Errorf("entity %q already exists as %s: %w",
				req.Name, existing.ID, datatypes.ErrValidation)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.PutEntity(entity); err != nil {
			return err
		}
		return tx.AdjustStats(projectID, store.StatsDelta{Entities: 1})
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, "entity.create", "entity", entity.ID, "success")
	c.JSON(http.StatusCreated, entity)
}

// ListEntities handles GET /v1/projects/:projectId/entities with optional
// ?kind= and ?status= filters.
func (h *Handlers) ListEntities(c *gin.Context) {
	info := caller(c)
	projectID := c.Param("projectId")
	if info == nil {
		c.JSON(http.StatusOK, []datatypes.Entity{})
		return
	}
	if _, err := h.ownedProject(c.Request.Context(), info.UserID, projectID); err != nil {
		c.JSON(http.StatusOK, []datatypes.Entity{})
		return
	}

	kindFilter := c.Query("kind")
	statusFilter := c.Query("status")

	var entities []datatypes.Entity
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		all, err := tx.EntitiesByProject(projectID)
		if err != nil {
			return err
		}
		for _, e := range all {
			if kindFilter != "" && string(e.Kind) != kindFilter {
				continue
			}
			if statusFilter != "" && string(e.Status) != statusFilter {
				continue
			}
			entities = append(entities, e)
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if entities == nil {
		entities = []datatypes.Entity{}
	}
	c.JSON(http.StatusOK, entities)
}

// GetEntity handles GET /v1/projects/:projectId/entities/:entityId,
// returning the entity with its facts.
func (h *Handlers) GetEntity(c *gin.Context) {
	info := caller(c)
	projectID := c.Param("projectId")
	if info == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	if _, err := h.ownedProject(c.Request.Context(), info.UserID, projectID); err != nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	var entity *datatypes.Entity
	var facts []datatypes.Fact
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		e, err := tx.GetEntity(projectID, c.Param("entityId"))
		if err != nil {
			return err
		}
		entity = e
		facts, err = tx.FactsByEntity(projectID, e.ID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, nil)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if facts == nil {
		facts = []datatypes.Fact{}
	}
	c.JSON(http.StatusOK, gin.H{"entity": entity, "facts": facts})
}

// UpdateEntity handles PATCH /v1/projects/:projectId/entities/:entityId.
// Status moves confirm or reject extraction proposals.
func (h *Handlers) UpdateEntity(c *gin.Context) {
	var req datatypes.UpdateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}
	if req.Name != nil {
		if err := datatypes.ValidateName(*req.Name); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.Status != nil && !datatypes.ValidReviewStatus(datatypes.ReviewStatus(*req.Status)) {
		respondError(c, fmt.Errorf("unknown review status %q: %w", *req.Status, datatypes.ErrValidation))
		return
	}

	userID := caller(c).UserID
	projectID := c.Param("projectId")
	var entity *datatypes.Entity
	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		e, err := tx.GetEntity(projectID, c.Param("entityId"))
		if err != nil {
			return err
		}
		if req.Name != nil {
			e.Name = *req.Name
		}
		if req.Aliases != nil {
			e.Aliases = *req.Aliases
		}
		if req.Status != nil {
			e.Status = datatypes.ReviewStatus(*req.Status)
		}
		e.UpdatedAt = nowMillis()
		entity = e
		return tx.PutEntity(e)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// DeleteEntity handles DELETE /v1/projects/:projectId/entities/:entityId.
// The entity's facts go with it; alerts that lose every referenced fact
// cascade too. Notes survive.
func (h *Handlers) DeleteEntity(c *gin.Context) {
	projectID := c.Param("projectId")
	entityID := c.Param("entityId")

	if _, err := h.ownedProject(c.Request.Context(), caller(c).UserID, projectID); err != nil {
		respondError(c, err)
		return
	}
	result, err := h.Checker.DeleteEntity(c.Request.Context(), projectID, entityID)
	if err != nil {
		respondError(c, err)
		return
	}

	slog.Info("Entity deleted", "project_id", projectID, "entity_id", entityID,
		"facts_deleted", result.FactsDeleted, "alerts_deleted", result.AlertsDeleted)
	h.audit(c, "entity.delete", "entity", entityID, "success")
	c.JSON(http.StatusOK, result)
}
