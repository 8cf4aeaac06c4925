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

// CreateProject handles POST /v1/projects.
func (h *Handlers) CreateProject(c *gin.Context) {
	var req datatypes.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}
	if err := datatypes.ValidateName(req.Name); err != nil {
		respondError(c, err)
		return
	}
	kind := datatypes.ProjectKind(req.Kind)
	if !datatypes.ValidProjectKind(kind) {
		respondError(c, fmt.Errorf("unknown project kind %q: %w", req.Kind, datatypes.ErrValidation))
		return
	}

	now := nowMillis()
	project := &datatypes.Project{
		ID:        newID(),
		OwnerID:   caller(c).UserID,
		Name:      req.Name,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		return tx.PutProject(project)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	slog.Info("Project created", "project_id", project.ID, "owner_id", project.OwnerID)
	h.audit(c, "project.create", "project", project.ID, "success")
	c.JSON(http.StatusCreated, project)
}

// ListProjects handles GET /v1/projects. Anonymous callers get an empty
// list.
func (h *Handlers) ListProjects(c *gin.Context) {
	info := caller(c)
	if info == nil {
		c.JSON(http.StatusOK, []datatypes.Project{})
		return
	}

	var projects []datatypes.Project
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		var err error
		projects, err = tx.ProjectsByOwner(info.UserID)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if projects == nil {
		projects = []datatypes.Project{}
	}
	c.JSON(http.StatusOK, projects)
}

// GetProject handles GET /v1/projects/:projectId. Missing, foreign-owned,
// and anonymously requested projects all read as null.
func (h *Handlers) GetProject(c *gin.Context) {
	info := caller(c)
	if info == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	project, err := h.ownedProject(c.Request.Context(), info.UserID, c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, project)
}

// UpdateProject handles PATCH /v1/projects/:projectId.
func (h *Handlers) UpdateProject(c *gin.Context) {
	var req datatypes.UpdateProjectRequest
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
	if req.Kind != nil && !datatypes.ValidProjectKind(datatypes.ProjectKind(*req.Kind)) {
		respondError(c, fmt.Errorf("unknown project kind %q: %w", *req.Kind, datatypes.ErrValidation))
		return
	}

	userID := caller(c).UserID
	var project *datatypes.Project
	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(c.Param("projectId"))
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Kind != nil {
			p.Kind = datatypes.ProjectKind(*req.Kind)
		}
		if req.RevealedToViewers != nil {
			p.RevealedToViewers = *req.RevealedToViewers
		}
		p.UpdatedAt = nowMillis()
		project = p
		return tx.PutProject(p)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject handles DELETE /v1/projects/:projectId and removes every
// child record. Deleting an already-missing project is a no-op success.
func (h *Handlers) DeleteProject(c *gin.Context) {
	projectID := c.Param("projectId")
	userID := caller(c).UserID

	if _, err := h.ownedProject(c.Request.Context(), userID, projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"deleted": false})
			return
		}
		respondError(c, err)
		return
	}
	if err := h.Checker.DeleteProject(c.Request.Context(), projectID); err != nil {
		respondError(c, err)
		return
	}

	slog.Info("Project deleted", "project_id", projectID, "owner_id", userID)
	h.audit(c, "project.delete", "project", projectID, "success")
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
