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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/realmd/observability"
	"github.com/realmsync/realmsync/services/store"
)

// ListAlerts handles GET /v1/projects/:projectId/alerts with an optional
// ?status= filter.
func (h *Handlers) ListAlerts(c *gin.Context) {
	info := caller(c)
	projectID := c.Param("projectId")
	if info == nil {
		c.JSON(http.StatusOK, []datatypes.Alert{})
		return
	}
	if _, err := h.ownedProject(c.Request.Context(), info.UserID, projectID); err != nil {
		c.JSON(http.StatusOK, []datatypes.Alert{})
		return
	}

	statusFilter := c.Query("status")
	var alerts []datatypes.Alert
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		var err error
		if statusFilter != "" {
			alerts, err = tx.AlertsByStatus(projectID, datatypes.AlertStatus(statusFilter))
		} else {
			alerts, err = tx.AlertsByProject(projectID)
		}
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if alerts == nil {
		alerts = []datatypes.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}

// GetAlert handles GET /v1/projects/:projectId/alerts/:alertId.
func (h *Handlers) GetAlert(c *gin.Context) {
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

	var alert *datatypes.Alert
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		var err error
		alert, err = tx.GetAlert(projectID, c.Param("alertId"))
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
	c.JSON(http.StatusOK, alert)
}

// ResolveAlert handles POST /v1/projects/:projectId/alerts/:alertId/resolve.
func (h *Handlers) ResolveAlert(c *gin.Context) {
	h.transitionAlert(c, "resolve")
}

// DismissAlert handles POST /v1/projects/:projectId/alerts/:alertId/dismiss.
func (h *Handlers) DismissAlert(c *gin.Context) {
	h.transitionAlert(c, "dismiss")
}

// ReopenAlert handles POST /v1/projects/:projectId/alerts/:alertId/reopen.
func (h *Handlers) ReopenAlert(c *gin.Context) {
	h.transitionAlert(c, "reopen")
}

func (h *Handlers) transitionAlert(c *gin.Context, action string) {
	projectID := c.Param("projectId")
	alertID := c.Param("alertId")

	if _, err := h.ownedProject(c.Request.Context(), caller(c).UserID, projectID); err != nil {
		respondError(c, err)
		return
	}

	var err error
	var to string
	switch action {
	case "resolve":
		err = h.Checker.ResolveAlert(c.Request.Context(), projectID, alertID)
		to = string(datatypes.AlertResolved)
	case "dismiss":
		err = h.Checker.DismissAlert(c.Request.Context(), projectID, alertID)
		to = string(datatypes.AlertDismissed)
	case "reopen":
		err = h.Checker.ReopenAlert(c.Request.Context(), projectID, alertID)
		to = string(datatypes.AlertOpen)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	observability.ObserveAlertTransition(to)
	h.audit(c, "alert."+action, "alert", alertID, "success")
	c.JSON(http.StatusOK, gin.H{"status": to})
}

// DeleteAlert handles DELETE /v1/projects/:projectId/alerts/:alertId.
func (h *Handlers) DeleteAlert(c *gin.Context) {
	projectID := c.Param("projectId")
	alertID := c.Param("alertId")

	if _, err := h.ownedProject(c.Request.Context(), caller(c).UserID, projectID); err != nil {
		respondError(c, err)
		return
	}
	if err := h.Checker.RemoveAlert(c.Request.Context(), projectID, alertID); err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, "alert.delete", "alert", alertID, "success")
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ResolveWithCanonUpdate handles
// POST /v1/projects/:projectId/alerts/:alertId/resolve-with-canon-update.
// The corrected value is accepted into canon: fact, evidence snippet, and
// source document are patched and the alert resolves, in one transaction.
func (h *Handlers) ResolveWithCanonUpdate(c *gin.Context) {
	var req datatypes.ResolveWithCanonUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}

	projectID := c.Param("projectId")
	alertID := c.Param("alertId")
	if _, err := h.ownedProject(c.Request.Context(), caller(c).UserID, projectID); err != nil {
		respondError(c, err)
		return
	}

	err := h.Checker.ResolveWithCanonUpdate(c.Request.Context(),
		projectID, alertID, req.FactID, req.NewValue)
	if err != nil {
		respondError(c, err)
		return
	}

	observability.ObserveAlertTransition(string(datatypes.AlertResolved))
	h.audit(c, "alert.resolve_with_canon_update", "alert", alertID, "success")
	c.JSON(http.StatusOK, gin.H{"status": string(datatypes.AlertResolved), "fact_id": req.FactID})
}
