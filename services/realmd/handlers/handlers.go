// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the gin handlers of the Realm Sync HTTP API.
//
// Every project-scoped handler re-verifies that the caller owns the parent
// project. Unauthorized and unauthenticated reads return empty or null
// bodies with status 200 so existence is never leaked; mutations reject
// with 401/404.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/realmsync/realmsync/pkg/extensions"
	"github.com/realmsync/realmsync/services/blob"
	"github.com/realmsync/realmsync/services/canon"
	"github.com/realmsync/realmsync/services/llm"
	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/realmd/middleware"
	"github.com/realmsync/realmsync/services/realmd/observability"
	"github.com/realmsync/realmsync/services/store"
)

// UsageLimits caps per-user LLM consumption within one usage period.
// Zero means unlimited.
type UsageLimits struct {
	Extractions int
	Chats       int
}

// ErrUsageLimit is returned when a user has exhausted a usage counter for
// the current period. Mapped to HTTP 429.
var ErrUsageLimit = errors.New("usage limit reached")

// Handlers bundles the collaborators shared by all HTTP handlers.
type Handlers struct {
	Store   *store.Store
	Checker *canon.Checker
	LLM     llm.Client
	Cache   *llm.ResultCache
	Blobs   blob.Store
	Billing extensions.BillingProvider
	Audit   extensions.AuditLogger
	Limits  UsageLimits
}

// New builds a Handlers with no-op defaults for the optional collaborators.
func New(s *store.Store, checker *canon.Checker, client llm.Client,
	cache *llm.ResultCache, blobs blob.Store) *Handlers {

	return &Handlers{
		Store:   s,
		Checker: checker,
		LLM:     client,
		Cache:   cache,
		Blobs:   blobs,
		Billing: &extensions.NopBillingProvider{},
		Audit:   &extensions.NopAuditLogger{},
	}
}

func newID() string {
	return uuid.New().String()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// caller returns the validated identity on the request, or nil for
// anonymous callers.
func caller(c *gin.Context) *extensions.AuthInfo {
	return middleware.GetAuthInfo(c)
}

// ownedProject loads the project and verifies ownership. Missing projects
// and projects owned by someone else both return store.ErrNotFound.
func (h *Handlers) ownedProject(ctx context.Context, userID, projectID string) (*datatypes.Project, error) {
	var p *datatypes.Project
	err := h.Store.View(ctx, func(tx *store.Tx) error {
		got, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if got.OwnerID != userID {
			return store.ErrNotFound
		}
		p = got
		return nil
	})
	return p, err
}

// respondError maps a handler error to its HTTP status.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, datatypes.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(), "code": observability.ErrorCodeValidation,
		})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found", "code": observability.ErrorCodeNotFound,
		})
	case errors.Is(err, extensions.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, ErrUsageLimit):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": err.Error(), "code": observability.ErrorCodeUsageLimit,
		})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error": "upstream timeout", "code": observability.ErrorCodeTimeout,
		})
	default:
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal error", "code": observability.ErrorCodeInternal,
		})
	}
}

// audit emits an audit event for a mutation, attributed to the caller.
func (h *Handlers) audit(c *gin.Context, action, resourceType, resourceID, outcome string) {
	userID := ""
	if info := caller(c); info != nil {
		userID = info.UserID
	}
	h.Audit.Log(c.Request.Context(), extensions.AuditEvent{
		Timestamp:    time.Now(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      outcome,
	})
}
