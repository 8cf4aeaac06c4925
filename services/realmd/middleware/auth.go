// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the realmd service.
//
// # Authentication Flow
//
// OptionalAuth extracts a bearer token from the Authorization header,
// validates it via the configured AuthProvider, and stores the resulting
// AuthInfo in the Gin context. Validation failure does NOT abort the
// request: query handlers treat a missing identity as "no data" and return
// empty results, while mutation routes stack RequireAuth on top, which
// rejects unauthenticated requests with 401.
//
//	Request
//	   │
//	   ▼
//	OptionalAuth ─► token valid?   ──yes──► AuthInfo in context
//	   │                │
//	   │                no ─► context stays anonymous
//	   ▼
//	RequireAuth (mutations only) ─► 401 when anonymous
//	   │
//	   ▼
//	Handler (retrieves identity via GetAuthInfo)
//
// The default SessionAuthProvider validates tokens against the session
// store; hosted deployments can inject any extensions.AuthProvider.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/realmsync/realmsync/pkg/extensions"
	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
)

// authInfoKey is the context key for storing AuthInfo. A package-specific
// string prevents collisions with other context values.
const authInfoKey = "realmsync_auth_info"

// SetAuthInfo stores the authenticated user info in the Gin context.
func SetAuthInfo(c *gin.Context, info *extensions.AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo retrieves the authenticated user info from the Gin context.
// Returns nil when the request is anonymous.
func GetAuthInfo(c *gin.Context) *extensions.AuthInfo {
	if info, exists := c.Get(authInfoKey); exists {
		if authInfo, ok := info.(*extensions.AuthInfo); ok {
			return authInfo
		}
	}
	return nil
}

// SessionAuthProvider validates bearer tokens against the session store
// and refreshes the session's last-seen timestamp on each hit.
type SessionAuthProvider struct {
	store *store.Store
}

var _ extensions.AuthProvider = (*SessionAuthProvider)(nil)

// NewSessionAuthProvider creates a provider over the given store.
func NewSessionAuthProvider(s *store.Store) *SessionAuthProvider {
	return &SessionAuthProvider{store: s}
}

// Validate resolves the token to its user. Unknown or empty tokens return
// ErrUnauthorized.
func (p *SessionAuthProvider) Validate(ctx context.Context, token string) (*extensions.AuthInfo, error) {
	if token == "" {
		return nil, extensions.ErrUnauthorized
	}

	var user *datatypes.User
	err := p.store.Update(ctx, func(tx *store.Tx) error {
		session, err := tx.GetSession(token)
		if err != nil {
			return err
		}
		if err := tx.TouchSession(token, time.Now().UnixMilli()); err != nil {
			return err
		}
		user, err = tx.GetUser(session.UserID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("unknown session token: %w", extensions.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	return &extensions.AuthInfo{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  []string{"owner"},
	}, nil
}

// OptionalAuth authenticates the request when a valid token is present and
// leaves the context anonymous otherwise. It never aborts.
func OptionalAuth(provider extensions.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		authInfo, err := provider.Validate(c.Request.Context(), token)
		if err == nil && authInfo != nil {
			SetAuthInfo(c, authInfo)
		}
		c.Next()
	}
}

// RequireAuth aborts anonymous requests with 401. Stack after OptionalAuth
// on mutation routes.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetAuthInfo(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}
		c.Next()
	}
}

// extractBearerToken parses "Authorization: Bearer <token>". The scheme is
// case-insensitive per RFC 7235. Returns "" when missing or malformed.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
