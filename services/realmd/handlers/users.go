// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/realmsync/realmsync/services/blob"
	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
)

// maxAvatarBytes bounds avatar uploads.
const maxAvatarBytes = 2 << 20 // 2 MiB

// newSessionToken returns an opaque 256-bit bearer token.
func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Register handles POST /v1/auth/register. The password is validated here
// and forwarded to the auth collaborator; it is never stored. A session
// token is issued immediately.
func (h *Handlers) Register(c *gin.Context) {
	var req datatypes.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}

	token, err := newSessionToken()
	if err != nil {
		respondError(c, err)
		return
	}

	now := nowMillis()
	user := &datatypes.User{
		ID:               newID(),
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		DisplayName:      req.DisplayName,
		UsagePeriodStart: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		if _, err := tx.UserByEmail(user.Email); err == nil {
			return fmt.Errorf("email already registered: %w", datatypes.ErrValidation)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.PutUser(user); err != nil {
			return err
		}
		return tx.PutSession(&datatypes.SessionToken{
			Token:      token,
			UserID:     user.ID,
			CreatedAt:  now,
			LastSeenAt: now,
		})
	})
	if err != nil {
		respondError(c, err)
		return
	}

	slog.Info("User registered", "user_id", user.ID)
	h.audit(c, "user.register", "user", user.ID, "success")
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// Login handles POST /v1/auth/login. Credential verification belongs to
// the auth collaborator; this endpoint exchanges a known email for a fresh
// session token.
func (h *Handlers) Login(c *gin.Context) {
	var req datatypes.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}

	token, err := newSessionToken()
	if err != nil {
		respondError(c, err)
		return
	}

	var user *datatypes.User
	now := nowMillis()
	err = h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		u, err := tx.UserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			return err
		}
		user = u
		return tx.PutSession(&datatypes.SessionToken{
			Token:      token,
			UserID:     u.ID,
			CreatedAt:  now,
			LastSeenAt: now,
		})
	})
	if errors.Is(err, store.ErrNotFound) {
		// Same response as a bad credential: no account enumeration.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, "user.login", "user", user.ID, "success")
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// Logout handles POST /v1/auth/logout and invalidates the presented
// session token. Always succeeds.
func (h *Handlers) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		token := strings.TrimSpace(parts[1])
		err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
			return tx.DeleteSession(token)
		})
		if err != nil {
			slog.Warn("Failed to delete session on logout", "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"logged_out": true})
}

// Me handles GET /v1/users/me. Anonymous callers read null.
func (h *Handlers) Me(c *gin.Context) {
	info := caller(c)
	if info == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	var user *datatypes.User
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		var err error
		user, err = tx.GetUser(info.UserID)
		return err
	})
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile handles PATCH /v1/users/me. An email change re-indexes the
// email lookup key in the same transaction.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req datatypes.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}

	userID := caller(c).UserID
	var user *datatypes.User
	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		u, err := tx.GetUser(userID)
		if err != nil {
			return err
		}
		if req.DisplayName != nil {
			u.DisplayName = *req.DisplayName
		}
		if req.Email != nil {
			newEmail := strings.ToLower(strings.TrimSpace(*req.Email))
			if newEmail != u.Email {
				if _, err := tx.UserByEmail(newEmail); err == nil {
					return fmt.Errorf("email already registered: %w", datatypes.ErrValidation)
				} else if !errors.Is(err, store.ErrNotFound) {
					return err
				}
				if err := tx.ReindexEmail(u.Email, newEmail, u.ID); err != nil {
					return err
				}
				u.Email = newEmail
			}
		}
		u.UpdatedAt = nowMillis()
		user = u
		return tx.PutUser(u)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Usage handles GET /v1/users/me/usage, reporting effective counters for
// the current period. Counters from an elapsed period read as zero.
func (h *Handlers) Usage(c *gin.Context) {
	info := caller(c)
	if info == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	var extractions, chats int
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		u, err := tx.GetUser(info.UserID)
		if err != nil {
			return err
		}
		extractions, chats = store.EffectiveUsage(u, nowMillis())
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"extractions":      extractions,
		"chats":            chats,
		"extraction_limit": h.Limits.Extractions,
		"chat_limit":       h.Limits.Chats,
	})
}

// UploadAvatar handles PUT /v1/users/me/avatar with a multipart image.
// Replaces any previous avatar under the same key.
func (h *Handlers) UploadAvatar(c *gin.Context) {
	userID := caller(c).UserID

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, fmt.Errorf("missing file field: %w", datatypes.ErrValidation))
		return
	}
	defer file.Close()
	if header.Size > maxAvatarBytes {
		respondError(c, fmt.Errorf("avatar exceeds %d bytes: %w", maxAvatarBytes, datatypes.ErrValidation))
		return
	}

	key := "avatars/" + userID
	_, err = h.Blobs.Put(c.Request.Context(), key, io.LimitReader(file, maxAvatarBytes), blob.PutOptions{
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		respondError(c, fmt.Errorf("store avatar: %w", err))
		return
	}

	err = h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		u, err := tx.GetUser(userID)
		if err != nil {
			return err
		}
		u.AvatarKey = key
		u.UpdatedAt = nowMillis()
		return tx.PutUser(u)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit(c, "user.avatar_upload", "user", userID, "success")
	c.JSON(http.StatusOK, gin.H{"avatar_key": key})
}

// GetAvatar handles GET /v1/users/me/avatar and streams the stored image.
func (h *Handlers) GetAvatar(c *gin.Context) {
	info := caller(c)
	if info == nil {
		c.Status(http.StatusNotFound)
		return
	}

	var key string
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		u, err := tx.GetUser(info.UserID)
		if err != nil {
			return err
		}
		key = u.AvatarKey
		return nil
	})
	if err != nil || key == "" {
		c.Status(http.StatusNotFound)
		return
	}

	bi, rc, err := h.Blobs.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		respondError(c, err)
		return
	}
	defer rc.Close()

	contentType := bi.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, bi.Size, contentType, rc, nil)
}
