// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/realmsync/realmsync/pkg/extensions"
	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newStoreWithSession(t *testing.T) (*store.Store, string) {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Now().UnixMilli()
	err = s.Update(context.Background(), func(tx *store.Tx) error {
		user := &datatypes.User{
			ID:        "user-1",
			Email:     "mira@example.com",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.PutUser(user); err != nil {
			return err
		}
		return tx.PutSession(&datatypes.SessionToken{
			Token:      "tok-1",
			UserID:     "user-1",
			CreatedAt:  now,
			LastSeenAt: now,
		})
	})
	require.NoError(t, err)
	return s, "tok-1"
}

func TestSessionAuthProvider_Validate(t *testing.T) {
	s, token := newStoreWithSession(t)
	provider := NewSessionAuthProvider(s)

	info, err := provider.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", info.UserID)
	assert.Equal(t, "mira@example.com", info.Email)

	_, err = provider.Validate(context.Background(), "bogus")
	assert.ErrorIs(t, err, extensions.ErrUnauthorized)

	_, err = provider.Validate(context.Background(), "")
	assert.ErrorIs(t, err, extensions.ErrUnauthorized)
}

func TestOptionalAuth_QueryStaysAnonymous(t *testing.T) {
	s, _ := newStoreWithSession(t)
	provider := NewSessionAuthProvider(s)

	router := gin.New()
	router.Use(OptionalAuth(provider))
	router.GET("/whoami", func(c *gin.Context) {
		info := GetAuthInfo(c)
		if info == nil {
			c.JSON(http.StatusOK, gin.H{"user": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": info.UserID})
	})

	// No token: request succeeds as anonymous.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())

	// Invalid token: still a 200, still anonymous.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer nope")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())
}

func TestRequireAuth_RejectsAnonymousMutations(t *testing.T) {
	s, token := newStoreWithSession(t)
	provider := NewSessionAuthProvider(s)

	router := gin.New()
	router.Use(OptionalAuth(provider))
	router.POST("/things", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"user": GetAuthInfo(c).UserID})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/things", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/things", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer ABC123", "ABC123"},
		{"Basic dXNlcg==", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			c.Request.Header.Set("Authorization", tc.header)
		}
		assert.Equal(t, tc.want, extractBearerToken(c), "header %q", tc.header)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different caller has its own bucket.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
