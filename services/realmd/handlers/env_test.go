// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/realmsync/realmsync/services/blob"
	"github.com/realmsync/realmsync/services/canon"
	"github.com/realmsync/realmsync/services/llm"
	"github.com/realmsync/realmsync/services/realmd/handlers"
	"github.com/realmsync/realmsync/services/realmd/middleware"
	"github.com/realmsync/realmsync/services/realmd/routes"
	"github.com/realmsync/realmsync/services/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// env is a fully wired in-memory service surface for handler tests: the
// real router with session auth, an in-memory store, a memory blob store,
// and a static LLM client whose canned responses the test controls.
type env struct {
	router *gin.Engine
	store  *store.Store
	llm    *llm.StaticClient
	h      *handlers.Handlers
}

func newEnv(t *testing.T) *env {
	t.Helper()

	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	client := &llm.StaticClient{}
	h := handlers.New(s, canon.NewChecker(s), client,
		llm.NewResultCache(s, 0), blob.NewMemory())

	router := gin.New()
	routes.SetupRoutes(router, h, middleware.NewSessionAuthProvider(s), nil)

	return &env{router: router, store: s, llm: client, h: h}
}

// do issues one request against the router. A non-nil body is sent as
// JSON; a non-empty token is sent as a bearer credential.
func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var registerSeq int

// register creates a fresh user and returns its session token.
func (e *env) register(t *testing.T) string {
	t.Helper()
	registerSeq++
	w := e.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"email":        fmt.Sprintf("writer%d@example.com", registerSeq),
		"display_name": fmt.Sprintf("Writer %d", registerSeq),
		"password":     "quill and ink",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct {
		Token string `json:"token"`
	}](t, w).Token
}

// createProject makes a project owned by the token's user and returns its ID.
func (e *env) createProject(t *testing.T, token, name string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/projects", token,
		gin.H{"name": name, "kind": "novel"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct {
		ID string `json:"id"`
	}](t, w).ID
}

// createDocument adds a pasted-text document and returns its ID.
func (e *env) createDocument(t *testing.T, token, projectID, title, content string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/projects/"+projectID+"/documents", token,
		gin.H{"title": title, "content": content})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct {
		ID string `json:"id"`
	}](t, w).ID
}
