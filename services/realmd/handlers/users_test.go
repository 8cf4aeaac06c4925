// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
)

func TestRegisterLoginMe(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"email":        "Morgan@Example.com",
		"display_name": "Morgan",
		"password":     "a long password",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[struct {
		User  datatypes.User `json:"user"`
		Token string         `json:"token"`
	}](t, w)
	assert.Equal(t, "morgan@example.com", reg.User.Email, "email is normalized")
	assert.NotEmpty(t, reg.Token)

	// Login issues a fresh session for the normalized address.
	w = e.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email":    "morgan@example.com",
		"password": "a long password",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[struct {
		Token string `json:"token"`
	}](t, w)
	assert.NotEqual(t, reg.Token, login.Token)

	w = e.do(t, http.MethodGet, "/v1/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		User *datatypes.User `json:"user"`
	}](t, w)
	require.NotNil(t, me.User)
	assert.Equal(t, "Morgan", me.User.DisplayName)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e := newEnv(t)

	body := gin.H{"email": "dup@example.com", "display_name": "First", "password": "a long password"}
	w := e.do(t, http.MethodPost, "/v1/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/v1/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestLoginUnknownEmailIsUnauthorized(t *testing.T) {
	e := newEnv(t)

	// Same status and body shape as a bad credential; no account
	// enumeration through the login endpoint.
	w := e.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email":    "nobody@example.com",
		"password": "whatever works",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, w.Body.String())
}

func TestLogoutInvalidatesSession(t *testing.T) {
	e := newEnv(t)
	token := e.register(t)

	w := e.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The token no longer authenticates mutations.
	w = e.do(t, http.MethodPost, "/v1/projects", token, gin.H{"name": "x", "kind": "novel"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeAnonymousIsNull(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/v1/users/me", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())
}

func TestUpdateProfileEmailChange(t *testing.T) {
	e := newEnv(t)
	token := e.register(t)

	w := e.do(t, http.MethodPatch, "/v1/users/me", token, gin.H{
		"display_name": "Renamed",
		"email":        "renamed@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The new address works for login, so the email index moved too.
	w = e.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email":    "renamed@example.com",
		"password": "quill and ink",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUsageEndpoint(t *testing.T) {
	e := newEnv(t)
	token := e.register(t)

	w := e.do(t, http.MethodGet, "/v1/users/me/usage", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	usage := decode[struct {
		Extractions     int `json:"extractions"`
		Chats           int `json:"chats"`
		ExtractionLimit int `json:"extraction_limit"`
		ChatLimit       int `json:"chat_limit"`
	}](t, w)
	assert.Zero(t, usage.Extractions)
	assert.Zero(t, usage.Chats)
}
