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

func TestNoteLifecycle(t *testing.T) {
	e := newEnv(t)
	token := e.register(t)
	projectID := e.createProject(t, token, "Annotated")

	w := e.do(t, http.MethodPost, "/v1/projects/"+projectID+"/notes", token,
		gin.H{"body": "Check the timeline of the ford crossing."})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	note := decode[datatypes.Note](t, w)
	assert.NotEmpty(t, note.AuthorID)

	w = e.do(t, http.MethodPatch, "/v1/projects/"+projectID+"/notes/"+note.ID, token,
		gin.H{"body": "Timeline verified."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Timeline verified.", decode[datatypes.Note](t, w).Body)

	w = e.do(t, http.MethodDelete, "/v1/projects/"+projectID+"/notes/"+note.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":true}`, w.Body.String())

	w = e.do(t, http.MethodGet, "/v1/projects/"+projectID+"/notes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateNoteRejectsUnknownEntity(t *testing.T) {
	e := newEnv(t)
	token := e.register(t)
	projectID := e.createProject(t, token, "Annotated")

	w := e.do(t, http.MethodPost, "/v1/projects/"+projectID+"/notes", token,
		gin.H{"entity_id": "no-such-entity", "body": "orphan"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListNotesEntityFilter(t *testing.T) {
	e := newEnv(t)
	token := e.register(t)
	projectID := e.createProject(t, token, "Annotated")
	entityID := e.createEntity(t, token, projectID, "Elara", "character")

	w := e.do(t, http.MethodPost, "/v1/projects/"+projectID+"/notes", token,
		gin.H{"body": "project-wide note"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = e.do(t, http.MethodPost, "/v1/projects/"+projectID+"/notes", token,
		gin.H{"entity_id": entityID, "body": "about Elara"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodGet,
		"/v1/projects/"+projectID+"/notes?entity_id="+entityID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	notes := decode[[]datatypes.Note](t, w)
	require.Len(t, notes, 1)
	assert.Equal(t, "about Elara", notes[0].Body)
}
