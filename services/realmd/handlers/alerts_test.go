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

// seedAlert runs a continuity check that produces one open alert and
// returns its ID together with the project and document IDs.
func seedAlert(t *testing.T, e *env, token string) (projectID, docID, alertID string) {
	t.Helper()
	projectID = e.createProject(t, token, "Alerted")
	docID = e.createDocument(t, token, projectID, "Chapter 2", "Her eyes were brown.")

	e.llm.CheckResult = datatypes.CheckResult{
		Alerts: []datatypes.ProposedAlert{{
			Type:     datatypes.AlertContradiction,
			Severity: datatypes.SeverityError,
			Title:    "Eye color contradicts canon",
		}},
	}
	w := e.do(t, http.MethodPost,
		"/v1/projects/"+projectID+"/documents/"+docID+"/check", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/v1/projects/"+projectID+"/alerts", token, nil)
	alerts := decode[[]datatypes.Alert](t, w)
	require.Len(t, alerts, 1)
	return projectID, docID, alerts[0].ID
}

func TestAlertLifecycle(t *testing.T) {
	e := newEnv(t)
	token := e.register(t)
	projectID, _, alertID := seedAlert(t, e, token)
	base := "/v1/projects/" + projectID + "/alerts/" + alertID

	w := e.do(t, http.MethodPost, base+"/resolve", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"resolved"}`, w.Body.String())

	w = e.do(t, http.MethodPost, base+"/reopen", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"open"}`, w.Body.String())

	w = e.do(t, http.MethodPost, base+"/dismiss", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"dismissed"}`, w.Body.String())

	// Dismissed alerts drop out of the default open listing.
	w = e.do(t, http.MethodGet, "/v1/projects/"+projectID+"/alerts?status=open", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = e.do(t, http.MethodDelete, base, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":true}`, w.Body.String())
}

func TestResolveAlertAffectsProjectStats(t *testing.T) {
	e := newEnv(t)
	token := e.register(t)
	projectID, _, alertID := seedAlert(t, e, token)

	w := e.do(t, http.MethodGet, "/v1/projects/"+projectID, token, nil)
	p := decode[datatypes.Project](t, w)
	require.Equal(t, 1, p.Stats.AlertCount)

	w = e.do(t, http.MethodPost,
		"/v1/projects/"+projectID+"/alerts/"+alertID+"/resolve", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/v1/projects/"+projectID, token, nil)
	p = decode[datatypes.Project](t, w)
	assert.Equal(t, 0, p.Stats.AlertCount, "alert count tracks open alerts")
}

func TestResolveWithCanonUpdate(t *testing.T) {
	e := newEnv(t)
	token := e.register(t)
	projectID := e.createProject(t, token, "Canon Update")
	entityID := e.createEntity(t, token, projectID, "Elara", "character")
	docID := e.createDocument(t, token, projectID, "Chapter 1", "Elara has green eyes.")

	w := e.do(t, http.MethodPost, "/v1/projects/"+projectID+"/facts", token, gin.H{
		"entity_id":   entityID,
		"document_id": docID,
		"subject":     "Elara",
		"predicate":   "has",
		"object":      "green eyes",
		"confidence":  1.0,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	factID := decode[datatypes.Fact](t, w).ID

	// A check that pins the contradiction to the canon entity links the
	// alert to the existing fact.
	e.llm.CheckResult = datatypes.CheckResult{
		Alerts: []datatypes.ProposedAlert{{
			Type:             datatypes.AlertContradiction,
			Severity:         datatypes.SeverityError,
			Title:            "Eye color contradicts canon",
			AffectedEntities: []string{"Elara"},
		}},
	}
	w = e.do(t, http.MethodPost,
		"/v1/projects/"+projectID+"/documents/"+docID+"/check", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/v1/projects/"+projectID+"/alerts", token, nil)
	alerts := decode[[]datatypes.Alert](t, w)
	require.Len(t, alerts, 1)

	w = e.do(t, http.MethodPost,
		"/v1/projects/"+projectID+"/alerts/"+alerts[0].ID+"/resolve-with-canon-update",
		token, gin.H{"fact_id": factID, "new_value": "brown eyes"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The fact now carries the corrected value and the alert is resolved.
	w = e.do(t, http.MethodGet, "/v1/projects/"+projectID+"/facts?entity_id="+entityID, token, nil)
	facts := decode[[]datatypes.Fact](t, w)
	require.Len(t, facts, 1)
	assert.Equal(t, "brown eyes", facts[0].Object)

	w = e.do(t, http.MethodGet,
		"/v1/projects/"+projectID+"/alerts/"+alerts[0].ID, token, nil)
	alert := decode[datatypes.Alert](t, w)
	assert.Equal(t, datatypes.AlertResolved, alert.Status)
}
