// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/realmsync/realmsync/services/canon"
	"github.com/realmsync/realmsync/services/llm"
	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/realmd/observability"
	"github.com/realmsync/realmsync/services/store"
)

// checkInput is the material a pipeline run needs: resolved document text
// plus the canon context that will be shown to the model.
type checkInput struct {
	doc      *datatypes.Document
	content  string
	canon    []datatypes.CanonEntity
	canonCtx string
}

// loadCheckInput gathers document content and confirmed canon for one run.
func (h *Handlers) loadCheckInput(ctx context.Context, projectID, documentID string) (*checkInput, error) {
	in := &checkInput{}
	err := h.Store.View(ctx, func(tx *store.Tx) error {
		doc, err := tx.GetDocument(projectID, documentID)
		if err != nil {
			return err
		}
		in.doc = doc
		in.canon, err = canon.LoadCanon(tx, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}

	in.content, err = h.resolveContent(ctx, in.doc)
	if err != nil {
		return nil, err
	}
	in.canonCtx = llm.BuildCanonContext(in.canon)
	return in, nil
}

// RunCheck handles POST /v1/projects/:projectId/documents/:documentId/check.
// The document is compared against confirmed canon; discrepancies become
// open alerts. Identical inputs are served from the result cache.
func (h *Handlers) RunCheck(c *gin.Context) {
	projectID := c.Param("projectId")
	documentID := c.Param("documentId")

	if _, err := h.ownedProject(c.Request.Context(), caller(c).UserID, projectID); err != nil {
		respondError(c, err)
		return
	}

	start := time.Now()
	in, err := h.loadCheckInput(c.Request.Context(), projectID, documentID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, cached, err := h.checkedResult(c.Request.Context(), in)
	if err != nil {
		observability.ObserveCheck("check", "error", time.Since(start).Seconds())
		respondError(c, fmt.Errorf("continuity check: %w", err))
		return
	}

	created, err := h.Checker.CreateAlerts(c.Request.Context(), projectID, documentID, result, in.canon)
	if err != nil {
		observability.ObserveCheck("check", "error", time.Since(start).Seconds())
		respondError(c, err)
		return
	}

	status := "success"
	if cached {
		status = "cached"
	}
	observability.ObserveCheck("check", status, time.Since(start).Seconds())
	trace.SpanFromContext(c.Request.Context()).SetAttributes(
		attribute.Int("check.alerts_created", created),
		attribute.Bool("check.cached", cached),
	)
	if observability.DefaultMetrics != nil && created > 0 {
		for _, a := range result.Alerts {
			observability.DefaultMetrics.AlertsCreatedTotal.WithLabelValues(string(a.Type)).Inc()
		}
	}

	slog.Info("Continuity check completed", "project_id", projectID,
		"document_id", documentID, "alerts_created", created, "cached", cached)
	c.JSON(http.StatusOK, gin.H{
		"alerts_created": created,
		"summary":        result.Summary,
		"cached":         cached,
	})
}

// checkedResult returns the model's continuity verdict, consulting the
// result cache first.
func (h *Handlers) checkedResult(ctx context.Context, in *checkInput) (datatypes.CheckResult, bool, error) {
	key := h.Cache.Key("check", h.LLM.Model(), in.canonCtx, in.content)
	if result, ok := h.Cache.GetCheck(ctx, key); ok {
		observability.ObserveCacheEvent("check", "hit")
		return result, true, nil
	}
	observability.ObserveCacheEvent("check", "miss")

	result, err := h.LLM.CheckContinuity(ctx, llm.CheckRequest{
		DocumentTitle:   in.doc.Title,
		DocumentContent: in.content,
		CanonContext:    in.canonCtx,
	})
	if err != nil {
		return datatypes.CheckResult{}, false, err
	}
	h.Cache.PutCheck(ctx, key, result)
	return result, false, nil
}

// ProcessDocument handles
// POST /v1/projects/:projectId/documents/:documentId/process: one
// extraction run followed by a continuity check. Consumes one extraction
// from the caller's usage budget.
func (h *Handlers) ProcessDocument(c *gin.Context) {
	projectID := c.Param("projectId")
	documentID := c.Param("documentId")
	userID := caller(c).UserID

	if _, err := h.ownedProject(c.Request.Context(), userID, projectID); err != nil {
		respondError(c, err)
		return
	}

	// Charge the usage budget and mark the document processing up front.
	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		u, err := tx.GetUser(userID)
		if err != nil {
			return err
		}
		used, _ := store.EffectiveUsage(u, nowMillis())
		if h.Limits.Extractions > 0 && used >= h.Limits.Extractions {
			return fmt.Errorf("%d extractions this period: %w", used, ErrUsageLimit)
		}
		if _, err := tx.IncrementExtractionUsage(userID, nowMillis()); err != nil {
			return err
		}
		doc, err := tx.GetDocument(projectID, documentID)
		if err != nil {
			return err
		}
		doc.ProcessingStatus = datatypes.ProcessingInProgress
		doc.UpdatedAt = nowMillis()
		return tx.PutDocument(doc)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	start := time.Now()
	outcome, checkResult, alertsCreated, err := h.runPipeline(c.Request.Context(), projectID, documentID)

	finalStatus := datatypes.ProcessingCompleted
	if err != nil {
		finalStatus = datatypes.ProcessingFailed
	}
	if stErr := h.setProcessingStatus(c.Request.Context(), projectID, documentID, finalStatus); stErr != nil {
		slog.Warn("Failed to update processing status", "document_id", documentID, "error", stErr)
	}

	if err != nil {
		observability.ObserveCheck("extract", "error", time.Since(start).Seconds())
		respondError(c, fmt.Errorf("process document: %w", err))
		return
	}
	observability.ObserveCheck("extract", "success", time.Since(start).Seconds())
	trace.SpanFromContext(c.Request.Context()).SetAttributes(
		attribute.Int("process.entities_created", outcome.EntitiesCreated),
		attribute.Int("process.facts_created", outcome.FactsCreated),
		attribute.Int("process.alerts_created", alertsCreated),
	)

	slog.Info("Document processed", "project_id", projectID, "document_id", documentID,
		"entities_created", outcome.EntitiesCreated, "facts_created", outcome.FactsCreated,
		"alerts_created", alertsCreated)
	h.audit(c, "document.process", "document", documentID, "success")
	c.JSON(http.StatusOK, gin.H{
		"entities_created": outcome.EntitiesCreated,
		"facts_created":    outcome.FactsCreated,
		"alerts_created":   alertsCreated,
		"check_summary":    checkResult.Summary,
	})
}

// runPipeline executes extraction then continuity check for one document.
// Canon is loaded once, before extraction, so freshly proposed pending
// facts do not participate in their own check.
func (h *Handlers) runPipeline(ctx context.Context, projectID, documentID string) (
	canon.ExtractionOutcome, datatypes.CheckResult, int, error) {

	var outcome canon.ExtractionOutcome
	var checkResult datatypes.CheckResult

	in, err := h.loadCheckInput(ctx, projectID, documentID)
	if err != nil {
		return outcome, checkResult, 0, err
	}

	extraction, err := h.extractedResult(ctx, in)
	if err != nil {
		return outcome, checkResult, 0, fmt.Errorf("extraction: %w", err)
	}
	outcome, err = h.Checker.ApplyExtraction(ctx, projectID, documentID, extraction)
	if err != nil {
		return outcome, checkResult, 0, err
	}

	checkResult, _, err = h.checkedResult(ctx, in)
	if err != nil {
		return outcome, checkResult, 0, fmt.Errorf("continuity check: %w", err)
	}
	alertsCreated, err := h.Checker.CreateAlerts(ctx, projectID, documentID, checkResult, in.canon)
	if err != nil {
		return outcome, checkResult, 0, err
	}
	return outcome, checkResult, alertsCreated, nil
}

// extractedResult returns the model's entity/fact proposals, consulting
// the result cache first.
func (h *Handlers) extractedResult(ctx context.Context, in *checkInput) (datatypes.ExtractionResult, error) {
	key := h.Cache.Key("extract", h.LLM.Model(), in.canonCtx, in.content)
	if result, ok := h.Cache.GetExtraction(ctx, key); ok {
		observability.ObserveCacheEvent("extract", "hit")
		return result, nil
	}
	observability.ObserveCacheEvent("extract", "miss")

	result, err := h.LLM.Extract(ctx, llm.ExtractRequest{
		DocumentTitle:   in.doc.Title,
		DocumentContent: in.content,
		CanonContext:    in.canonCtx,
	})
	if err != nil {
		return datatypes.ExtractionResult{}, err
	}
	h.Cache.PutExtraction(ctx, key, result)
	return result, nil
}

func (h *Handlers) setProcessingStatus(ctx context.Context, projectID, documentID string,
	status datatypes.ProcessingStatus) error {

	return h.Store.Update(ctx, func(tx *store.Tx) error {
		doc, err := tx.GetDocument(projectID, documentID)
		if err != nil {
			return err
		}
		doc.ProcessingStatus = status
		doc.UpdatedAt = nowMillis()
		return tx.PutDocument(doc)
	})
}
