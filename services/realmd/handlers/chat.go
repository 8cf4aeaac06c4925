// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/realmsync/realmsync/services/canon"
	"github.com/realmsync/realmsync/services/llm"
	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/realmd/observability"
	"github.com/realmsync/realmsync/services/store"
)

// chatKeepAliveInterval paces SSE comment pings during slow generations.
const chatKeepAliveInterval = 15 * time.Second

// ChatStream handles POST /v1/chat/stream: an SSE chat response grounded
// in the project's confirmed canon. Consumes one chat from the caller's
// usage budget.
func (h *Handlers) ChatStream(c *gin.Context) {
	var req datatypes.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}

	userID := caller(c).UserID
	if _, err := h.ownedProject(c.Request.Context(), userID, req.ProjectID); err != nil {
		respondError(c, err)
		return
	}

	// Charge the budget before opening the stream so limit rejections are
	// plain JSON, not half-open SSE streams.
	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		u, err := tx.GetUser(userID)
		if err != nil {
			return err
		}
		_, used := store.EffectiveUsage(u, nowMillis())
		if h.Limits.Chats > 0 && used >= h.Limits.Chats {
			return fmt.Errorf("%d chats this period: %w", used, ErrUsageLimit)
		}
		_, err = tx.IncrementChatUsage(userID, nowMillis())
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}

	var canonCtx string
	err = h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		entities, err := canon.LoadCanon(tx, req.ProjectID)
		if err != nil {
			return err
		}
		canonCtx = llm.BuildCanonContext(entities)
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	SetSSEHeaders(c.Writer)
	writer, err := NewSSEWriter(c.Writer)
	if err != nil {
		respondError(c, err)
		return
	}

	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.ActiveStreams.Inc()
		defer observability.DefaultMetrics.ActiveStreams.Dec()
	}

	if err := writer.WriteStatus("Consulting canon..."); err != nil {
		return
	}

	// Keepalive pings until the stream finishes.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(chatKeepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := writer.WriteKeepAlive(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	ctx := c.Request.Context()
	var full strings.Builder
	streamErr := h.LLM.ChatStream(ctx, llm.ChatStreamRequest{
		Messages:     req.Messages,
		CanonContext: canonCtx,
	}, func(token string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		full.WriteString(token)
		if observability.DefaultMetrics != nil {
			observability.DefaultMetrics.TokensTotal.WithLabelValues(h.LLM.Model()).Inc()
		}
		return writer.WriteToken(token)
	})

	if streamErr != nil {
		status := "error"
		if errors.Is(streamErr, context.Canceled) {
			status = "disconnect"
			if observability.DefaultMetrics != nil {
				observability.DefaultMetrics.ClientDisconnectsTotal.Inc()
			}
			slog.Info("Chat client disconnected", "project_id", req.ProjectID, "user_id", userID)
		} else {
			slog.Error("Chat stream failed", "project_id", req.ProjectID, "error", streamErr)
			_ = writer.WriteError("chat generation failed")
		}
		if observability.DefaultMetrics != nil {
			observability.DefaultMetrics.RequestsTotal.WithLabelValues(status).Inc()
		}
		return
	}

	_ = writer.WriteFinal(full.String())
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.RequestsTotal.WithLabelValues("success").Inc()
	}
	h.audit(c, "chat.stream", "project", req.ProjectID, "success")
}
