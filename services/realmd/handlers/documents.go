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
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/realmsync/realmsync/services/blob"
	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/realmsync/realmsync/services/store"
)

// maxUploadBytes bounds multipart document uploads.
const maxUploadBytes = 10 << 20 // 10 MiB

// CreateDocument handles POST /v1/projects/:projectId/documents with inline
// pasted content. The new document is appended at the end of the order.
func (h *Handlers) CreateDocument(c *gin.Context) {
	var req datatypes.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}
	if err := datatypes.ValidateName(req.Title); err != nil {
		respondError(c, err)
		return
	}

	doc, err := h.insertDocument(c, c.Param("projectId"), req.Title, req.Content, "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// UploadDocument handles POST /v1/projects/:projectId/documents/upload with
// a multipart file. The payload goes to blob storage; the document record
// carries the blob key instead of inline content.
func (h *Handlers) UploadDocument(c *gin.Context) {
	projectID := c.Param("projectId")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, fmt.Errorf("missing file field: %w", datatypes.ErrValidation))
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		respondError(c, fmt.Errorf("file exceeds %d bytes: %w", maxUploadBytes, datatypes.ErrValidation))
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	if err := datatypes.ValidateName(title); err != nil {
		respondError(c, err)
		return
	}

	// Ownership check before touching blob storage.
	if _, err := h.ownedProject(c.Request.Context(), caller(c).UserID, projectID); err != nil {
		respondError(c, err)
		return
	}

	key := fmt.Sprintf("documents/%s/%s", projectID, newID())
	_, err = h.Blobs.Put(c.Request.Context(), key, io.LimitReader(file, maxUploadBytes), blob.PutOptions{
		ContentType: header.Header.Get("Content-Type"),
		Metadata:    map[string]string{"filename": header.Filename},
	})
	if err != nil {
		respondError(c, fmt.Errorf("store upload: %w", err))
		return
	}

	doc, err := h.insertDocument(c, projectID, title, "", key)
	if err != nil {
		// Orphaned blob; removal is best effort.
		if _, delErr := h.Blobs.Delete(c.Request.Context(), key); delErr != nil {
			slog.Warn("Failed to remove orphaned upload", "key", key, "error", delErr)
		}
		respondError(c, err)
		return
	}

	slog.Info("Document uploaded", "project_id", projectID, "document_id", doc.ID,
		"blob_key", key, "size_bytes", header.Size)
	c.JSON(http.StatusCreated, doc)
}

// insertDocument creates the record with ownership re-check and counter
// bump in one transaction.
func (h *Handlers) insertDocument(c *gin.Context, projectID, title, content, blobKey string) (*datatypes.Document, error) {
	userID := caller(c).UserID
	now := nowMillis()
	doc := &datatypes.Document{
		ID:               newID(),
		ProjectID:        projectID,
		Title:            title,
		Content:          content,
		BlobKey:          blobKey,
		ProcessingStatus: datatypes.ProcessingPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		existing, err := tx.DocumentsByProject(projectID)
		if err != nil {
			return err
		}
		doc.OrderIndex = len(existing)
		if err := tx.PutDocument(doc); err != nil {
			return err
		}
		return tx.AdjustStats(projectID, store.StatsDelta{Documents: 1})
	})
	if err != nil {
		return nil, err
	}
	h.audit(c, "document.create", "document", doc.ID, "success")
	return doc, nil
}

// ListDocuments handles GET /v1/projects/:projectId/documents, ordered by
// OrderIndex.
func (h *Handlers) ListDocuments(c *gin.Context) {
	info := caller(c)
	if info == nil {
		c.JSON(http.StatusOK, []datatypes.Document{})
		return
	}
	projectID := c.Param("projectId")
	if _, err := h.ownedProject(c.Request.Context(), info.UserID, projectID); err != nil {
		c.JSON(http.StatusOK, []datatypes.Document{})
		return
	}

	var docs []datatypes.Document
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		var err error
		docs, err = tx.DocumentsByProject(projectID)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].OrderIndex < docs[j].OrderIndex })
	if docs == nil {
		docs = []datatypes.Document{}
	}
	c.JSON(http.StatusOK, docs)
}

// GetDocument handles GET /v1/projects/:projectId/documents/:documentId.
// Uploaded documents have their content resolved from blob storage.
func (h *Handlers) GetDocument(c *gin.Context) {
	info := caller(c)
	if info == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	projectID := c.Param("projectId")
	if _, err := h.ownedProject(c.Request.Context(), info.UserID, projectID); err != nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	var doc *datatypes.Document
	err := h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		var err error
		doc, err = tx.GetDocument(projectID, c.Param("documentId"))
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, nil)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	content, err := h.resolveContent(c.Request.Context(), doc)
	if err != nil {
		respondError(c, err)
		return
	}
	doc.Content = content
	c.JSON(http.StatusOK, doc)
}

// resolveContent returns the document's text, reading from blob storage
// when the record carries a blob key instead of inline content.
func (h *Handlers) resolveContent(ctx context.Context, doc *datatypes.Document) (string, error) {
	if doc.BlobKey == "" {
		return doc.Content, nil
	}
	_, rc, err := h.Blobs.Get(ctx, doc.BlobKey)
	if err != nil {
		return "", fmt.Errorf("read document blob %s: %w", doc.BlobKey, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxUploadBytes))
	if err != nil {
		return "", fmt.Errorf("read document blob %s: %w", doc.BlobKey, err)
	}
	return string(data), nil
}

// UpdateDocument handles PATCH /v1/projects/:projectId/documents/:documentId.
// A content change drops the document back to processing status pending so
// the next extraction run picks it up.
func (h *Handlers) UpdateDocument(c *gin.Context) {
	var req datatypes.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}
	if req.Title != nil {
		if err := datatypes.ValidateName(*req.Title); err != nil {
			respondError(c, err)
			return
		}
	}

	userID := caller(c).UserID
	projectID := c.Param("projectId")
	var doc *datatypes.Document
	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		d, err := tx.GetDocument(projectID, c.Param("documentId"))
		if err != nil {
			return err
		}
		if req.Title != nil {
			d.Title = *req.Title
		}
		if req.Content != nil {
			d.Content = *req.Content
			d.BlobKey = ""
			d.ProcessingStatus = datatypes.ProcessingPending
		}
		d.UpdatedAt = nowMillis()
		doc = d
		return tx.PutDocument(d)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ReorderDocuments handles PUT /v1/projects/:projectId/documents/order.
// The request must name every document of the project exactly once.
func (h *Handlers) ReorderDocuments(c *gin.Context) {
	var req datatypes.ReorderDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}

	userID := caller(c).UserID
	projectID := c.Param("projectId")
	err := h.Store.Update(c.Request.Context(), func(tx *store.Tx) error {
		p, err := tx.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != userID {
			return store.ErrNotFound
		}
		docs, err := tx.DocumentsByProject(projectID)
		if err != nil {
			return err
		}
		if len(docs) != len(req.DocumentIDs) {
			return fmt.Errorf("order must list all %d documents: %w", len(docs), datatypes.ErrValidation)
		}
		byID := make(map[string]datatypes.Document, len(docs))
		for _, d := range docs {
			byID[d.ID] = d
		}
		now := nowMillis()
		for idx, id := range req.DocumentIDs {
			d, ok := byID[id]
			if !ok {
				return fmt.Errorf("unknown document %s in order: %w", id, datatypes.ErrValidation)
			}
			delete(byID, id)
			d.OrderIndex = idx
			d.UpdatedAt = now
			if err := tx.PutDocument(&d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reordered": len(req.DocumentIDs)})
}

// DeleteDocument handles DELETE /v1/projects/:projectId/documents/:documentId.
// Facts extracted from the document and alerts left without live evidence
// cascade with it.
func (h *Handlers) DeleteDocument(c *gin.Context) {
	projectID := c.Param("projectId")
	documentID := c.Param("documentId")
	userID := caller(c).UserID

	if _, err := h.ownedProject(c.Request.Context(), userID, projectID); err != nil {
		respondError(c, err)
		return
	}

	// Capture the blob key before the record goes away.
	var blobKey string
	_ = h.Store.View(c.Request.Context(), func(tx *store.Tx) error {
		if d, err := tx.GetDocument(projectID, documentID); err == nil {
			blobKey = d.BlobKey
		}
		return nil
	})

	result, err := h.Checker.DeleteDocument(c.Request.Context(), projectID, documentID)
	if err != nil {
		respondError(c, err)
		return
	}
	if blobKey != "" {
		if _, err := h.Blobs.Delete(c.Request.Context(), blobKey); err != nil {
			slog.Warn("Failed to delete document blob", "key", blobKey, "error", err)
		}
	}

	slog.Info("Document deleted", "project_id", projectID, "document_id", documentID,
		"facts_deleted", result.FactsDeleted, "alerts_deleted", result.AlertsDeleted)
	h.audit(c, "document.delete", "document", documentID, "success")
	c.JSON(http.StatusOK, result)
}
