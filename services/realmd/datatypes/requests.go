// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Request bodies for the HTTP API. Binding tags are enforced by gin's
// validator (go-playground/validator); semantic checks beyond tag reach
// (enum membership, name length after trimming) happen in the handlers.

type CreateProjectRequest struct {
	Name string `json:"name" binding:"required,notblank,max=80"`
	Kind string `json:"kind" binding:"required"`
}

type UpdateProjectRequest struct {
	Name              *string `json:"name,omitempty" binding:"omitempty,max=80"`
	Kind              *string `json:"kind,omitempty"`
	RevealedToViewers *bool   `json:"revealed_to_viewers,omitempty"`
}

type CreateDocumentRequest struct {
	Title   string `json:"title" binding:"required,notblank,max=80"`
	Content string `json:"content"`
}

type UpdateDocumentRequest struct {
	Title   *string `json:"title,omitempty" binding:"omitempty,max=80"`
	Content *string `json:"content,omitempty"`
}

type ReorderDocumentsRequest struct {
	// DocumentIDs lists every document of the project in the new order.
	DocumentIDs []string `json:"document_ids" binding:"required,min=1"`
}

type CreateEntityRequest struct {
	Name             string   `json:"name" binding:"required,notblank,max=80"`
	Kind             string   `json:"kind" binding:"required"`
	Aliases          []string `json:"aliases,omitempty"`
	FirstMentionedIn string   `json:"first_mentioned_in,omitempty"`
}

type UpdateEntityRequest struct {
	Name    *string   `json:"name,omitempty" binding:"omitempty,max=80"`
	Aliases *[]string `json:"aliases,omitempty"`
	Status  *string   `json:"status,omitempty"`
}

type CreateFactRequest struct {
	EntityID        string  `json:"entity_id" binding:"required"`
	DocumentID      string  `json:"document_id" binding:"required"`
	Subject         string  `json:"subject" binding:"required"`
	Predicate       string  `json:"predicate" binding:"required"`
	Object          string  `json:"object" binding:"required"`
	Confidence      float64 `json:"confidence" binding:"gte=0,lte=1"`
	EvidenceSnippet string  `json:"evidence_snippet,omitempty"`
}

type UpdateFactStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ResolveWithCanonUpdateRequest drives the compound resolve operation:
// the target fact's object is replaced with NewValue, its evidence snippet
// and the source document content are patched to match, the document drops
// back to pending, and the alert resolves.
type ResolveWithCanonUpdateRequest struct {
	FactID   string `json:"fact_id" binding:"required"`
	NewValue string `json:"new_value" binding:"required"`
}

type CreateNoteRequest struct {
	EntityID string `json:"entity_id,omitempty"`
	Body     string `json:"body" binding:"required"`
}

type UpdateNoteRequest struct {
	Body string `json:"body" binding:"required"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty" binding:"omitempty,max=80"`
	Email       *string `json:"email,omitempty" binding:"omitempty,email"`
}

// RegisterRequest carries the fields for account creation. The password is
// validated at this boundary and handed to the auth collaborator; it is
// never persisted by this service.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name" binding:"required,max=80"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type ChatRequest struct {
	ProjectID string        `json:"project_id" binding:"required"`
	Messages  []ChatMessage `json:"messages" binding:"required,min=1,dive"`
}

type CheckoutRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}
