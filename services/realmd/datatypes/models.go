// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the persisted records and wire types shared by
// the Realm Sync store, the continuity checker, and the HTTP handlers.
//
// All records carry a uuid string ID and unix-millisecond timestamps. The
// denormalized ProjectStats block is a cache of live child-row counts and is
// maintained inside the same store transaction as the child writes.
package datatypes

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks a field-level validation failure. Handlers map it to
// HTTP 400.
var ErrValidation = errors.New("validation failed")

// MaxNameLength bounds project, entity, and document names.
const MaxNameLength = 80

// =============================================================================
// Enumerations
// =============================================================================

// ProjectKind categorizes a worldbuilding project.
type ProjectKind string

const (
	ProjectNovel    ProjectKind = "novel"
	ProjectCampaign ProjectKind = "campaign"
	ProjectSeries   ProjectKind = "series"
	ProjectOther    ProjectKind = "other"
)

// ProcessingStatus tracks a document through the extraction pipeline.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// EntityKind is the type of a canon entity.
type EntityKind string

const (
	EntityCharacter EntityKind = "character"
	EntityLocation  EntityKind = "location"
	EntityItem      EntityKind = "item"
	EntityConcept   EntityKind = "concept"
	EntityEvent     EntityKind = "event"
)

// ReviewStatus is the confirmation state of an extracted entity or fact.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewConfirmed ReviewStatus = "confirmed"
	ReviewRejected  ReviewStatus = "rejected"
)

// AlertType categorizes a continuity alert.
type AlertType string

const (
	AlertContradiction AlertType = "contradiction"
	AlertTimeline      AlertType = "timeline"
	AlertAmbiguity     AlertType = "ambiguity"
)

// AlertSeverity is the weight of a continuity alert.
type AlertSeverity string

const (
	SeverityError   AlertSeverity = "error"
	SeverityWarning AlertSeverity = "warning"
)

// AlertStatus is the lifecycle state of an alert.
//
// Transitions: open → resolved, open → dismissed, resolved/dismissed → open
// (reopen). Any state may be deleted. Each transition that leaves open
// decrements the owning project's AlertCount exactly once; reopen increments
// it once. Redundant transitions are no-ops.
type AlertStatus string

const (
	AlertOpen      AlertStatus = "open"
	AlertResolved  AlertStatus = "resolved"
	AlertDismissed AlertStatus = "dismissed"
)

// =============================================================================
// Persisted Records
// =============================================================================

// User is an account record. Credential material lives with the external
// auth collaborator; the record stores profile data and usage counters only.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarKey   string `json:"avatar_key,omitempty"`
	Demo        bool   `json:"demo"`

	// Usage counters for the current billing period. Counters whose
	// UsagePeriodStart is older than the reset interval read as zero.
	ExtractionCount  int   `json:"extraction_count"`
	ChatCount        int   `json:"chat_count"`
	UsagePeriodStart int64 `json:"usage_period_start"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// SessionToken maps an opaque bearer token to a user. Tokens not seen for
// the stale window are removed by the weekly cleanup job.
type SessionToken struct {
	Token      string `json:"token"`
	UserID     string `json:"user_id"`
	CreatedAt  int64  `json:"created_at"`
	LastSeenAt int64  `json:"last_seen_at"`
}

// ProjectStats is the denormalized counter block on a Project.
//
// Invariant: every field equals the live count of the corresponding child
// records, and no field ever goes negative.
type ProjectStats struct {
	DocumentCount int `json:"document_count"`
	EntityCount   int `json:"entity_count"`
	FactCount     int `json:"fact_count"`
	AlertCount    int `json:"alert_count"`
	NoteCount     int `json:"note_count"`
}

// Project is the root container for a body of canon.
type Project struct {
	ID                string       `json:"id"`
	OwnerID           string       `json:"owner_id"`
	Name              string       `json:"name"`
	Kind              ProjectKind  `json:"kind"`
	RevealedToViewers bool         `json:"revealed_to_viewers"`
	Stats             ProjectStats `json:"stats"`
	CreatedAt         int64        `json:"created_at"`
	UpdatedAt         int64        `json:"updated_at"`
}

// Document is a narrative source, ordered within its project. Content is
// stored inline for pasted text or referenced via BlobKey for uploads.
type Document struct {
	ID               string           `json:"id"`
	ProjectID        string           `json:"project_id"`
	Title            string           `json:"title"`
	Content          string           `json:"content,omitempty"`
	BlobKey          string           `json:"blob_key,omitempty"`
	OrderIndex       int              `json:"order_index"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	CreatedAt        int64            `json:"created_at"`
	UpdatedAt        int64            `json:"updated_at"`
}

// Entity is a named element of canon.
type Entity struct {
	ID               string       `json:"id"`
	ProjectID        string       `json:"project_id"`
	Name             string       `json:"name"`
	Kind             EntityKind   `json:"kind"`
	Aliases          []string     `json:"aliases,omitempty"`
	Status           ReviewStatus `json:"status"`
	FirstMentionedIn string       `json:"first_mentioned_in,omitempty"`
	CreatedAt        int64        `json:"created_at"`
	UpdatedAt        int64        `json:"updated_at"`
}

// MatchesName reports whether name equals the entity's name or any alias,
// case-insensitively.
func (e *Entity) MatchesName(name string) bool {
	if strings.EqualFold(e.Name, name) {
		return true
	}
	for _, alias := range e.Aliases {
		if strings.EqualFold(alias, name) {
			return true
		}
	}
	return false
}

// Fact is a subject/predicate/object triple extracted from one document and
// attached to one entity.
type Fact struct {
	ID              string       `json:"id"`
	ProjectID       string       `json:"project_id"`
	EntityID        string       `json:"entity_id"`
	DocumentID      string       `json:"document_id"`
	Subject         string       `json:"subject"`
	Predicate       string       `json:"predicate"`
	Object          string       `json:"object"`
	Confidence      float64      `json:"confidence"`
	EvidenceSnippet string       `json:"evidence_snippet,omitempty"`
	Status          ReviewStatus `json:"status"`
	CreatedAt       int64        `json:"created_at"`
	UpdatedAt       int64        `json:"updated_at"`
}

// EvidenceItem is one quoted snippet supporting an alert, with the title of
// the document it came from. Canon-sourced evidence carries the literal
// title "Canon".
type EvidenceItem struct {
	Snippet     string `json:"snippet"`
	SourceTitle string `json:"source_title"`
	EntityName  string `json:"entity_name,omitempty"`
}

// Alert is a flagged discrepancy between new document content and canon.
// FactIDs and EntityIDs are deduplicated at creation time.
type Alert struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	DocumentID   string         `json:"document_id"`
	Type         AlertType      `json:"type"`
	Severity     AlertSeverity  `json:"severity"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	SuggestedFix string         `json:"suggested_fix,omitempty"`
	FactIDs      []string       `json:"fact_ids,omitempty"`
	EntityIDs    []string       `json:"entity_ids,omitempty"`
	Evidence     []EvidenceItem `json:"evidence,omitempty"`
	Status       AlertStatus    `json:"status"`
	CreatedAt    int64          `json:"created_at"`
	UpdatedAt    int64          `json:"updated_at"`
}

// ReferencesFact reports whether the alert carries the given fact ID.
func (a *Alert) ReferencesFact(factID string) bool {
	for _, id := range a.FactIDs {
		if id == factID {
			return true
		}
	}
	return false
}

// Note is a free-text annotation scoped to a project or one of its entities.
type Note struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	EntityID  string `json:"entity_id,omitempty"`
	AuthorID  string `json:"author_id"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// =============================================================================
// Enum Validation
// =============================================================================

// ValidProjectKind reports whether k is a known project kind.
func ValidProjectKind(k ProjectKind) bool {
	switch k {
	case ProjectNovel, ProjectCampaign, ProjectSeries, ProjectOther:
		return true
	}
	return false
}

// ValidEntityKind reports whether k is a known entity kind.
func ValidEntityKind(k EntityKind) bool {
	switch k {
	case EntityCharacter, EntityLocation, EntityItem, EntityConcept, EntityEvent:
		return true
	}
	return false
}

// ValidReviewStatus reports whether s is a known review status.
func ValidReviewStatus(s ReviewStatus) bool {
	switch s {
	case ReviewPending, ReviewConfirmed, ReviewRejected:
		return true
	}
	return false
}

// ValidAlertType reports whether t is a known alert type.
func ValidAlertType(t AlertType) bool {
	switch t {
	case AlertContradiction, AlertTimeline, AlertAmbiguity:
		return true
	}
	return false
}

// ValidateName checks the shared name constraint for projects, entities,
// and document titles.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("name must not be empty: %w", ErrValidation)
	}
	if len(trimmed) > MaxNameLength {
		return fmt.Errorf("name exceeds %d characters: %w", MaxNameLength, ErrValidation)
	}
	return nil
}
