// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Wire types for the continuity-check collaborator. The extraction service
// returns structured JSON matching CheckResult; the checker pairs it with
// the canon context that was shown to the extractor.

// CheckEvidence is one evidence item as returned by the check service.
// EntityName, when present, names the canon entity the snippet is about and
// participates in entity resolution. FromCanon marks snippets quoted from
// established canon rather than the new document.
type CheckEvidence struct {
	Snippet    string `json:"snippet"`
	EntityName string `json:"entity_name,omitempty"`
	FromCanon  bool   `json:"from_canon,omitempty"`
}

// ProposedAlert is one issue the check service found.
type ProposedAlert struct {
	Type             AlertType       `json:"type"`
	Severity         AlertSeverity   `json:"severity"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	Evidence         []CheckEvidence `json:"evidence,omitempty"`
	SuggestedFix     string          `json:"suggested_fix,omitempty"`
	AffectedEntities []string        `json:"affected_entities,omitempty"`
}

// CheckResult is the full structured response of a continuity check.
type CheckResult struct {
	Alerts  []ProposedAlert `json:"alerts"`
	Summary string          `json:"summary,omitempty"`
}

// CanonEntity is one canon entity with the facts that were included in the
// context shown to the check service.
type CanonEntity struct {
	Entity Entity `json:"entity"`
	Facts  []Fact `json:"facts,omitempty"`
}

// ProposedEntity is an entity candidate from the extraction service.
type ProposedEntity struct {
	Name    string     `json:"name"`
	Kind    EntityKind `json:"kind"`
	Aliases []string   `json:"aliases,omitempty"`
}

// ProposedFact is a fact candidate from the extraction service. EntityName
// refers to an entity in the same result or to an existing canon entity.
type ProposedFact struct {
	EntityName      string  `json:"entity_name"`
	Subject         string  `json:"subject"`
	Predicate       string  `json:"predicate"`
	Object          string  `json:"object"`
	Confidence      float64 `json:"confidence"`
	EvidenceSnippet string  `json:"evidence_snippet,omitempty"`
}

// ExtractionResult is the structured response of an entity/fact extraction.
type ExtractionResult struct {
	Entities []ProposedEntity `json:"entities"`
	Facts    []ProposedFact   `json:"facts"`
}

// ChatMessage is one turn of the chat assistant conversation.
type ChatMessage struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// StreamEvent is one server-sent event of a streaming chat response. The
// Hash/PrevHash chain lets clients verify stream integrity.
type StreamEvent struct {
	Id        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	Hash      string `json:"hash,omitempty"`
	PrevHash  string `json:"prev_hash,omitempty"`
}

// Stream event types.
const (
	StreamEventStatus = "status"
	StreamEventToken  = "token"
	StreamEventFinal  = "final"
	StreamEventError  = "error"
)
