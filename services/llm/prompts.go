// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"fmt"
	"strings"
)

// PromptVersion is folded into cache keys so cached results are invalidated
// whenever the prompt wording changes.
const PromptVersion = "v3"

const checkSystemPrompt = `You are a continuity editor for a fiction project.
You are given the established canon of the project (entities and confirmed
facts about them) and the text of one document. Find continuity problems:
contradictions with canon, timeline inconsistencies, and ambiguous
references.

Respond with a JSON object of this exact shape:
{
  "alerts": [
    {
      "type": "contradiction" | "timeline" | "ambiguity",
      "severity": "error" | "warning",
      "title": "short summary",
      "description": "what conflicts and why",
      "suggested_fix": "optional concrete edit",
      "affected_entities": ["entity names"],
      "evidence": [
        {"snippet": "exact quote", "entity_name": "optional", "from_canon": true | false}
      ]
    }
  ],
  "summary": "one-paragraph overview of the document's continuity state"
}

Quote evidence snippets verbatim. Use "from_canon": true for snippets taken
from the canon section and false for snippets from the document. If the
document is consistent, return an empty alerts array.`

const extractSystemPrompt = `You are an archivist for a fiction project.
From the given document, extract the named entities (characters, locations,
items, factions, events, concepts) and concrete facts about them.

Respond with a JSON object of this exact shape:
{
  "entities": [
    {"name": "...", "kind": "character|location|item|faction|event|concept", "aliases": ["..."]}
  ],
  "facts": [
    {"entity_name": "...", "subject": "...", "predicate": "...", "object": "...",
     "confidence": 0.0, "evidence_snippet": "exact quote"}
  ]
}

Only extract what the text states. Confidence is your certainty between 0
and 1. Evidence snippets are verbatim quotes containing the fact. Reuse the
canonical name of an entity already listed in the canon section.`

const chatSystemPrompt = `You are a writing assistant for a fiction project.
Answer using the project canon provided below. When the canon does not
cover a question, say so rather than inventing details.`

func buildCheckPrompt(req CheckRequest) string {
	var b strings.Builder
	writeCanonSection(&b, req.CanonContext)
	fmt.Fprintf(&b, "## Document: %s\n\n%s\n", req.DocumentTitle, req.DocumentContent)
	return b.String()
}

func buildExtractPrompt(req ExtractRequest) string {
	var b strings.Builder
	writeCanonSection(&b, req.CanonContext)
	fmt.Fprintf(&b, "## Document: %s\n\n%s\n", req.DocumentTitle, req.DocumentContent)
	return b.String()
}

func buildChatSystemPrompt(canonContext string) string {
	if canonContext == "" {
		return chatSystemPrompt
	}
	return chatSystemPrompt + "\n\n## Canon\n\n" + canonContext
}

func writeCanonSection(b *strings.Builder, canonContext string) {
	if canonContext == "" {
		b.WriteString("## Canon\n\n(no established canon yet)\n\n")
		return
	}
	b.WriteString("## Canon\n\n")
	b.WriteString(canonContext)
	b.WriteString("\n\n")
}
