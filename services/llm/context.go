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

	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	CHUNK_SIZE    = 4000
	CHUNK_OVERLAP = int(float64(CHUNK_SIZE) * 0.10) // Chunk_overlap is 10% of the CHUNK_SIZE

	// MaxCanonEntities caps how many entities go into a single prompt.
	MaxCanonEntities = 200
)

var proseSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// BuildCanonContext renders the confirmed canon as the markdown block
// embedded in check, extraction, and chat prompts.
func BuildCanonContext(canon []datatypes.CanonEntity) string {
	if len(canon) == 0 {
		return ""
	}
	if len(canon) > MaxCanonEntities {
		canon = canon[:MaxCanonEntities]
	}

	var b strings.Builder
	for _, ce := range canon {
		fmt.Fprintf(&b, "### %s (%s)\n", ce.Entity.Name, ce.Entity.Kind)
		if len(ce.Entity.Aliases) > 0 {
			fmt.Fprintf(&b, "Aliases: %s\n", strings.Join(ce.Entity.Aliases, ", "))
		}
		for _, fact := range ce.Facts {
			fmt.Fprintf(&b, "- %s %s %s", fact.Subject, fact.Predicate, fact.Object)
			if fact.EvidenceSnippet != "" {
				fmt.Fprintf(&b, " (%q)", fact.EvidenceSnippet)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// SplitDocument breaks document content into overlapping chunks sized for
// one model call. Short documents come back as a single chunk.
func SplitDocument(content string) ([]string, error) {
	if len(content) <= CHUNK_SIZE {
		return []string{content}, nil
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(CHUNK_SIZE),
		textsplitter.WithChunkOverlap(CHUNK_OVERLAP),
		textsplitter.WithSeparators(proseSeparators),
	)
	chunks, err := splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("split document: %w", err)
	}
	return chunks, nil
}
