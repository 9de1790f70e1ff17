// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detect

import "strings"

// Terms listed explicitly by a reviewer are redacted on sight, so the base
// confidence is high and scaling adds little.
const customTermBaseScore = 0.90

// CustomTermAnalyzer matches reviewer-supplied literal terms, typically
// privileged project names or custodian identifiers. Matching is
// case-insensitive; offsets reference the original text.
type CustomTermAnalyzer struct {
	terms []string
}

// NewCustomTermAnalyzer builds an analyzer over the configured term list.
// Empty terms are dropped; order is preserved for deterministic output.
func NewCustomTermAnalyzer(terms []string) *CustomTermAnalyzer {
	kept := make([]string, 0, len(terms))
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			kept = append(kept, t)
		}
	}
	return &CustomTermAnalyzer{terms: kept}
}

// Name implements Analyzer.
func (a *CustomTermAnalyzer) Name() string { return "custom_terms" }

// EntityType implements Analyzer.
func (a *CustomTermAnalyzer) EntityType() string { return EntityCustom }

// DetectContent finds every occurrence of every configured term.
func (a *CustomTermAnalyzer) DetectContent(text string) []Finding {
	lower := strings.ToLower(text)

	var findings []Finding
	for _, term := range a.terms {
		needle := strings.ToLower(term)
		from := 0
		for {
			idx := strings.Index(lower[from:], needle)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(needle)
			findings = append(findings, Finding{
				EntityType: EntityCustom,
				Start:      start,
				End:        end,
				Score:      ScaleScore(customTermBaseScore, len(needle)),
				Text:       text[start:end],
				Analyzer:   a.Name(),
				Metadata:   map[string]any{"term": term},
			})
			from = end
		}
	}
	return findings
}
