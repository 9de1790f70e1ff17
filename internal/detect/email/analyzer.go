// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package email

import (
	"regexp"
	"strings"

	"custodia/internal/detect"
)

const baseScore = 0.65

// Analyzer detects email addresses.
type Analyzer struct {
	regex *regexp.Regexp

	// Domains that indicate documentation samples rather than real data
	examplePatterns []string
}

// NewAnalyzer creates an email analyzer with predefined patterns.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		regex: regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`),
		examplePatterns: []string{
			"example.com", "example.org", "example.net",
			"test.com", "localhost", "domain.com",
		},
	}
}

// Name implements detect.Analyzer.
func (a *Analyzer) Name() string { return "email" }

// EntityType implements detect.Analyzer.
func (a *Analyzer) EntityType() string { return detect.EntityEmail }

// DetectContent finds email addresses in text with character offsets.
func (a *Analyzer) DetectContent(text string) []detect.Finding {
	var findings []detect.Finding

	for _, loc := range a.regex.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		score := detect.ScaleScore(baseScore, len(match))

		exampleDomain := a.isExampleDomain(match)
		if exampleDomain {
			score -= 0.30
		}
		if score <= 0 {
			continue
		}

		findings = append(findings, detect.Finding{
			EntityType: detect.EntityEmail,
			Start:      loc[0],
			End:        loc[1],
			Score:      score,
			Text:       match,
			Analyzer:   a.Name(),
			Metadata: map[string]any{
				"example_domain": exampleDomain,
			},
		})
	}

	return findings
}

func (a *Analyzer) isExampleDomain(addr string) bool {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(addr[at+1:])
	for _, pattern := range a.examplePatterns {
		if domain == pattern || strings.HasSuffix(domain, "."+pattern) {
			return true
		}
	}
	return false
}
