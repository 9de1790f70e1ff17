// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package phone

import (
	"regexp"
	"strings"

	"custodia/internal/detect"
)

// Phone numbers collide with case numbers and Bates ranges in discovery
// material, so the base confidence starts lower than other categories.
const baseScore = 0.55

// Analyzer detects North American phone numbers.
type Analyzer struct {
	regex *regexp.Regexp
}

// NewAnalyzer creates a phone analyzer with predefined patterns.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		// (XXX) XXX-XXXX, XXX-XXX-XXXX, XXX.XXX.XXXX, +1 XXX XXX XXXX
		regex: regexp.MustCompile(`(?:\+1[\s.\-]?)?\(?\d{3}\)?[\s.\-]\d{3}[\s.\-]\d{4}\b`),
	}
}

// Name implements detect.Analyzer.
func (a *Analyzer) Name() string { return "phone" }

// EntityType implements detect.Analyzer.
func (a *Analyzer) EntityType() string { return detect.EntityPhone }

// DetectContent finds phone number candidates in text with character offsets.
func (a *Analyzer) DetectContent(text string) []detect.Finding {
	var findings []detect.Finding

	for _, loc := range a.regex.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		digits := digitsOnly(match)

		// NANP: 10 digits, or 11 with a leading country code 1. Area and
		// exchange codes cannot start with 0 or 1.
		if len(digits) == 11 && digits[0] == '1' {
			digits = digits[1:]
		}
		if len(digits) != 10 {
			continue
		}
		if digits[0] == '0' || digits[0] == '1' || digits[3] == '0' || digits[3] == '1' {
			continue
		}

		score := detect.ScaleScore(baseScore, len(match))
		if digits == "5555555555" || strings.HasPrefix(digits[3:], "55501") {
			// 555-01XX is the reserved fictional exchange
			score -= 0.30
		}
		if score <= 0 {
			continue
		}

		findings = append(findings, detect.Finding{
			EntityType: detect.EntityPhone,
			Start:      loc[0],
			End:        loc[1],
			Score:      score,
			Text:       match,
			Analyzer:   a.Name(),
		})
	}

	return findings
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}
