// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ssn

import (
	"regexp"
	"strconv"
	"strings"

	"custodia/internal/detect"
)

// baseScore is the confidence floor for a structurally valid SSN before
// length scaling.
const baseScore = 0.70

// Analyzer detects Social Security Numbers using regex patterns and
// structural validation of area, group, and serial components.
type Analyzer struct {
	regex    *regexp.Regexp
	testSSNs map[string]bool
}

// NewAnalyzer creates an SSN analyzer with predefined patterns.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		// XXX-XX-XXXX, XXX XX XXXX, or XXXXXXXXX only
		regex: regexp.MustCompile(`\b(?:\d{3}-\d{2}-\d{4}|\d{3}\s\d{2}\s\d{4}|\d{9})\b`),
		testSSNs: map[string]bool{
			"123456789": true,
			"111111111": true,
			"222222222": true,
			"333333333": true,
			"444444444": true,
			"555555555": true,
			"777777777": true,
			"888888888": true,
			"999999999": true,
			"987654321": true,
			"123454321": true,
		},
	}
}

// Name implements detect.Analyzer.
func (a *Analyzer) Name() string { return "ssn" }

// EntityType implements detect.Analyzer.
func (a *Analyzer) EntityType() string { return detect.EntitySSN }

// DetectContent finds SSN candidates in text and returns findings with
// character offsets. Structurally invalid and well-known test numbers are
// dropped.
func (a *Analyzer) DetectContent(text string) []detect.Finding {
	var findings []detect.Finding

	for _, loc := range a.regex.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		clean := cleanSSN(match)

		if !isValidSSN(clean) {
			continue
		}

		score := detect.ScaleScore(baseScore, len(match))
		checks := map[string]bool{
			"valid_area":      isValidAreaNumber(clean[0:3]),
			"not_test_number": !a.testSSNs[clean],
			"not_sequential":  !isSequential(clean),
		}
		if !checks["not_test_number"] || !checks["not_sequential"] {
			score -= 0.25
		}
		if !checks["valid_area"] {
			score -= 0.15
		}
		if score <= 0 {
			continue
		}
		if score > 1 {
			score = 1
		}

		findings = append(findings, detect.Finding{
			EntityType: detect.EntitySSN,
			Start:      loc[0],
			End:        loc[1],
			Score:      score,
			Text:       match,
			Analyzer:   a.Name(),
			Metadata: map[string]any{
				"validation_checks": checks,
			},
		})
	}

	return findings
}

func cleanSSN(ssn string) string {
	return strings.ReplaceAll(strings.ReplaceAll(ssn, "-", ""), " ", "")
}

// isValidSSN applies the SSA structural rules: no all-zero components, no 666
// or 900-999 area numbers.
func isValidSSN(ssn string) bool {
	if len(ssn) != 9 {
		return false
	}
	area := ssn[0:3]
	if area == "000" || area == "666" {
		return false
	}
	if areaNum, err := strconv.Atoi(area); err != nil || areaNum >= 900 {
		return false
	}
	if ssn[3:5] == "00" {
		return false
	}
	if ssn[5:9] == "0000" {
		return false
	}
	return true
}

func isValidAreaNumber(area string) bool {
	areaNum, err := strconv.Atoi(area)
	if err != nil {
		return false
	}
	return (areaNum >= 1 && areaNum <= 665) || (areaNum >= 667 && areaNum <= 899)
}

// isSequential reports ascending or descending digit runs like 123456789.
func isSequential(ssn string) bool {
	ascending, descending := true, true
	for i := 0; i < len(ssn)-1; i++ {
		curr := int(ssn[i] - '0')
		next := int(ssn[i+1] - '0')
		if next != (curr+1)%10 {
			ascending = false
		}
		if next != (curr+9)%10 {
			descending = false
		}
	}
	return ascending || descending
}
