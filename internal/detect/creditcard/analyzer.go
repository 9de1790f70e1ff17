// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package creditcard

import (
	"regexp"
	"strings"

	"custodia/internal/detect"
)

// A Luhn-valid number with a known issuer prefix is strong evidence on its
// own, so the base confidence starts high.
const baseScore = 0.75

// Analyzer detects payment card numbers using issuer prefixes and the Luhn
// check digit.
type Analyzer struct {
	regex *regexp.Regexp
}

// NewAnalyzer creates a credit card analyzer with predefined patterns.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		// 13-19 digits with optional single space or dash group separators
		regex: regexp.MustCompile(`\b(?:\d[ \-]?){12,18}\d\b`),
	}
}

// Name implements detect.Analyzer.
func (a *Analyzer) Name() string { return "creditcard" }

// EntityType implements detect.Analyzer.
func (a *Analyzer) EntityType() string { return detect.EntityCreditCard }

// DetectContent finds card number candidates in text with character offsets.
// Candidates that fail the Luhn check or lack a known issuer prefix are
// dropped.
func (a *Analyzer) DetectContent(text string) []detect.Finding {
	var findings []detect.Finding

	for _, loc := range a.regex.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, match)

		if len(digits) < 13 || len(digits) > 19 {
			continue
		}
		if !luhnValid(digits) {
			continue
		}
		issuer := issuerFor(digits)
		if issuer == "" {
			continue
		}

		score := detect.ScaleScore(baseScore, len(digits))
		if allSameDigit(digits) {
			score -= 0.40
		}
		if score <= 0 {
			continue
		}

		findings = append(findings, detect.Finding{
			EntityType: detect.EntityCreditCard,
			Start:      loc[0],
			End:        loc[1],
			Score:      score,
			Text:       match,
			Analyzer:   a.Name(),
			Metadata: map[string]any{
				"issuer": issuer,
				"luhn":   true,
			},
		})
	}

	return findings
}

// luhnValid implements the Luhn check digit algorithm.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// issuerFor maps leading digits to an issuer network.
func issuerFor(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return "visa"
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return "mastercard"
	case strings.HasPrefix(digits, "34") || strings.HasPrefix(digits, "37"):
		return "amex"
	case strings.HasPrefix(digits, "6011") || strings.HasPrefix(digits, "65"):
		return "discover"
	case strings.HasPrefix(digits, "35"):
		return "jcb"
	default:
		return ""
	}
}

func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
