// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package detect defines the sensitive-span model and the composite detector
// that runs entity analyzers over extracted document text. Detection is pure
// in-memory work: the detector owns no file handles and never reads the clock,
// so a fixed input and configuration always produce bit-identical output.
package detect

import (
	"fmt"
	"sort"

	"custodia/internal/observability"
	"custodia/internal/security"
)

// Entity type names shared by analyzers, plans, and the CLI check filter.
const (
	EntitySSN        = "SSN"
	EntityEmail      = "EMAIL"
	EntityPhone      = "PHONE"
	EntityCreditCard = "CREDIT_CARD"
	EntityCustom     = "CUSTOM_TERM"
)

// PageSpan maps a half-open character range [Start, End) of the concatenated
// text view to a zero-based page index. Spans are supplied by the extraction
// collaborator; the detector only uses them to label findings.
type PageSpan struct {
	Page  int
	Start int
	End   int
}

// Finding is one detected sensitive span. Start and End are character offsets
// into the concatenated, page-delimited text view. Page is nil when the span
// falls outside every supplied page span. Text is retained in memory and in
// encrypted plans only; it is never written to the ledger in cleartext.
type Finding struct {
	EntityType string
	Start      int
	End        int
	Page       *int
	Score      float64
	Text       string
	SecureText *security.SecureString
	Analyzer   string
	Metadata   map[string]any
}

// Clear scrubs the raw matched text from memory.
func (f *Finding) Clear() {
	f.Text = ""
	if f.SecureText != nil {
		f.SecureText.Clear()
		f.SecureText = nil
	}
}

// Analyzer detects one entity category in plain text. Implementations must be
// deterministic: no unordered iteration, no randomness, no clock reads.
type Analyzer interface {
	Name() string
	EntityType() string
	DetectContent(text string) []Finding
}

// Detector fans text out to a fixed analyzer set and merges the results into
// one deterministic finding list.
type Detector struct {
	analyzers []Analyzer
	observer  *observability.StandardObserver
}

// NewDetector builds a detector over the given analyzers. At least one
// analyzer is required; detection with an empty set is a wiring mistake that
// should fail before any document I/O happens.
func NewDetector(analyzers []Analyzer, observer *observability.StandardObserver) (*Detector, error) {
	if len(analyzers) == 0 {
		return nil, fmt.Errorf("no analyzers configured")
	}
	return &Detector{analyzers: analyzers, observer: observer}, nil
}

// Names returns the analyzer names in registration order.
func (d *Detector) Names() []string {
	names := make([]string, 0, len(d.analyzers))
	for _, a := range d.analyzers {
		names = append(names, a.Name())
	}
	return names
}

// Detect runs every enabled analyzer over text, labels findings with their
// page, resolves overlaps, and returns findings sorted by start offset.
// entityFilter limits the entity types considered; nil or empty means all.
func (d *Detector) Detect(text string, pages []PageSpan, entityFilter []string) ([]Finding, error) {
	var finishTiming func(bool, map[string]interface{})
	if d.observer != nil {
		finishTiming = d.observer.StartTiming("detector", "detect", "")
	}

	enabled := make(map[string]bool, len(entityFilter))
	for _, e := range entityFilter {
		enabled[e] = true
	}

	var findings []Finding
	for _, analyzer := range d.analyzers {
		if len(enabled) > 0 && !enabled[analyzer.EntityType()] {
			continue
		}
		findings = append(findings, analyzer.DetectContent(text)...)
	}

	for i := range findings {
		findings[i].Page = resolvePage(pages, findings[i].Start)
		if findings[i].SecureText == nil {
			findings[i].SecureText = security.NewSecureString(findings[i].Text)
		}
	}

	findings = resolveOverlaps(findings)

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Start != findings[j].Start {
			return findings[i].Start < findings[j].Start
		}
		if findings[i].End != findings[j].End {
			return findings[i].End > findings[j].End
		}
		return findings[i].EntityType < findings[j].EntityType
	})

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{"finding_count": len(findings)})
	}
	return findings, nil
}

// resolvePage returns the page index containing offset, or nil when the
// offset falls outside every supplied span.
func resolvePage(pages []PageSpan, offset int) *int {
	for _, span := range pages {
		if offset >= span.Start && offset < span.End {
			page := span.Page
			return &page
		}
	}
	return nil
}

// resolveOverlaps keeps the highest-confidence, longest match among
// overlapping findings on the same page and discards findings whose offset
// ranges are fully contained in a kept finding.
func resolveOverlaps(findings []Finding) []Finding {
	if len(findings) < 2 {
		return findings
	}

	// Rank by score, then length, then start offset, then entity type; the
	// full tiebreak chain keeps the result order independent of analyzer
	// registration order.
	ranked := make([]Finding, len(findings))
	copy(ranked, findings)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		li, lj := ranked[i].End-ranked[i].Start, ranked[j].End-ranked[j].Start
		if li != lj {
			return li > lj
		}
		if ranked[i].Start != ranked[j].Start {
			return ranked[i].Start < ranked[j].Start
		}
		return ranked[i].EntityType < ranked[j].EntityType
	})

	var kept []Finding
	for _, candidate := range ranked {
		contained := false
		for i := range kept {
			if samePage(kept[i].Page, candidate.Page) &&
				candidate.Start >= kept[i].Start && candidate.End <= kept[i].End {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func samePage(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ScaleScore applies the shared confidence policy: a category-specific base
// scaled upward with match length, clamped to [0,1].
func ScaleScore(base float64, matchLength int) float64 {
	score := base + 0.01*float64(matchLength)
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}
