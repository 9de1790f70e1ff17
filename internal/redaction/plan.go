// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package redaction plans and applies content removal from documents.
// A plan is a content-addressed, repeatable description of every span
// to remove: planning the same document with the same detector setup
// always yields the same plan ID, and applying a plan is gated on the
// document still hashing to what it hashed at plan time.
package redaction

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"custodia/internal/hashing"
)

// Action is one span a plan removes. Offsets are character positions in
// the document text view. Page is nil when the span fell outside every
// extracted page range; the applier then locates it by literal search.
type Action struct {
	Page       *int    `json:"page,omitempty"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	EntityType string  `json:"entity_type"`
	Score      float64 `json:"score"`
	Literal    string  `json:"literal"`
	Analyzer   string  `json:"analyzer"`
}

// Annotations carry descriptive metadata about how a plan was produced.
// They are informational only and stay outside the plan ID computation:
// two planning runs that find the same spans address the same plan even
// when the detector roster differs, and the annotations must not be able
// to fork the content address of identical work.
type Annotations struct {
	DetectorNames []string       `json:"detector_names"`
	FindingCounts map[string]int `json:"finding_counts,omitempty"`
	PagesTouched  []int          `json:"pages_touched,omitempty"`
}

// Plan is the sealed unit of work between planning and applying.
type Plan struct {
	PlanID       string      `json:"plan_id"`
	DocumentPath string      `json:"document_path"`
	InputHash    string      `json:"input_hash"`
	CreatedAt    time.Time   `json:"created_at"`
	Actions      []Action    `json:"actions"`
	Annotations  Annotations `json:"annotations"`
}

// annotate summarizes sorted actions: per-entity counts and the distinct
// pages touched, ascending, nil pages excluded.
func annotate(detectorNames []string, actions []Action) Annotations {
	ann := Annotations{DetectorNames: detectorNames}
	if len(actions) == 0 {
		return ann
	}
	ann.FindingCounts = make(map[string]int, len(actions))
	seen := make(map[int]bool)
	for _, a := range actions {
		ann.FindingCounts[a.EntityType]++
		if a.Page != nil && !seen[*a.Page] {
			seen[*a.Page] = true
			ann.PagesTouched = append(ann.PagesTouched, *a.Page)
		}
	}
	sort.Ints(ann.PagesTouched)
	return ann
}

// pageKey orders nil-page actions before page-resolved ones.
func pageKey(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

// sortActions puts actions in canonical order: page, then start offset,
// then end, then entity type. Plan IDs are computed over this order.
func sortActions(actions []Action) {
	sort.Slice(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if pageKey(a.Page) != pageKey(b.Page) {
			return pageKey(a.Page) < pageKey(b.Page)
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.EntityType < b.EntityType
	})
}

func canonicalAction(a Action) string {
	return fmt.Sprintf("%d|%d|%d|%s|%.4f|%s", pageKey(a.Page), a.Start, a.End, a.EntityType, a.Score, a.Literal)
}

// ComputePlanID derives the content address of a plan from the document
// path, its input hash, and the canonical form of its sorted actions.
func ComputePlanID(documentPath, inputHash string, actions []Action) string {
	var b strings.Builder
	b.WriteString(documentPath)
	b.WriteByte(0)
	b.WriteString(inputHash)
	b.WriteByte(0)
	for _, a := range actions {
		b.WriteString(canonicalAction(a))
		b.WriteByte('\n')
	}
	return hashing.HashString(b.String())
}
