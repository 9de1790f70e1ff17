// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detect

import (
	"reflect"
	"testing"
)

// stubAnalyzer returns canned findings for overlap and determinism tests.
type stubAnalyzer struct {
	name     string
	entity   string
	findings []Finding
}

func (s *stubAnalyzer) Name() string       { return s.name }
func (s *stubAnalyzer) EntityType() string { return s.entity }
func (s *stubAnalyzer) DetectContent(text string) []Finding {
	out := make([]Finding, len(s.findings))
	copy(out, s.findings)
	return out
}

func TestNewDetector_RequiresAnalyzers(t *testing.T) {
	if _, err := NewDetector(nil, nil); err == nil {
		t.Fatal("expected error for empty analyzer set")
	}
}

func TestDetect_PageLabeling(t *testing.T) {
	stub := &stubAnalyzer{
		name:   "stub",
		entity: EntitySSN,
		findings: []Finding{
			{EntityType: EntitySSN, Start: 5, End: 16, Score: 0.8, Text: "078-05-1120"},
			{EntityType: EntitySSN, Start: 40, End: 51, Score: 0.8, Text: "219-09-9999"},
			{EntityType: EntitySSN, Start: 90, End: 101, Score: 0.8, Text: "457-55-5462"},
		},
	}
	d, err := NewDetector([]Analyzer{stub}, nil)
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}

	pages := []PageSpan{
		{Page: 0, Start: 0, End: 30},
		{Page: 1, Start: 30, End: 60},
	}
	findings, err := d.Detect("irrelevant", pages, nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(findings) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(findings))
	}
	if findings[0].Page == nil || *findings[0].Page != 0 {
		t.Errorf("finding at offset 5 should be on page 0, got %v", findings[0].Page)
	}
	if findings[1].Page == nil || *findings[1].Page != 1 {
		t.Errorf("finding at offset 40 should be on page 1, got %v", findings[1].Page)
	}
	if findings[2].Page != nil {
		t.Errorf("finding at offset 90 is outside every span, expected nil page, got %d", *findings[2].Page)
	}
}

func TestDetect_OverlapResolution(t *testing.T) {
	page := 0
	stub := &stubAnalyzer{
		name:   "stub",
		entity: EntityPhone,
		findings: []Finding{
			// Shorter, lower-confidence finding fully contained in the longer one.
			{EntityType: EntityPhone, Start: 12, End: 20, Score: 0.5, Text: "555-1234", Page: &page},
			{EntityType: EntityPhone, Start: 10, End: 22, Score: 0.8, Text: "206-555-1234", Page: &page},
		},
	}
	d, _ := NewDetector([]Analyzer{stub}, nil)

	findings, err := d.Detect("x", []PageSpan{{Page: 0, Start: 0, End: 100}}, nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected contained finding discarded, got %d findings", len(findings))
	}
	if findings[0].Start != 10 || findings[0].End != 22 {
		t.Errorf("kept the wrong finding: [%d,%d)", findings[0].Start, findings[0].End)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	terms := NewCustomTermAnalyzer([]string{"Project Nimbus", "acme"})
	d, _ := NewDetector([]Analyzer{terms}, nil)

	text := "Project Nimbus memo for acme counsel re: Project Nimbus budget"
	pages := []PageSpan{{Page: 0, Start: 0, End: len(text)}}

	first, err := d.Detect(text, pages, nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	second, _ := d.Detect(text, pages, nil)

	if len(first) == 0 {
		t.Fatal("expected findings")
	}
	for i := range first {
		if first[i].Start != second[i].Start || first[i].End != second[i].End ||
			first[i].Score != second[i].Score || first[i].Text != second[i].Text {
			t.Fatalf("run %d differs between invocations", i)
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i].Start < first[i-1].Start {
			t.Fatal("findings not sorted by start offset")
		}
	}
}

func TestDetect_EntityFilter(t *testing.T) {
	terms := NewCustomTermAnalyzer([]string{"privileged"})
	d, _ := NewDetector([]Analyzer{terms}, nil)

	findings, err := d.Detect("privileged and confidential",
		[]PageSpan{{Page: 0, Start: 0, End: 30}}, []string{EntitySSN})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("filter excluding CUSTOM_TERM should drop findings, got %d", len(findings))
	}
}

func TestScaleScore_Clamped(t *testing.T) {
	if got := ScaleScore(0.95, 50); got != 1 {
		t.Errorf("expected clamp to 1, got %v", got)
	}
	if got := ScaleScore(0.5, 10); got != 0.6 {
		t.Errorf("expected 0.6, got %v", got)
	}
}

func TestFinding_Clear(t *testing.T) {
	terms := NewCustomTermAnalyzer([]string{"secret"})
	d, _ := NewDetector([]Analyzer{terms}, nil)
	findings, _ := d.Detect("a secret", []PageSpan{{Page: 0, Start: 0, End: 8}}, nil)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	f.Clear()
	if f.Text != "" || f.SecureText != nil {
		t.Error("Clear did not scrub finding text")
	}
}

func TestResolvePage_Boundaries(t *testing.T) {
	pages := []PageSpan{{Page: 0, Start: 0, End: 10}, {Page: 1, Start: 10, End: 20}}
	cases := []struct {
		offset int
		want   *int
	}{
		{0, intPtr(0)},
		{9, intPtr(0)},
		{10, intPtr(1)},
		{19, intPtr(1)},
		{20, nil},
	}
	for _, tc := range cases {
		got := resolvePage(pages, tc.offset)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("offset %d: got %v want %v", tc.offset, got, tc.want)
		}
	}
}

func intPtr(v int) *int { return &v }
