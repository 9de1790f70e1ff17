// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package textdoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"custodia/internal/document"
)

func applyTo(t *testing.T, content string, redactions []document.Redaction) (string, int) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(src, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	purged, err := New().Apply(src, out, redactions)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	return string(got), purged
}

func TestApplySplicesByOffset(t *testing.T) {
	content := "SSN: 078-05-1120 end"
	got, purged := applyTo(t, content, []document.Redaction{
		{Start: 5, End: 16, Literal: "078-05-1120", EntityType: "SSN"},
	})
	if strings.Contains(got, "078-05-1120") {
		t.Errorf("literal survived: %q", got)
	}
	if got != "SSN: [SSN-REDACTED] end" {
		t.Errorf("got %q", got)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
}

func TestApplyMultipleSpansDescending(t *testing.T) {
	content := "a@b.com then 078-05-1120 done"
	got, _ := applyTo(t, content, []document.Redaction{
		{Start: 0, End: 7, Literal: "a@b.com", EntityType: "EMAIL"},
		{Start: 13, End: 24, Literal: "078-05-1120", EntityType: "SSN"},
	})
	if strings.Contains(got, "a@b.com") || strings.Contains(got, "078-05-1120") {
		t.Errorf("literal survived: %q", got)
	}
	if got != "[EMAIL-REDACTED] then [SSN-REDACTED] done" {
		t.Errorf("got %q", got)
	}
}

func TestApplyFallsBackToLiteral(t *testing.T) {
	// Stale offsets but the literal is still present: every occurrence
	// goes, over-redacting rather than under-redacting.
	content := "x 078-05-1120 y 078-05-1120 z"
	got, purged := applyTo(t, content, []document.Redaction{
		{Start: 500, End: 511, Literal: "078-05-1120", EntityType: "SSN"},
	})
	if strings.Contains(got, "078-05-1120") {
		t.Errorf("literal survived: %q", got)
	}
	if strings.Count(got, "[SSN-REDACTED]") != 2 {
		t.Errorf("got %q", got)
	}
	if purged != 2 {
		t.Errorf("purged = %d, want 2", purged)
	}
}

func TestApplyLeavesSourceUntouched(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(src, []byte("078-05-1120"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := New().Apply(src, out, []document.Redaction{
		{Start: 0, End: 11, Literal: "078-05-1120", EntityType: "SSN"},
	}); err != nil {
		t.Fatal(err)
	}
	original, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if string(original) != "078-05-1120" {
		t.Errorf("source mutated: %q", original)
	}
}
