// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdfdoc

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"custodia/internal/document"
)

func TestScrubContentContiguous(t *testing.T) {
	content := []byte("BT (SSN: 078-05-1120) Tj (again 078-05-1120) Tj ET")
	got, n := scrubContent(content, []byte("078-05-1120"))
	if n != 2 {
		t.Errorf("purged = %d, want 2", n)
	}
	if bytes.Contains(got, []byte("078-05-1120")) {
		t.Errorf("literal survived: %q", got)
	}
	if len(got) != len(content) {
		t.Errorf("length changed: %d -> %d", len(content), len(got))
	}
}

func TestScrubContentSplitShowArray(t *testing.T) {
	content := []byte("BT 72 720 Td [(SSN: 078) -12 (-05-1120)] TJ ET")
	got, n := scrubContent(content, []byte("078-05-1120"))
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
	if bytes.Contains(got, []byte("078")) || bytes.Contains(got, []byte("1120")) {
		t.Errorf("literal pieces survived: %q", got)
	}
	// Array shape and kerning number stay so the stream still parses.
	if !bytes.Contains(got, []byte("[(")) || !bytes.Contains(got, []byte(")] TJ")) || !bytes.Contains(got, []byte("-12")) {
		t.Errorf("array structure damaged: %q", got)
	}
}

func TestScrubContentEscapedParens(t *testing.T) {
	content := []byte(`[(\(078) (-05-1120\)) ] TJ`)
	got, n := scrubContent(content, []byte("(078-05-1120)"))
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
	if bytes.Contains(got, []byte("078")) {
		t.Errorf("literal survived: %q", got)
	}
}

func TestScrubContentLeavesUnrelatedArrays(t *testing.T) {
	content := []byte("[(hello) (world)] TJ [0 0 612 792] re")
	got, n := scrubContent(content, []byte("078-05-1120"))
	if n != 0 {
		t.Errorf("purged = %d, want 0", n)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content mutated: %q", got)
	}
}

func TestApplyPurgesSplitShowArray(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.pdf")

	e := New()
	if !e.CanEdit("doc.pdf") || e.CanEdit("doc.txt") {
		t.Fatal("CanEdit extension gate broken")
	}

	purged, err := e.Apply(filepath.Join("testdata", "ssn_tj_array.pdf"), out, []document.Redaction{
		{Page: 0, Start: 17, End: 33, Literal: "078-05-1120", EntityType: "SSN"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("078-05-1120")) {
		t.Error("contiguous literal survived in output bytes")
	}
}

func TestApplyReportsZeroPurgedForUnreachableText(t *testing.T) {
	// Text split across separate Tj operators is out of reach for the
	// stream scrub; the zero count is what lets callers flag it.
	dir := t.TempDir()
	out := filepath.Join(dir, "out.pdf")

	purged, err := New().Apply(filepath.Join("testdata", "ssn_tj_ops.pdf"), out, []document.Redaction{
		{Page: 0, Start: 17, End: 33, Literal: "078-05-1120", EntityType: "SSN"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if purged != 0 {
		t.Errorf("purged = %d, want 0", purged)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output not written: %v", err)
	}
}

func TestApplyErrorsOnMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := New().Apply(filepath.Join(dir, "missing.pdf"), filepath.Join(dir, "out.pdf"), nil)
	if err == nil {
		t.Fatal("Apply of a missing file succeeded")
	}
	if !strings.Contains(err.Error(), "missing.pdf") {
		t.Errorf("error does not name the source: %v", err)
	}
}
