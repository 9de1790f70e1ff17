// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package hashing

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashBytes_Stable(t *testing.T) {
	a := HashBytes([]byte("discovery set 12"))
	b := HashBytes([]byte("discovery set 12"))
	if a != b {
		t.Errorf("identical input produced different digests: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestHashBytes_SingleByteChange(t *testing.T) {
	a := HashBytes([]byte("exhibit A"))
	b := HashBytes([]byte("exhibit B"))
	if a == b {
		t.Error("different input produced identical digests")
	}
}

func TestHashFile_MatchesHashBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	content := []byte("custodian: j.smith\nSSN 078-05-1120\n")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	fromFile, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if fromFile != HashBytes(content) {
		t.Error("HashFile and HashBytes disagree on identical content")
	}
}

func TestHashFile_Missing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "absent.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}
