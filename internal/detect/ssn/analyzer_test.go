// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ssn

import "testing"

func TestDetectContent_FindsFormattedSSN(t *testing.T) {
	a := NewAnalyzer()
	text := "Employee SSN: 078-05-1120 on file."

	findings := a.DetectContent(text)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Text != "078-05-1120" {
		t.Errorf("wrong match text: %q", f.Text)
	}
	if text[f.Start:f.End] != f.Text {
		t.Errorf("offsets [%d,%d) do not slice to match", f.Start, f.End)
	}
	if f.Score <= 0 || f.Score > 1 {
		t.Errorf("score out of range: %v", f.Score)
	}
}

func TestDetectContent_RejectsInvalidComponents(t *testing.T) {
	a := NewAnalyzer()
	for _, text := range []string{
		"000-12-3456", // area 000
		"666-12-3456", // area 666
		"900-12-3456", // area >= 900
		"123-00-4567", // group 00
		"123-45-0000", // serial 0000
	} {
		if got := a.DetectContent(text); len(got) != 0 {
			t.Errorf("%s should be rejected, got %d findings", text, len(got))
		}
	}
}

func TestDetectContent_PenalizesTestNumbers(t *testing.T) {
	a := NewAnalyzer()
	valid := a.DetectContent("ssn 457-55-5462")
	test := a.DetectContent("ssn 123-45-6789")
	if len(valid) != 1 {
		t.Fatalf("expected real-looking SSN to be found")
	}
	if len(test) == 1 && test[0].Score >= valid[0].Score {
		t.Error("sequential test SSN should score below a normal SSN")
	}
}

func TestDetectContent_Unformatted(t *testing.T) {
	a := NewAnalyzer()
	findings := a.DetectContent("id 457555462 recorded")
	if len(findings) != 1 {
		t.Fatalf("expected bare 9-digit SSN to be found, got %d", len(findings))
	}
}
