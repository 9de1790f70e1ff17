// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package email

import "testing"

func TestDetectContent_FindsAddress(t *testing.T) {
	a := NewAnalyzer()
	text := "Contact opposing counsel at j.rivera@lawfirm.com today."

	findings := a.DetectContent(text)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Text != "j.rivera@lawfirm.com" {
		t.Errorf("wrong match: %q", findings[0].Text)
	}
	if text[findings[0].Start:findings[0].End] != findings[0].Text {
		t.Error("offsets do not slice to match")
	}
}

func TestDetectContent_ExampleDomainScoresLower(t *testing.T) {
	a := NewAnalyzer()
	real := a.DetectContent("mail a@lawfirm.com")
	sample := a.DetectContent("mail a@example.com")
	if len(real) != 1 || len(sample) != 1 {
		t.Fatalf("expected both addresses found")
	}
	if sample[0].Score >= real[0].Score {
		t.Error("example.com address should score lower")
	}
}
