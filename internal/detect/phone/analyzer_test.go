// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package phone

import "testing"

func TestDetectContent_Formats(t *testing.T) {
	a := NewAnalyzer()
	for _, text := range []string{
		"call (206) 555-2368 now",
		"call 206-555-2368 now",
		"call 206.555.2368 now",
		"call +1 206 555 2368 now",
	} {
		findings := a.DetectContent(text)
		if len(findings) != 1 {
			t.Errorf("%q: expected 1 finding, got %d", text, len(findings))
			continue
		}
		f := findings[0]
		if text[f.Start:f.End] != f.Text {
			t.Errorf("%q: offsets do not slice to match", text)
		}
	}
}

func TestDetectContent_RejectsInvalidAreaCode(t *testing.T) {
	a := NewAnalyzer()
	if got := a.DetectContent("fax 016-555-2368"); len(got) != 0 {
		t.Errorf("area code starting with 0 should be rejected, got %d", len(got))
	}
	if got := a.DetectContent("fax 206-155-2368"); len(got) != 0 {
		t.Errorf("exchange starting with 1 should be rejected, got %d", len(got))
	}
}
