// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package document mutates document files in place of redacted content.
// Editors purge the matched text from the underlying file format; they
// never overlay. A reader of the output must not be able to recover the
// original bytes from the regions an editor was asked to remove.
package document

import (
	"fmt"
	"path/filepath"
	"strings"

	"custodia/internal/geometry"
)

// Redaction is one span an editor must remove from the source document.
// Start and End are offsets into the document text view produced by the
// extract package for the same file. Literal carries the exact matched
// text so editors can fall back to a content search when offsets cannot
// be applied to the underlying format. Regions are the page-space
// rectangles the span occupies, when geometry resolution succeeded.
type Redaction struct {
	Page       int
	Start      int
	End        int
	Literal    string
	EntityType string
	Regions    []geometry.Rect
}

// Editor rewrites a document with a set of redactions applied.
type Editor interface {
	// Name identifies the editor in logs and ledger args.
	Name() string

	// CanEdit reports whether this editor handles the given file.
	CanEdit(path string) bool

	// Apply reads sourcePath, removes every redaction, and writes the
	// result to outputPath. The source file is never modified. The
	// returned count is the number of occurrences actually purged,
	// which can exceed len(redactions) when an editor removes every
	// occurrence of a literal.
	Apply(sourcePath, outputPath string, redactions []Redaction) (int, error)
}

// Registry routes files to editors by extension.
type Registry struct {
	editors []Editor
}

func NewRegistry(editors ...Editor) *Registry {
	return &Registry{editors: editors}
}

func (r *Registry) Register(e Editor) {
	r.editors = append(r.editors, e)
}

// ForFile returns the first registered editor that accepts path.
func (r *Registry) ForFile(path string) (Editor, error) {
	for _, e := range r.editors {
		if e.CanEdit(path) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no editor registered for %s", filepath.Ext(path))
}

// ReplacementFor returns the bracketed token written in place of purged
// text in formats that keep a readable text body.
func ReplacementFor(entityType string) string {
	switch entityType {
	case "SSN":
		return "[SSN-REDACTED]"
	case "EMAIL":
		return "[EMAIL-REDACTED]"
	case "PHONE":
		return "[PHONE-REDACTED]"
	case "CREDIT_CARD":
		return "[CREDIT-CARD-REDACTED]"
	case "CUSTOM_TERM":
		return "[TERM-REDACTED]"
	default:
		return "[REDACTED]"
	}
}

// HasExt reports whether path carries one of the given extensions,
// compared case-insensitively.
func HasExt(path string, exts ...string) bool {
	got := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if got == strings.ToLower(e) {
			return true
		}
	}
	return false
}
