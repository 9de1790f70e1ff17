// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extract defines the text extraction boundary the redaction core
// consumes. The core never assumes a source document format: it sees only the
// concatenated text, the page spans over it, and the per-run geometry an
// extractor reports.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"custodia/internal/detect"
	"custodia/internal/geometry"
)

// Content is the extraction result for one document: the concatenated,
// page-delimited text view plus the offset map and text-run geometry the
// detector and applier operate on.
type Content struct {
	Path      string
	Text      string
	PageCount int

	// Pages maps character ranges of Text to zero-based page indices.
	Pages []detect.PageSpan

	// Runs carries per-run bounding geometry in the same offset space.
	Runs []geometry.TextRun

	// Rotations records non-zero page rotations in degrees by page index.
	Rotations map[int]int
}

// Extractor produces a Content view from a source document.
type Extractor interface {
	Name() string
	CanExtract(path string) bool
	Extract(path string) (*Content, error)
}

// Registry routes a document to the first extractor that supports it,
// in registration order.
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry over the given extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Register appends an extractor.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// ForFile returns the extractor responsible for path.
func (r *Registry) ForFile(path string) (Extractor, error) {
	for _, e := range r.extractors {
		if e.CanExtract(path) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no extractor supports %s", filepath.Base(path))
}

// Extract routes and extracts in one call.
func (r *Registry) Extract(path string) (*Content, error) {
	e, err := r.ForFile(path)
	if err != nil {
		return nil, err
	}
	return e.Extract(path)
}

// HasExt reports whether path carries one of the given lowercase extensions.
func HasExt(path string, exts ...string) bool {
	got := strings.ToLower(filepath.Ext(path))
	for _, ext := range exts {
		if got == ext {
			return true
		}
	}
	return false
}
