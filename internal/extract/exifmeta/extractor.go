// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package exifmeta surfaces image EXIF metadata as detectable text. Camera
// serial numbers, artist names, and GPS positions in photo evidence are
// sensitive spans like any other; rendering the tags one per line lets the
// standard analyzers and custom terms run over them unchanged.
package exifmeta

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"custodia/internal/detect"
	"custodia/internal/extract"
	"custodia/internal/geometry"
)

// Synthetic line metrics, matching the plaintext extractor's grid.
const (
	charWidth  = 7.2
	lineHeight = 12.0
)

// Extractor reads EXIF metadata from image files.
type Extractor struct{}

// NewExtractor creates an EXIF metadata extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Name implements extract.Extractor.
func (e *Extractor) Name() string { return "exifmeta" }

// CanExtract implements extract.Extractor.
func (e *Extractor) CanExtract(path string) bool {
	return extract.HasExt(path, ".jpg", ".jpeg", ".tif", ".tiff", ".png")
}

// tagWalker collects every EXIF tag as name/value strings.
type tagWalker struct {
	tags map[string]string
}

// Walk implements the exif.Walker interface.
func (w *tagWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag != nil {
		w.tags[string(name)] = tag.String()
	}
	return nil
}

// Extract implements extract.Extractor. An image with no EXIF block yields
// empty content rather than an error, so planning still records "nothing
// found". Tags are emitted in sorted name order for deterministic offsets.
func (e *Extractor) Extract(path string) (*extract.Content, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	content := &extract.Content{
		Path:      path,
		PageCount: 1,
		Rotations: map[int]int{},
	}

	x, err := exif.Decode(f)
	if err != nil {
		content.Pages = []detect.PageSpan{{Page: 0, Start: 0, End: 0}}
		return content, nil
	}

	walker := &tagWalker{tags: make(map[string]string)}
	x.Walk(walker)

	names := make([]string, 0, len(walker.tags))
	for name := range walker.tags {
		names = append(names, name)
	}
	sort.Strings(names)

	var builder strings.Builder
	line := 0
	for _, name := range names {
		text := fmt.Sprintf("%s: %s", name, strings.Trim(walker.tags[name], `"`))
		content.Runs = append(content.Runs, geometry.TextRun{
			Page:  0,
			Start: builder.Len(),
			Text:  text,
			Rect: geometry.Rect{
				X: 0,
				Y: float64(len(names)-line) * lineHeight,
				W: float64(len(text)) * charWidth,
				H: lineHeight,
			},
		})
		builder.WriteString(text)
		builder.WriteString("\n")
		line++
	}

	content.Text = builder.String()
	content.Pages = []detect.PageSpan{{Page: 0, Start: 0, End: len(content.Text)}}
	return content, nil
}
