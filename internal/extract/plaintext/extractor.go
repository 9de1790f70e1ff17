// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plaintext

import (
	"fmt"
	"os"
	"strings"

	"custodia/internal/detect"
	"custodia/internal/extract"
	"custodia/internal/geometry"
)

// Synthetic page metrics for plain text: a fixed-pitch 80x66 layout, the
// classic line-printer page. Text documents have no real geometry, so runs
// are laid out on this grid to keep the offset-to-geometry path uniform
// across formats.
const (
	charWidth  = 7.2
	lineHeight = 12.0
	pageLines  = 66
)

// Extractor reads plain text documents. Each block of pageLines lines forms
// one synthetic page.
type Extractor struct{}

// NewExtractor creates a plain text extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Name implements extract.Extractor.
func (e *Extractor) Name() string { return "plaintext" }

// CanExtract implements extract.Extractor.
func (e *Extractor) CanExtract(path string) bool {
	return extract.HasExt(path, ".txt", ".text", ".log", ".csv", ".md")
}

// Extract implements extract.Extractor. The file's own bytes become the text
// view unchanged, so character offsets in findings slice directly into the
// source document.
func (e *Extractor) Extract(path string) (*extract.Content, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text document: %w", err)
	}

	text := string(raw)
	content := &extract.Content{
		Path:      path,
		Text:      text,
		Rotations: map[int]int{},
	}

	lines := strings.SplitAfter(text, "\n")
	offset := 0
	page := 0
	pageStart := 0
	lineOnPage := 0

	for _, line := range lines {
		if line == "" {
			continue
		}
		content.Runs = append(content.Runs, geometry.TextRun{
			Page:  page,
			Start: offset,
			Text:  strings.TrimRight(line, "\n"),
			Rect: geometry.Rect{
				X: 0,
				Y: float64(pageLines-lineOnPage) * lineHeight,
				W: float64(len(strings.TrimRight(line, "\n"))) * charWidth,
				H: lineHeight,
			},
		})
		offset += len(line)
		lineOnPage++
		if lineOnPage == pageLines {
			content.Pages = append(content.Pages, detect.PageSpan{Page: page, Start: pageStart, End: offset})
			page++
			pageStart = offset
			lineOnPage = 0
		}
	}
	if offset > pageStart || len(content.Pages) == 0 {
		content.Pages = append(content.Pages, detect.PageSpan{Page: page, Start: pageStart, End: len(text)})
	}
	content.PageCount = len(content.Pages)

	return content, nil
}
