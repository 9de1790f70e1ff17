// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pdftext extracts the text view of a PDF using ledongthuc/pdf,
// preserving per-row bounding geometry so findings can later be mapped back
// onto the page.
package pdftext

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"custodia/internal/detect"
	"custodia/internal/extract"
	"custodia/internal/geometry"
)

// defaultFontSize substitutes for rows whose elements carry no size.
const defaultFontSize = 12.0

// Extractor reads PDF documents.
type Extractor struct{}

// NewExtractor creates a PDF extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Name implements extract.Extractor.
func (e *Extractor) Name() string { return "pdftext" }

// CanExtract implements extract.Extractor.
func (e *Extractor) CanExtract(path string) bool {
	return extract.HasExt(path, ".pdf")
}

// Extract implements extract.Extractor. Rows are ordered top-to-bottom and
// elements left-to-right before concatenation, so the text view reads in
// layout order and each row becomes one geometry run.
func (e *Extractor) Extract(path string) (*extract.Content, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	content := &extract.Content{
		Path:      path,
		PageCount: r.NumPage(),
		Rotations: map[int]int{},
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		p := r.Page(pageNum)
		if p.V.IsNull() {
			continue
		}
		pageIndex := pageNum - 1

		if rotate := pageRotation(p); rotate%360 != 0 {
			content.Rotations[pageIndex] = rotate % 360
		}

		pageStart := builder.Len()
		rows, err := p.GetTextByRow()
		if err == nil {
			appendRows(content, &builder, pageIndex, rows)
		} else if plain, perr := p.GetPlainText(nil); perr == nil {
			// No row geometry available; the text still feeds detection,
			// and the applier falls back to literal search.
			builder.WriteString(plain)
		}

		builder.WriteString("\n")
		content.Pages = append(content.Pages, detect.PageSpan{
			Page:  pageIndex,
			Start: pageStart,
			End:   builder.Len(),
		})
	}

	content.Text = builder.String()
	return content, nil
}

// appendRows writes one text line per row and records its bounding run.
func appendRows(content *extract.Content, builder *strings.Builder, pageIndex int, rows pdf.Rows) {
	sorted := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sorted = append(sorted, row)
		}
	}
	// PDF Y grows bottom-to-top; higher Y reads first.
	sort.SliceStable(sorted, func(i, j int) bool {
		return averageY(sorted[i].Content) > averageY(sorted[j].Content)
	})

	for _, row := range sorted {
		text, rect := reconstructRow(row.Content)
		if strings.TrimSpace(text) == "" {
			continue
		}
		content.Runs = append(content.Runs, geometry.TextRun{
			Page:  pageIndex,
			Start: builder.Len(),
			Text:  text,
			Rect:  rect,
		})
		builder.WriteString(text)
		builder.WriteString("\n")
	}
}

func averageY(elements []pdf.Text) float64 {
	if len(elements) == 0 {
		return 0
	}
	var total float64
	for _, element := range elements {
		total += element.Y
	}
	return total / float64(len(elements))
}

// reconstructRow orders a row's elements left-to-right, inserts spaces where
// coordinate gaps indicate word boundaries, and computes the row's bounding
// rectangle.
func reconstructRow(elements []pdf.Text) (string, geometry.Rect) {
	sorted := make([]pdf.Text, len(elements))
	copy(sorted, elements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].X < sorted[j].X
	})

	var buf strings.Builder
	minX, maxX := sorted[0].X, sorted[0].X+sorted[0].W
	minY := sorted[0].Y
	maxSize := defaultFontSize

	for i, element := range sorted {
		buf.WriteString(element.S)

		if element.X < minX {
			minX = element.X
		}
		if element.X+element.W > maxX {
			maxX = element.X + element.W
		}
		if element.Y < minY {
			minY = element.Y
		}
		if element.FontSize > maxSize {
			maxSize = element.FontSize
		}

		if i < len(sorted)-1 {
			fontSize := element.FontSize
			if fontSize <= 0 {
				fontSize = defaultFontSize
			}
			// A gap wider than 20% of the font size is a word boundary.
			if sorted[i+1].X-(element.X+element.W) > fontSize*0.2 {
				buf.WriteString(" ")
			}
		}
	}

	rect := geometry.Rect{X: minX, Y: minY, W: maxX - minX, H: maxSize}
	return buf.String(), rect
}

// pageRotation reads the page's /Rotate entry.
func pageRotation(p pdf.Page) int {
	v := p.V.Key("Rotate")
	if v.IsNull() {
		return 0
	}
	return int(v.Int64())
}
