// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package geometry converts character spans of the extracted text view into
// bounding regions on a page. It is pure computation over the text runs the
// extraction layer produced; it opens no files and mutates nothing.
package geometry

import "strings"

// Rect is an axis-aligned bounding rectangle in page coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Union returns the smallest rectangle covering both r and o.
func (r Rect) Union(o Rect) Rect {
	minX := r.X
	if o.X < minX {
		minX = o.X
	}
	minY := r.Y
	if o.Y < minY {
		minY = o.Y
	}
	maxX := r.X + r.W
	if o.X+o.W > maxX {
		maxX = o.X + o.W
	}
	maxY := r.Y + r.H
	if o.Y+o.H > maxY {
		maxY = o.Y + o.H
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// TextRun is one ordered run of page text with known character length and
// bounding rectangle. Start is the run's offset in the concatenated document
// text view, so spans and runs share one coordinate space.
type TextRun struct {
	Page  int
	Start int
	Text  string
	Rect  Rect
}

// End returns the offset one past the run's last character.
func (r TextRun) End() int { return r.Start + len(r.Text) }

// Resolve maps the character span [start, end) to bounding regions on a page,
// given that page's runs in reading order. The primary strategy walks the runs
// by character offset and returns a region per overlapping run, trimmed
// proportionally where the span covers only part of a run. When offsets no
// longer correspond to the page (layout re-flow), the fallback searches the
// runs for literal occurrences of the matched text and returns every matching
// rectangle. If both strategies fail the result is empty; callers treat that
// as a skippable, non-fatal condition.
func Resolve(runs []TextRun, start, end int, literal string) []Rect {
	if end <= start {
		return nil
	}
	if regions := resolveByOffset(runs, start, end); len(regions) > 0 {
		return regions
	}
	return resolveByLiteral(runs, literal)
}

// resolveByOffset walks runs in order and collects a region for every run the
// span overlaps.
func resolveByOffset(runs []TextRun, start, end int) []Rect {
	var regions []Rect
	for _, run := range runs {
		if run.End() <= start || run.Start >= end {
			continue
		}
		from := start
		if run.Start > from {
			from = run.Start
		}
		to := end
		if run.End() < to {
			to = run.End()
		}
		regions = append(regions, subRect(run, from-run.Start, to-run.Start))
	}
	return regions
}

// resolveByLiteral returns a region for every occurrence of literal within
// any run's text. Matching is case-sensitive: the literal is the exact span
// recorded at plan time.
func resolveByLiteral(runs []TextRun, literal string) []Rect {
	if literal == "" {
		return nil
	}
	var regions []Rect
	for _, run := range runs {
		from := 0
		for {
			idx := strings.Index(run.Text[from:], literal)
			if idx < 0 {
				break
			}
			matchStart := from + idx
			regions = append(regions, subRect(run, matchStart, matchStart+len(literal)))
			from = matchStart + len(literal)
		}
	}
	return regions
}

// subRect trims a run's rectangle to the character range [from, to) by
// proportional width. Character widths within a run are approximated as
// uniform.
func subRect(run TextRun, from, to int) Rect {
	n := len(run.Text)
	if n == 0 || (from == 0 && to >= n) {
		return run.Rect
	}
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	perChar := run.Rect.W / float64(n)
	return Rect{
		X: run.Rect.X + perChar*float64(from),
		Y: run.Rect.Y,
		W: perChar * float64(to-from),
		H: run.Rect.H,
	}
}

// RunsForPage filters runs to a single page, preserving order.
func RunsForPage(runs []TextRun, page int) []TextRun {
	var out []TextRun
	for _, run := range runs {
		if run.Page == page {
			out = append(out, run)
		}
	}
	return out
}
