// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package textdoc edits plain text documents. The text view of a plain
// text file is the file itself, so offset splices are exact and the
// purge guarantee is absolute: the matched bytes are gone from the
// output, replaced by a bracketed token.
package textdoc

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"custodia/internal/document"
)

type Editor struct{}

func New() *Editor {
	return &Editor{}
}

func (e *Editor) Name() string {
	return "text_editor"
}

func (e *Editor) CanEdit(path string) bool {
	return document.HasExt(path, ".txt", ".text", ".log", ".md", ".csv")
}

// Apply splices each redaction out of the file content. Splices run in
// descending start order so earlier offsets stay valid while later ones
// are rewritten. A redaction whose offsets no longer frame its literal
// falls back to replacing every occurrence of the literal.
func (e *Editor) Apply(sourcePath, outputPath string, redactions []document.Redaction) (int, error) {
	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", sourcePath, err)
	}
	text := string(raw)

	sorted := make([]document.Redaction, len(redactions))
	copy(sorted, redactions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})

	purged := 0
	for _, r := range sorted {
		replacement := document.ReplacementFor(r.EntityType)
		if r.Start >= 0 && r.End <= len(text) && r.Start < r.End && text[r.Start:r.End] == r.Literal {
			text = text[:r.Start] + replacement + text[r.End:]
			purged++
			continue
		}
		if r.Literal != "" {
			if n := strings.Count(text, r.Literal); n > 0 {
				text = strings.ReplaceAll(text, r.Literal, replacement)
				purged += n
			}
		}
	}

	if err := os.WriteFile(outputPath, []byte(text), 0600); err != nil {
		return 0, fmt.Errorf("writing %s: %w", outputPath, err)
	}
	return purged, nil
}
