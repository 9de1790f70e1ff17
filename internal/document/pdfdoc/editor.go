// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pdfdoc edits PDF documents with pdfcpu. Redacted text is
// purged from the page content streams, not covered by an annotation:
// occurrences of the matched literal are overwritten with spaces of the
// same length inside the decoded streams, so the original bytes do not
// survive into the output file. Two passes run per literal: a direct
// byte replace for text shown in one string, and a TJ-array pass that
// blanks show arrays whose concatenated pieces carry the literal.
package pdfdoc

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"custodia/internal/document"
)

type Editor struct {
	conf *model.Configuration
}

func New() *Editor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Editor{conf: conf}
}

func (e *Editor) Name() string {
	return "pdf_editor"
}

func (e *Editor) CanEdit(path string) bool {
	return document.HasExt(path, ".pdf")
}

// Apply validates the source PDF, scrubs every redaction literal out of
// its content streams, and writes the rewritten document to outputPath.
// Text a producer split across separate show operators or encoded
// through a subset font can survive the scrub; the applier detects that
// by re-extracting the output, not here.
func (e *Editor) Apply(sourcePath, outputPath string, redactions []document.Redaction) (int, error) {
	if err := api.ValidateFile(sourcePath, e.conf); err != nil {
		return 0, fmt.Errorf("validating %s: %w", sourcePath, err)
	}

	ctx, err := api.ReadContextFile(sourcePath)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", sourcePath, err)
	}

	purged := 0
	for _, r := range redactions {
		if r.Literal == "" {
			continue
		}
		n, err := scrubStreams(ctx, []byte(r.Literal))
		if err != nil {
			return purged, fmt.Errorf("scrubbing %q: %w", r.EntityType, err)
		}
		purged += n
	}

	if err := api.WriteContextFile(ctx, outputPath); err != nil {
		return purged, fmt.Errorf("writing %s: %w", outputPath, err)
	}
	return purged, nil
}

// scrubStreams walks every stream object in the cross-reference table
// and blanks needle in the decoded stream content, returning how many
// occurrences were removed. Streams that do not decode (images,
// embedded files with unsupported filters) are skipped; they cannot
// carry the text view's characters.
func scrubStreams(ctx *model.Context, needle []byte) (int, error) {
	purged := 0

	for objNr, entry := range ctx.XRefTable.Table {
		if entry == nil || entry.Free || entry.Object == nil {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if err := sd.Decode(); err != nil {
			continue
		}

		content, n := scrubContent(sd.Content, needle)
		if n == 0 {
			continue
		}
		purged += n

		sd.Content = content
		sd.Raw = nil
		if err := sd.Encode(); err != nil {
			return purged, fmt.Errorf("re-encoding stream %d: %w", objNr, err)
		}
		entry.Object = sd
	}
	return purged, nil
}

// scrubContent removes needle from one decoded content stream. The
// direct pass blanks contiguous occurrences; the TJ pass blanks show
// arrays whose string pieces only carry the literal when concatenated.
func scrubContent(content, needle []byte) ([]byte, int) {
	n := bytes.Count(content, needle)
	if n > 0 {
		content = bytes.ReplaceAll(content, needle, bytes.Repeat([]byte(" "), len(needle)))
	}
	content, tjN := scrubTJArrays(content, needle)
	return content, n + tjN
}

// scrubTJArrays scans for [...] TJ show arrays, concatenates their
// string literals, and blanks every string in an array that carries the
// needle. Blanking the whole array over-redacts within one show op,
// which is the safe direction.
func scrubTJArrays(content, needle []byte) ([]byte, int) {
	purged := 0
	out := make([]byte, 0, len(content))
	i := 0
	for i < len(content) {
		open := bytes.IndexByte(content[i:], '[')
		if open < 0 {
			out = append(out, content[i:]...)
			break
		}
		open += i
		arrEnd, strs := parseShowArray(content, open)
		if arrEnd < 0 || !isTJOperator(content, arrEnd) {
			out = append(out, content[i:open+1]...)
			i = open + 1
			continue
		}

		var joined []byte
		for _, s := range strs {
			joined = append(joined, content[s.start:s.end]...)
		}
		if !bytes.Contains(unescapeString(joined), needle) {
			out = append(out, content[i:arrEnd]...)
			i = arrEnd
			continue
		}

		// Blank every string body in the array, keeping array shape
		// and kerning numbers so the stream stays well formed.
		purged++
		prev := i
		for _, s := range strs {
			out = append(out, content[prev:s.start]...)
			out = append(out, bytes.Repeat([]byte(" "), s.end-s.start)...)
			prev = s.end
		}
		out = append(out, content[prev:arrEnd]...)
		i = arrEnd
	}
	return out, purged
}

type stringSpan struct {
	start, end int // body of a (...) literal, parens excluded
}

// parseShowArray parses a PDF array starting at content[open] == '['.
// It returns the index one past the closing bracket and the spans of
// every string literal inside, or -1 when the array never closes or
// nests.
func parseShowArray(content []byte, open int) (int, []stringSpan) {
	var strs []stringSpan
	i := open + 1
	for i < len(content) {
		switch content[i] {
		case ']':
			return i + 1, strs
		case '[', '<':
			// Nested array or hex string: not the simple show arrays
			// this pass handles.
			return -1, nil
		case '(':
			depth := 1
			j := i + 1
			for j < len(content) && depth > 0 {
				switch content[j] {
				case '\\':
					j++
				case '(':
					depth++
				case ')':
					depth--
				}
				j++
			}
			if depth != 0 {
				return -1, nil
			}
			strs = append(strs, stringSpan{start: i + 1, end: j - 1})
			i = j
		default:
			i++
		}
	}
	return -1, nil
}

// isTJOperator reports whether the next token after the array is TJ.
func isTJOperator(content []byte, from int) bool {
	i := from
	for i < len(content) && (content[i] == ' ' || content[i] == '\n' || content[i] == '\r' || content[i] == '\t') {
		i++
	}
	return i+1 < len(content) && content[i] == 'T' && content[i+1] == 'J'
}

// unescapeString resolves the escapes that matter for matching literal
// text: escaped parens and backslashes. Octal and other escapes pass
// through untouched; a miss there only means the verification pass
// reports the survivor instead.
func unescapeString(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '(', ')', '\\':
				out = append(out, s[i+1])
				i++
				continue
			}
		}
		out = append(out, s[i])
	}
	return out
}
