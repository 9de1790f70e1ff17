// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package report renders plan, apply, and verification outcomes for the
// command line.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"custodia/internal/detect"
	"custodia/internal/ledger"
	"custodia/internal/parallel"
	"custodia/internal/redaction"
)

// Reporter writes human-readable summaries.
type Reporter struct {
	w       io.Writer
	verbose bool
	colors  map[string]*color.Color
}

func New(w io.Writer, noColor, verbose bool) *Reporter {
	if noColor {
		color.NoColor = true
	}
	return &Reporter{
		w:       w,
		verbose: verbose,
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"cyan":   color.New(color.FgCyan),
			"bold":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (r *Reporter) PlanSummary(plan *redaction.Plan) {
	r.colors["bold"].Fprintf(r.w, "Plan %s\n", plan.PlanID)
	fmt.Fprintf(r.w, "  document:   %s\n", plan.DocumentPath)
	fmt.Fprintf(r.w, "  input hash: %s\n", plan.InputHash)
	fmt.Fprintf(r.w, "  actions:    %d\n", len(plan.Actions))

	if !r.verbose {
		return
	}
	for i, a := range plan.Actions {
		page := "-"
		if a.Page != nil {
			page = fmt.Sprintf("%d", *a.Page+1)
		}
		fmt.Fprintf(r.w, "  [%d] %s page %s offsets %d-%d score %.2f\n",
			i, a.EntityType, page, a.Start, a.End, a.Score)
	}
}

func (r *Reporter) ApplySummary(result *redaction.ApplyResult) {
	r.colors["bold"].Fprintf(r.w, "Applied plan %s\n", result.PlanID)
	fmt.Fprintf(r.w, "  output:      %s\n", result.OutputPath)
	fmt.Fprintf(r.w, "  output hash: %s\n", result.OutputHash)
	r.colors["green"].Fprintf(r.w, "  applied:     %d\n", result.AppliedCount)
	if result.SkippedCount > 0 {
		r.colors["yellow"].Fprintf(r.w, "  skipped:     %d\n", result.SkippedCount)
	}
	if result.SurvivedCount > 0 {
		r.colors["red"].Fprintf(r.w, "  survived:    %d span(s) still readable in output\n", result.SurvivedCount)
	}
	if result.Forced {
		r.colors["red"].Fprintln(r.w, "  forced apply: document changed after planning")
	}
	for _, w := range result.Warnings {
		r.colors["yellow"].Fprintf(r.w, "  warning: %s\n", w)
	}
}

func (r *Reporter) VerifySummary(path string, result ledger.VerificationResult) {
	if result.OK {
		r.colors["green"].Fprintf(r.w, "ledger OK: %s\n", path)
		fmt.Fprintf(r.w, "  entries: %d\n", result.Entries)
		return
	}
	r.colors["red"].Fprintf(r.w, "ledger FAILED: %s\n", path)
	fmt.Fprintf(r.w, "  entries checked: %d\n", result.Entries)
	fmt.Fprintf(r.w, "  first failure:   sequence %d (%s)\n", result.FailedSequence, result.Reason)
	if result.Detail != "" {
		fmt.Fprintf(r.w, "  detail:          %s\n", result.Detail)
	}
}

// ScanSummary reports detection results without any plan context. The
// matched text itself is never printed.
func (r *Reporter) ScanSummary(path string, findings []detect.Finding) {
	if len(findings) == 0 {
		r.colors["green"].Fprintf(r.w, "clean %s\n", path)
		return
	}
	r.colors["yellow"].Fprintf(r.w, "%d findings in %s\n", len(findings), path)
	if !r.verbose {
		return
	}
	for _, f := range findings {
		page := "-"
		if f.Page != nil {
			page = fmt.Sprintf("%d", *f.Page+1)
		}
		fmt.Fprintf(r.w, "  %s page %s offsets %d-%d score %.2f (%s)\n",
			f.EntityType, page, f.Start, f.End, f.Score, f.Analyzer)
	}
}

func (r *Reporter) JobResult(result *parallel.Result) {
	if result.Error != nil {
		r.colors["red"].Fprintf(r.w, "FAIL %s: %v\n", result.FilePath, result.Error)
		return
	}
	line := fmt.Sprintf("ok   %s: %d findings", result.FilePath, len(result.Plan.Actions))
	if result.Apply != nil {
		line += fmt.Sprintf(", %d applied", result.Apply.AppliedCount)
		if result.Apply.SkippedCount > 0 {
			line += fmt.Sprintf(", %d skipped", result.Apply.SkippedCount)
		}
	}
	r.colors["cyan"].Fprintln(r.w, line)
	if r.verbose {
		fmt.Fprintf(r.w, "     plan %s (%s)\n", result.Plan.PlanID, result.Duration.Round(time.Millisecond))
	}
}
