// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redaction

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"custodia/internal/document"
	"custodia/internal/extract"
	"custodia/internal/geometry"
	"custodia/internal/hashing"
	"custodia/internal/ledger"
	"custodia/internal/observability"
	"custodia/internal/planstore"
)

// Applier executes a stored plan against its document.
type Applier struct {
	extractors *extract.Registry
	editors    *document.Registry
	store      *planstore.Store
	ledger     *ledger.Ledger
	observer   *observability.StandardObserver
}

func NewApplier(extractors *extract.Registry, editors *document.Registry, store *planstore.Store, led *ledger.Ledger, observer *observability.StandardObserver) *Applier {
	return &Applier{
		extractors: extractors,
		editors:    editors,
		store:      store,
		ledger:     led,
		observer:   observer,
	}
}

// ApplyResult summarizes one completed apply.
type ApplyResult struct {
	PlanID        string
	OutputPath    string
	OutputHash    string
	AppliedCount  int
	SkippedCount  int
	PurgedCount   int
	SurvivedCount int
	Forced        bool
	Warnings      []Warning
}

// Apply loads the plan, re-hashes the document, and refuses to proceed
// on a hash mismatch unless force is set. On the happy path every
// resolvable action is purged from a copy of the document, the copy is
// moved into place at outputPath, and the ledger records the apply with
// the output hash. After the output is written it is re-extracted and
// checked: any applied literal still present in the output's text view
// is reported as a content_survived warning and counted in the ledger
// entry. Nothing is written before the gate passes. jobID tags the
// ledger entry when applying runs as part of a batch job; empty means a
// standalone invocation.
func (a *Applier) Apply(planID, outputPath string, force bool, jobID string) (*ApplyResult, error) {
	if a.extractors == nil || a.editors == nil || a.store == nil || a.ledger == nil {
		return nil, &ConfigurationError{Detail: "applier assembled without extractors, editors, store, or ledger"}
	}
	finish := a.observer.StartTiming("applier", "redaction_apply", outputPath)

	data, err := a.store.Load(planID)
	if err != nil {
		finish(false, nil)
		return nil, err
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		finish(false, nil)
		return nil, fmt.Errorf("decoding plan %s: %w", planID, err)
	}

	currentHash, err := hashing.HashFile(plan.DocumentPath)
	if err != nil {
		finish(false, nil)
		return nil, fmt.Errorf("hashing document: %w", err)
	}
	forced := false
	if currentHash != plan.InputHash {
		if !force {
			finish(false, nil)
			return nil, &PlanHashMismatchError{
				PlanID:      planID,
				PlanHash:    plan.InputHash,
				CurrentHash: currentHash,
			}
		}
		forced = true
	}

	content, err := a.extractors.Extract(plan.DocumentPath)
	if err != nil {
		finish(false, nil)
		return nil, fmt.Errorf("extracting %s: %w", plan.DocumentPath, err)
	}

	editor, err := a.editors.ForFile(plan.DocumentPath)
	if err != nil {
		finish(false, nil)
		return nil, err
	}

	result := &ApplyResult{
		PlanID:     planID,
		OutputPath: outputPath,
		Forced:     forced,
	}

	warn := func(i int, action Action, reason, detail string) {
		w := Warning{
			ActionIndex: i,
			EntityType:  action.EntityType,
			Reason:      reason,
			Detail:      detail,
		}
		result.Warnings = append(result.Warnings, w)
		a.observer.LogWarning("applier", reason, plan.DocumentPath, map[string]interface{}{
			"action_index": i,
			"entity_type":  action.EntityType,
			"detail":       detail,
		})
	}

	rotationWarned := map[int]bool{}
	redactions := make([]document.Redaction, 0, len(plan.Actions))
	appliedIdx := make([]int, 0, len(plan.Actions))
	for i, action := range plan.Actions {
		if action.Page != nil && (*action.Page < 0 || (content.PageCount > 0 && *action.Page >= content.PageCount)) {
			result.SkippedCount++
			warn(i, action, WarnInvalidPage, fmt.Sprintf("page %d outside document of %d pages", *action.Page+1, content.PageCount))
			continue
		}
		regions := geometry.Resolve(content.Runs, action.Start, action.End, action.Literal)
		if len(regions) == 0 {
			result.SkippedCount++
			warn(i, action, WarnGeometryUnresolved, "span not located in document geometry")
			continue
		}
		page := resolveActionPage(content.Runs, action)
		if deg, rotated := content.Rotations[page]; rotated && !rotationWarned[page] {
			rotationWarned[page] = true
			warn(i, action, WarnRotatedPage, fmt.Sprintf("page %d rotated %d degrees, geometry resolved in unrotated space", page+1, deg))
		}
		redactions = append(redactions, document.Redaction{
			Page:       page,
			Start:      action.Start,
			End:        action.End,
			Literal:    action.Literal,
			EntityType: action.EntityType,
			Regions:    regions,
		})
		appliedIdx = append(appliedIdx, i)
		result.AppliedCount++
	}

	tmp := outputPath + ".tmp"
	purged, err := editor.Apply(plan.DocumentPath, tmp, redactions)
	if err != nil {
		os.Remove(tmp)
		finish(false, nil)
		return nil, fmt.Errorf("editing document: %w", err)
	}
	result.PurgedCount = purged
	if err := os.Rename(tmp, outputPath); err != nil {
		os.Remove(tmp)
		finish(false, nil)
		return nil, fmt.Errorf("finalizing output: %w", err)
	}

	a.verifyOutput(&plan, outputPath, redactions, appliedIdx, warn, result)

	result.OutputHash, err = hashing.HashFile(outputPath)
	if err != nil {
		finish(false, nil)
		return nil, fmt.Errorf("hashing output: %w", err)
	}

	args := ledger.Args(
		"plan_id", planID,
		"input_hash", plan.InputHash,
		"output_hash", result.OutputHash,
		"applied_count", strconv.Itoa(result.AppliedCount),
		"skipped_count", strconv.Itoa(result.SkippedCount),
		"purged_occurrences", strconv.Itoa(result.PurgedCount),
		"survived_count", strconv.Itoa(result.SurvivedCount),
		"forced", strconv.FormatBool(forced),
	)
	if jobID != "" {
		args = append(args, ledger.Arg{Key: "job_id", Value: jobID})
	}
	_, err = a.ledger.Append("redaction_apply",
		[]string{plan.DocumentPath, planID},
		[]string{outputPath},
		args)
	if err != nil {
		finish(false, nil)
		return nil, fmt.Errorf("recording apply: %w", err)
	}

	finish(true, map[string]interface{}{
		"plan_id":        planID,
		"applied_count":  result.AppliedCount,
		"skipped_count":  result.SkippedCount,
		"survived_count": result.SurvivedCount,
		"forced":         forced,
	})
	return result, nil
}

// verifyOutput re-extracts the written output and checks that no applied
// literal is still readable in its text view. Editors remove text
// structurally, and a producer can lay the same characters out in ways
// an editor's pass does not reach, so success of the edit alone is not
// proof of removal. Survivors become content_survived warnings and raise
// SurvivedCount; they never roll back the apply, since the output plus
// the warning is more useful to review than no output.
func (a *Applier) verifyOutput(plan *Plan, outputPath string, redactions []document.Redaction, appliedIdx []int, warn func(int, Action, string, string), result *ApplyResult) {
	outContent, err := a.extractors.Extract(outputPath)
	if err != nil {
		a.observer.LogWarning("applier", "output re-extraction failed, removal unverified", outputPath, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	for k, r := range redactions {
		if r.Literal == "" || !strings.Contains(outContent.Text, r.Literal) {
			continue
		}
		result.SurvivedCount++
		warn(appliedIdx[k], plan.Actions[appliedIdx[k]], WarnContentSurvived,
			"redacted text still present in output text view")
	}
}

// resolveActionPage attributes an action to a page. Actions planned with
// a page keep it. An action without one is attributed to the first run
// containing its start offset, then to the first run whose text carries
// the literal; first match wins.
func resolveActionPage(runs []geometry.TextRun, action Action) int {
	if action.Page != nil {
		return *action.Page
	}
	for _, run := range runs {
		if action.Start >= run.Start && action.Start < run.End() {
			return run.Page
		}
	}
	if action.Literal != "" {
		for _, run := range runs {
			if strings.Contains(run.Text, action.Literal) {
				return run.Page
			}
		}
	}
	return -1
}
