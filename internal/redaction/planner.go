// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redaction

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"custodia/internal/detect"
	"custodia/internal/extract"
	"custodia/internal/hashing"
	"custodia/internal/ledger"
	"custodia/internal/observability"
	"custodia/internal/planstore"
)

// Planner turns a document into a sealed redaction plan.
type Planner struct {
	extractors *extract.Registry
	detector   *detect.Detector
	store      *planstore.Store
	ledger     *ledger.Ledger
	observer   *observability.StandardObserver
}

func NewPlanner(extractors *extract.Registry, detector *detect.Detector, store *planstore.Store, led *ledger.Ledger, observer *observability.StandardObserver) *Planner {
	return &Planner{
		extractors: extractors,
		detector:   detector,
		store:      store,
		ledger:     led,
		observer:   observer,
	}
}

// Plan hashes the document, detects sensitive spans, and persists the
// resulting plan encrypted under its content-derived ID. The ledger
// records the operation with the plan ID and input hash; matched text
// never reaches the ledger. jobID tags the ledger entry when planning
// runs as part of a batch job; empty means a standalone invocation.
func (p *Planner) Plan(path string, entityFilter []string, jobID string) (*Plan, error) {
	if p.detector == nil || p.extractors == nil || p.store == nil || p.ledger == nil {
		return nil, &ConfigurationError{Detail: "planner assembled without detector, extractors, store, or ledger"}
	}
	finish := p.observer.StartTiming("planner", "redaction_plan_create", path)

	inputHash, err := hashing.HashFile(path)
	if err != nil {
		finish(false, nil)
		return nil, fmt.Errorf("hashing input: %w", err)
	}

	// A document whose content cannot be extracted still gets a plan:
	// zero actions, recorded like any other, so the batch does not stall
	// on one corrupt file.
	content, err := p.extractors.Extract(path)
	if err != nil {
		p.observer.LogWarning("planner", "content extraction failed, planning zero actions", path, map[string]interface{}{
			"error": err.Error(),
		})
		content = &extract.Content{Path: path}
	}

	findings, err := p.detector.Detect(content.Text, content.Pages, entityFilter)
	if err != nil {
		finish(false, nil)
		return nil, fmt.Errorf("detecting in %s: %w", path, err)
	}

	actions := make([]Action, 0, len(findings))
	for i := range findings {
		f := &findings[i]
		actions = append(actions, Action{
			Page:       f.Page,
			Start:      f.Start,
			End:        f.End,
			EntityType: f.EntityType,
			Score:      f.Score,
			Literal:    f.Text,
			Analyzer:   f.Analyzer,
		})
		f.Clear()
	}
	sortActions(actions)

	plan := &Plan{
		PlanID:       ComputePlanID(path, inputHash, actions),
		DocumentPath: path,
		InputHash:    inputHash,
		CreatedAt:    time.Now().UTC(),
		Actions:      actions,
		Annotations:  annotate(p.detector.Names(), actions),
	}

	data, err := json.Marshal(plan)
	if err != nil {
		finish(false, nil)
		return nil, fmt.Errorf("encoding plan: %w", err)
	}
	if err := p.store.Save(plan.PlanID, data); err != nil {
		finish(false, nil)
		return nil, err
	}

	args := ledger.Args(
		"plan_id", plan.PlanID,
		"input_hash", inputHash,
		"finding_count", strconv.Itoa(len(actions)),
	)
	if jobID != "" {
		args = append(args, ledger.Arg{Key: "job_id", Value: jobID})
	}
	_, err = p.ledger.Append("redaction_plan_create",
		[]string{path},
		[]string{plan.PlanID},
		args)
	if err != nil {
		finish(false, nil)
		return nil, fmt.Errorf("recording plan: %w", err)
	}

	finish(true, map[string]interface{}{
		"plan_id":       plan.PlanID,
		"finding_count": len(actions),
		"page_count":    content.PageCount,
	})
	return plan, nil
}
