// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redaction

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"custodia/internal/detect"
	"custodia/internal/detect/email"
	"custodia/internal/detect/ssn"
	"custodia/internal/document"
	"custodia/internal/document/textdoc"
	"custodia/internal/extract"
	"custodia/internal/extract/plaintext"
	"custodia/internal/hashing"
	"custodia/internal/ledger"
	"custodia/internal/observability"
	"custodia/internal/planstore"
)

type harness struct {
	dir     string
	planner *Planner
	applier *Applier
	ledger  *ledger.Ledger
	store   *planstore.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	obs := observability.NewStandardObserver(observability.ObservabilityOff, io.Discard)

	led, err := ledger.Open(filepath.Join(dir, "audit.ledger"), ledger.Options{
		KeyPath:  filepath.Join(dir, "ledger.key"),
		Observer: obs,
	})
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() })

	store, err := planstore.Open(filepath.Join(dir, "plans"), filepath.Join(dir, "plan.key"))
	require.NoError(t, err)

	extractors := extract.NewRegistry(plaintext.NewExtractor())
	editors := document.NewRegistry(textdoc.New())

	detector, err := detect.NewDetector([]detect.Analyzer{ssn.NewAnalyzer(), email.NewAnalyzer()}, obs)
	require.NoError(t, err)

	return &harness{
		dir:     dir,
		planner: NewPlanner(extractors, detector, store, led, obs),
		applier: NewApplier(extractors, editors, store, led, obs),
		ledger:  led,
		store:   store,
	}
}

func (h *harness) writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const sampleDoc = "Custodian: Jane Smith\nSSN: 078-05-1120\nContact: jane.smith@acmecorp.com\n"

func TestPlanIsDeterministic(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)

	first, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)
	second, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)

	require.Equal(t, first.PlanID, second.PlanID)
	require.Equal(t, first.Actions, second.Actions)
	require.True(t, h.store.Exists(first.PlanID))
}

func TestPlanFindsExpectedEntities(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)

	plan, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)
	require.Len(t, plan.Actions, 2)

	types := []string{plan.Actions[0].EntityType, plan.Actions[1].EntityType}
	require.Contains(t, types, detect.EntitySSN)
	require.Contains(t, types, detect.EntityEmail)

	// Actions arrive in canonical page, start order.
	require.Less(t, plan.Actions[0].Start, plan.Actions[1].Start)
}

func TestApplyRemovesContent(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)
	out := filepath.Join(h.dir, "memo.redacted.txt")

	plan, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)

	result, err := h.applier.Apply(plan.PlanID, out, false, "")
	require.NoError(t, err)
	require.Equal(t, len(plan.Actions), result.AppliedCount)
	require.Zero(t, result.SkippedCount)
	require.False(t, result.Forced)

	redacted, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NotContains(t, string(redacted), "078-05-1120")
	require.NotContains(t, string(redacted), "jane.smith@acmecorp.com")
	require.Contains(t, string(redacted), "[SSN-REDACTED]")

	outHash, err := hashing.HashFile(out)
	require.NoError(t, err)
	require.Equal(t, outHash, result.OutputHash)

	// Source document is untouched.
	original, err := os.ReadFile(doc)
	require.NoError(t, err)
	require.Equal(t, sampleDoc, string(original))
}

func TestApplyRefusesChangedDocument(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)
	out := filepath.Join(h.dir, "memo.redacted.txt")

	plan, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)

	before, err := h.ledger.Len()
	require.NoError(t, err)

	h.writeDoc(t, "memo.txt", sampleDoc+"Appended after planning.\n")

	_, err = h.applier.Apply(plan.PlanID, out, false, "")
	var mismatch *PlanHashMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, plan.PlanID, mismatch.PlanID)

	// Nothing was written and nothing was recorded.
	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr))
	after, err := h.ledger.Len()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestForcedApplyIsRecorded(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)
	out := filepath.Join(h.dir, "memo.redacted.txt")

	plan, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)

	h.writeDoc(t, "memo.txt", sampleDoc+"Appended after planning.\n")

	result, err := h.applier.Apply(plan.PlanID, out, true, "")
	require.NoError(t, err)
	require.True(t, result.Forced)

	entries, err := h.ledger.ReadAll()
	require.NoError(t, err)
	last := entries[len(entries)-1]
	require.Equal(t, "redaction_apply", last.Operation)
	require.Contains(t, last.Args, ledger.Arg{Key: "forced", Value: "true"})
}

func TestApplySkipsUnlocatableSpans(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)
	out := filepath.Join(h.dir, "memo.redacted.txt")

	inputHash, err := hashing.HashFile(doc)
	require.NoError(t, err)

	page := 0
	actions := []Action{
		{Page: &page, Start: 27, End: 38, EntityType: detect.EntitySSN, Score: 0.8, Literal: "078-05-1120"},
		{Page: &page, Start: 48, End: 71, EntityType: detect.EntityEmail, Score: 0.7, Literal: "jane.smith@acmecorp.com"},
		{Page: &page, Start: 9000, End: 9011, EntityType: detect.EntitySSN, Score: 0.8, Literal: "457-55-5462"},
	}
	sortActions(actions)

	plan := &Plan{
		PlanID:       ComputePlanID(doc, inputHash, actions),
		DocumentPath: doc,
		InputHash:    inputHash,
		CreatedAt:    time.Now().UTC(),
		Actions:      actions,
	}
	data, err := json.Marshal(plan)
	require.NoError(t, err)
	require.NoError(t, h.store.Save(plan.PlanID, data))

	result, err := h.applier.Apply(plan.PlanID, out, false, "")
	require.NoError(t, err)
	require.Equal(t, 2, result.AppliedCount)
	require.Equal(t, 1, result.SkippedCount)
	require.Len(t, result.Warnings, 1)
	require.Equal(t, detect.EntitySSN, result.Warnings[0].EntityType)
	require.Equal(t, WarnGeometryUnresolved, result.Warnings[0].Reason)

	redacted, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NotContains(t, string(redacted), "078-05-1120")
}

func TestLedgerNeverHoldsMatchedText(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)
	out := filepath.Join(h.dir, "memo.redacted.txt")

	plan, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)
	_, err = h.applier.Apply(plan.PlanID, out, false, "")
	require.NoError(t, err)

	raw, err := os.ReadFile(h.ledger.Path())
	require.NoError(t, err)
	require.NotContains(t, string(raw), "078-05-1120")
	require.NotContains(t, string(raw), "jane.smith@acmecorp.com")
}

func TestPlanAndApplyChainVerifies(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)
	out := filepath.Join(h.dir, "memo.redacted.txt")

	plan, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)
	_, err = h.applier.Apply(plan.PlanID, out, false, "")
	require.NoError(t, err)

	res, err := h.ledger.Verify()
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, 2, res.Entries)
}

func TestPlannerRequiresCollaborators(t *testing.T) {
	obs := observability.NewStandardObserver(observability.ObservabilityOff, io.Discard)
	planner := NewPlanner(nil, nil, nil, nil, obs)

	_, err := planner.Plan("memo.txt", nil, "")
	var confErr *ConfigurationError
	require.True(t, errors.As(err, &confErr))
}

func TestPlanUnextractableFileYieldsZeroActions(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "blob.bin", "\x00\x01\x02 078-05-1120")

	plan, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)
	require.Empty(t, plan.Actions)
	require.NotEmpty(t, plan.InputHash)
}

func TestComputePlanIDOrderIndependence(t *testing.T) {
	page := 0
	a := Action{Page: &page, Start: 5, End: 16, EntityType: detect.EntitySSN, Score: 0.8, Literal: "078-05-1120"}
	b := Action{Page: &page, Start: 30, End: 41, EntityType: detect.EntityPhone, Score: 0.6, Literal: "212-555-0175"}

	forward := []Action{a, b}
	backward := []Action{b, a}
	sortActions(forward)
	sortActions(backward)

	require.Equal(t,
		ComputePlanID("doc.txt", "hash", forward),
		ComputePlanID("doc.txt", "hash", backward))
}

func TestPlanCarriesAnnotations(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)

	plan, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)

	require.Equal(t, []string{"ssn", "email"}, plan.Annotations.DetectorNames)
	require.Equal(t, 1, plan.Annotations.FindingCounts[detect.EntitySSN])
	require.Equal(t, 1, plan.Annotations.FindingCounts[detect.EntityEmail])
	require.Equal(t, []int{0}, plan.Annotations.PagesTouched)

	// Annotations describe the run; they never feed the content address.
	require.Equal(t, plan.PlanID, ComputePlanID(plan.DocumentPath, plan.InputHash, plan.Actions))
}

func TestNilObserverIsSafe(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)
	out := filepath.Join(h.dir, "memo.redacted.txt")

	planner := NewPlanner(h.planner.extractors, h.planner.detector, h.store, h.ledger, nil)
	applier := NewApplier(h.applier.extractors, h.applier.editors, h.store, h.ledger, nil)

	plan, err := planner.Plan(doc, nil, "")
	require.NoError(t, err)

	result, err := applier.Apply(plan.PlanID, out, false, "")
	require.NoError(t, err)
	require.Equal(t, len(plan.Actions), result.AppliedCount)
}

func TestJobIDReachesLedgerArgs(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)
	out := filepath.Join(h.dir, "memo.redacted.txt")

	plan, err := h.planner.Plan(doc, nil, "batch-7f3a")
	require.NoError(t, err)
	_, err = h.applier.Apply(plan.PlanID, out, false, "batch-7f3a")
	require.NoError(t, err)

	entries, err := h.ledger.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Contains(t, e.Args, ledger.Arg{Key: "job_id", Value: "batch-7f3a"})
	}
}

func TestStandaloneRunsOmitJobID(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)

	_, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)

	entries, err := h.ledger.ReadAll()
	require.NoError(t, err)
	for _, arg := range entries[len(entries)-1].Args {
		require.NotEqual(t, "job_id", arg.Key)
	}
}

func TestApplyRecordsPurgeScope(t *testing.T) {
	h := newHarness(t)
	doc := h.writeDoc(t, "memo.txt", sampleDoc)
	out := filepath.Join(h.dir, "memo.redacted.txt")

	plan, err := h.planner.Plan(doc, nil, "")
	require.NoError(t, err)
	result, err := h.applier.Apply(plan.PlanID, out, false, "")
	require.NoError(t, err)
	require.Equal(t, 2, result.PurgedCount)
	require.Zero(t, result.SurvivedCount)

	entries, err := h.ledger.ReadAll()
	require.NoError(t, err)
	last := entries[len(entries)-1]
	require.Contains(t, last.Args, ledger.Arg{Key: "purged_occurrences", Value: "2"})
	require.Contains(t, last.Args, ledger.Arg{Key: "survived_count", Value: "0"})
}
