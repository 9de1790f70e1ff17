// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redaction

import "fmt"

// PlanHashMismatchError reports that the document changed after its plan
// was created. The apply is refused before any byte of output is written.
type PlanHashMismatchError struct {
	PlanID      string
	PlanHash    string
	CurrentHash string
}

func (e *PlanHashMismatchError) Error() string {
	return fmt.Sprintf("plan %s was created for input hash %s but the document now hashes to %s; re-plan or pass force",
		e.PlanID, e.PlanHash, e.CurrentHash)
}

// ConfigurationError reports a planner or applier assembled without a
// required collaborator. Raised before any file is touched.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Detail
}

// Warning reason codes.
const (
	WarnGeometryUnresolved = "geometry_unresolved"
	WarnInvalidPage        = "invalid_page"
	WarnRotatedPage        = "rotated_page"
	WarnContentSurvived    = "content_survived"
)

// Warning records a plan action that could not be fully applied. Warnings
// never abort an apply; they are surfaced alongside the result.
type Warning struct {
	ActionIndex int    `json:"action_index"`
	EntityType  string `json:"entity_type"`
	Reason      string `json:"reason"`
	Detail      string `json:"detail,omitempty"`
}

func (w Warning) String() string {
	if w.Detail != "" {
		return fmt.Sprintf("action %d (%s): %s: %s", w.ActionIndex, w.EntityType, w.Reason, w.Detail)
	}
	return fmt.Sprintf("action %d (%s): %s", w.ActionIndex, w.EntityType, w.Reason)
}
