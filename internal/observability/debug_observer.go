// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// DebugObserver traces nested processing steps with indentation, for
// -debug runs where the operation records alone are too coarse.
type DebugObserver struct {
	*StandardObserver
	depth int
}

func NewDebugObserver(writer io.Writer) *DebugObserver {
	return &DebugObserver{
		StandardObserver: NewStandardObserver(ObservabilityDebug, writer),
	}
}

func (d *DebugObserver) printf(format string, args ...interface{}) {
	fmt.Fprintf(d.writer, strings.Repeat("  ", d.depth)+format+"\n", args...)
}

// StartStep opens a step and returns its closer. Steps nest: everything
// logged before the closer runs is indented under this step.
func (d *DebugObserver) StartStep(component, step, filePath string) func(success bool, details string) {
	start := time.Now()
	d.printf("* %s: %s (%s)", component, step, filePath)
	d.depth++

	return func(success bool, details string) {
		d.depth--
		verdict := "ok"
		if !success {
			verdict = "FAIL"
		}
		d.printf("%s %s: %s (%dms) %s", verdict, component, step, time.Since(start).Milliseconds(), details)
	}
}

// LogDetail records a line under the current step.
func (d *DebugObserver) LogDetail(component, detail string) {
	d.printf("   > %s: %s", component, detail)
}
