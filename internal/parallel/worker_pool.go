// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package parallel runs plan and apply jobs across a pool of workers.
// Document processing parallelizes cleanly; the ledger serializes its
// own appends, so concurrent jobs still produce one well-formed chain.
package parallel

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"custodia/internal/observability"
	"custodia/internal/redaction"
)

// JobConfig holds per-batch processing options.
type JobConfig struct {
	// Apply runs the plan against the document after planning.
	Apply bool

	// Force applies even when the document hash no longer matches.
	Force bool

	// OutputDir receives redacted copies when Apply is set.
	OutputDir string

	// EntityFilter restricts detection to the named entity types.
	EntityFilter []string
}

// Job is one document to plan and optionally apply.
type Job struct {
	JobID    string
	FilePath string
	Config   *JobConfig
}

// Result reports the outcome of one job.
type Result struct {
	JobID    string
	FilePath string
	Plan     *redaction.Plan
	Apply    *redaction.ApplyResult
	Error    error
	Duration time.Duration
}

// WorkerPool fans jobs out to a fixed number of workers.
type WorkerPool struct {
	workers  int
	jobs     chan *Job
	results  chan *Result
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	planner  *redaction.Planner
	applier  *redaction.Applier
	observer *observability.StandardObserver
}

func NewWorkerPool(workers int, planner *redaction.Planner, applier *redaction.Applier, observer *observability.StandardObserver) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workers:  workers,
		jobs:     make(chan *Job, workers*2),
		results:  make(chan *Result, workers*2),
		ctx:      ctx,
		cancel:   cancel,
		planner:  planner,
		applier:  applier,
		observer: observer,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// CloseJobs signals that no further jobs will be submitted.
func (wp *WorkerPool) CloseJobs() {
	close(wp.jobs)
}

// Stop waits for in-flight jobs and closes the results channel.
func (wp *WorkerPool) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Submit queues a job. A job without an ID is assigned one.
func (wp *WorkerPool) Submit(job *Job) {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	select {
	case wp.jobs <- job:
	case <-wp.ctx.Done():
	}
}

// Results returns the channel job outcomes arrive on.
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job *Job, workerID int) *Result {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if wp.observer != nil {
		finishTiming = wp.observer.StartTiming("worker_pool", "process_job", job.FilePath)
	}

	result := &Result{
		JobID:    job.JobID,
		FilePath: job.FilePath,
	}

	result.Plan, result.Error = wp.planner.Plan(job.FilePath, job.Config.EntityFilter, job.JobID)

	if result.Error == nil && job.Config.Apply {
		outputPath := OutputPathFor(job.Config.OutputDir, job.FilePath)
		result.Apply, result.Error = wp.applier.Apply(result.Plan.PlanID, outputPath, job.Config.Force, job.JobID)
	}

	result.Duration = time.Since(start)

	if finishTiming != nil {
		meta := map[string]interface{}{
			"worker_id":   workerID,
			"job_id":      job.JobID,
			"duration_ms": result.Duration.Milliseconds(),
		}
		if result.Plan != nil {
			meta["plan_id"] = result.Plan.PlanID
			meta["finding_count"] = len(result.Plan.Actions)
		}
		if result.Apply != nil {
			meta["applied_count"] = result.Apply.AppliedCount
		}
		finishTiming(result.Error == nil, meta)
	}

	return result
}

// OutputPathFor places the redacted copy of path in outputDir, with a
// ".redacted" marker before the extension.
func OutputPathFor(outputDir, path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(outputDir, fmt.Sprintf("%s.redacted%s", stem, ext))
}
