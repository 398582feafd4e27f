// Package orchestrator composes the three pipeline stages into a strict
// sequence: root-cause, then fix-plan, then patch. Each stage runs to a
// validated result or a failure; a failure short-circuits the rest of the
// run, but everything computed so far is still persisted.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/patchfactory/internal/config"
	"github.com/lucasnoah/patchfactory/internal/pipeline"
	"github.com/lucasnoah/patchfactory/internal/stage"
	"github.com/lucasnoah/patchfactory/internal/trace"
)

// Status is the orchestrator's state-machine position for a run.
type Status string

const (
	StatusPending          Status = "pending"
	StatusRunningRootCause Status = "running-rca"
	StatusRunningFixPlan   Status = "running-fix"
	StatusRunningPatch     Status = "running-patch"
	StatusSucceeded        Status = "succeeded"
	StatusFailed           Status = "failed"
)

// statusFor maps a stage about to run to the orchestrator status.
var statusFor = map[string]Status{
	pipeline.StageRootCause: StatusRunningRootCause,
	pipeline.StageFixPlan:   StatusRunningFixPlan,
	pipeline.StagePatch:     StatusRunningPatch,
}

// EventLog records run lifecycle events for the run index. The sqlite-backed
// implementation lives in internal/db.
type EventLog interface {
	CreateRun(runID, summary string, startedAt time.Time) error
	LogEvent(runID, event, stage, detail string) error
	FinishRun(runID string, succeeded bool, failedStage, reason string, finishedAt time.Time) error
}

// Orchestrator runs defect reports through the three-stage pipeline.
type Orchestrator struct {
	runner   *stage.Runner
	store    *pipeline.Store
	events   EventLog
	caps     config.Stages
	progress io.Writer
}

// New creates an Orchestrator. caps carries the per-stage iteration limits.
func New(runner *stage.Runner, store *pipeline.Store, events EventLog, caps config.Stages) *Orchestrator {
	return &Orchestrator{runner: runner, store: store, events: events, caps: caps}
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (o *Orchestrator) SetProgress(w io.Writer) {
	o.progress = w
	o.runner.SetProgress(w)
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.progress != nil {
		fmt.Fprintf(o.progress, format+"\n", args...)
	}
}

// Run executes the full pipeline for one defect report. The returned Outcome
// reports success or the failing stage and reason; it is non-nil whenever the
// run started, including on stage failure. The error return covers
// infrastructure problems only (persistence, wiring), never stage failures.
func (o *Orchestrator) Run(ctx context.Context, report *trace.DefectReport) (*pipeline.Outcome, error) {
	runID := uuid.NewString()
	state := pipeline.NewSharedState(runID, report)
	outcome := &pipeline.Outcome{
		RunID:     runID,
		Summary:   report.Summary(),
		StartedAt: time.Now().UTC(),
		State:     state,
	}

	status := StatusPending
	o.logf("run %s: %s", runID, outcome.Summary)
	if err := o.events.CreateRun(runID, outcome.Summary, outcome.StartedAt); err != nil {
		return nil, fmt.Errorf("create run record: %w", err)
	}

	for _, stageName := range pipeline.StageOrder {
		status = statusFor[stageName]
		o.logf("run %s: %s", runID, status)
		_ = o.events.LogEvent(runID, "stage_started", stageName, "")

		spec, err := o.buildSpec(stageName, state)
		if err != nil {
			return nil, fmt.Errorf("build %s spec: %w", stageName, err)
		}
		if err := o.store.SavePrompt(runID, stageName, spec.Seed); err != nil {
			o.logf("run %s: save prompt: %v", runID, err)
		}

		result, err := o.runner.Run(ctx, spec, state)
		if err != nil {
			failure, isFailure := err.(*stage.Failure)
			if !isFailure {
				return nil, fmt.Errorf("run stage %s: %w", stageName, err)
			}
			_ = o.events.LogEvent(runID, "stage_failed", stageName, failure.Reason)
			return o.finish(outcome, StatusFailed, failure)
		}

		o.postProcess(stageName, state, result)

		if err := state.SetResult(stageName, result); err != nil {
			return nil, fmt.Errorf("record %s result: %w", stageName, err)
		}
		_ = o.events.LogEvent(runID, "stage_completed", stageName, "")
	}

	return o.finish(outcome, StatusSucceeded, nil)
}

// postProcess applies deterministic cross-stage constraints to a validated
// stage result before it enters shared state.
func (o *Orchestrator) postProcess(stageName string, state *pipeline.SharedState, result map[string]any) {
	if stageName != pipeline.StageFixPlan {
		return
	}
	// The fix plan may only target the file the root-cause stage identified.
	// The override is unconditional: whatever the model proposed, the plan's
	// target is pinned to the analysis result.
	if rca, found := state.Result(pipeline.StageRootCause); found {
		result["files_to_modify"] = []string{rca.String("affected_file")}
	}
}

// finish finalizes the outcome, persists every artifact, and closes the run
// record. Failed runs keep their partial state and transcript.
func (o *Orchestrator) finish(outcome *pipeline.Outcome, status Status, failure *stage.Failure) (*pipeline.Outcome, error) {
	outcome.FinishedAt = time.Now().UTC()
	outcome.Succeeded = status == StatusSucceeded
	if failure != nil {
		outcome.FailedStage = failure.Stage
		outcome.Reason = failure.Reason
	}
	o.logf("run %s: %s", outcome.RunID, status)

	if err := o.store.SaveOutcome(outcome); err != nil {
		return nil, fmt.Errorf("persist outcome: %w", err)
	}
	err := o.events.FinishRun(outcome.RunID, outcome.Succeeded, outcome.FailedStage, outcome.Reason, outcome.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("finish run record: %w", err)
	}
	return outcome, nil
}
