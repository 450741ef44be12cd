package workflow

import (
	"context"

	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
)

// ListRunsOpts filters workflow run list queries.
type ListRunsOpts struct {
	// Status filters by run status. Empty means all statuses. Recovery
	// uses this with RunStatusRunning to find crashed-but-unfinished runs.
	Status RunStatus
}

// StepAction is invoked inside CommitStepSuccess's transaction, with an
// order.Store scoped to that same transaction. Returning an error rolls
// back the whole commit.
type StepAction func(ctx context.Context, orders order.Store) error

// Store defines the persistence contract for workflows, runs, steps, and
// step results.
type Store interface {
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*Workflow, error)
	ListWorkflows(ctx context.Context) ([]*Workflow, error)

	// CreateRun persists a Run together with its pre-planned Steps in one
	// transaction. Steps must already be ordered by StepIndex.
	CreateRun(ctx context.Context, run *Run, steps []*Step) error
	GetRun(ctx context.Context, runID id.RunID) (*Run, error)
	UpdateRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, opts ListRunsOpts) ([]*Run, error)

	// GetSteps returns a Run's steps ordered by StepIndex ascending.
	GetSteps(ctx context.Context, runID id.RunID) ([]*Step, error)

	// UpdateStep persists a write to a Step: issuing a fresh idempotency
	// key and moving to RUNNING, a retry or permanent-failure write, or
	// marking COMPLETED when the probe finds a StepResult already stored
	// under the current key. It is never used for Write B — that goes
	// through CommitStepSuccess so the StepResult insert, Step update, and
	// action dispatch stay atomic.
	UpdateStep(ctx context.Context, step *Step) error

	// GetStepResult probes for an existing StepResult by idempotency key.
	// Returns stepflow.ErrStepResultNotFound if absent — that is the
	// expected common case, not a failure.
	GetStepResult(ctx context.Context, key id.StepResultID) (*StepResult, error)

	// CommitStepSuccess performs Write B: insert the StepResult, mark the
	// Step COMPLETED, and, if action is non-nil, invoke it — all within
	// one transaction. If action returns an error the transaction rolls
	// back entirely and CommitStepSuccess returns that error unwrapped,
	// for the caller to record as the step's failure message and retry.
	CommitStepSuccess(ctx context.Context, step *Step, result *StepResult, action StepAction) error
}
