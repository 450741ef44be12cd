// Package stepexec implements StepExecutor: the component that drives a
// single Step from PENDING/RUNNING to a terminal state, one attempt per
// call, upholding the idempotency-key commit protocol. Each outcome —
// success, retry, or permanent failure — gets its own store write and
// its own log line.
package stepexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stepflow/stepflow"
	"github.com/stepflow/stepflow/action"
	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
	"github.com/stepflow/stepflow/task"
	"github.com/stepflow/stepflow/workflow"
)

var tracer = otel.Tracer("github.com/stepflow/stepflow/stepexec")

// Outcome is the result of one StepExecutor.Execute call.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetry
	OutcomePermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomePermanentFailure:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// Executor drives one Step through its atomic-commit protocol.
type Executor struct {
	store   workflow.Store
	actions *action.Registry
	runner  *task.Runner
	clock   task.Clock
	logger  *slog.Logger
}

// New creates an Executor. clock is used only to stamp started_at /
// completed_at; runner owns its own Clock for the task sleep itself.
func New(store workflow.Store, actions *action.Registry, runner *task.Runner, clock task.Clock, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, actions: actions, runner: runner, clock: clock, logger: logger}
}

// Execute runs one attempt of step, which must belong to run.
//
// businessObjectID is the Run's BusinessObject reference, or id.Nil if the
// Run carries none — it is passed through unchanged to the action
// dispatch rule.
func (e *Executor) Execute(ctx context.Context, run *workflow.Run, step *workflow.Step, businessObjectID id.OrderID) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "stepexec.execute", trace.WithAttributes(
		attribute.String("run_id", run.ID.String()),
		attribute.String("step_id", step.ID.String()),
		attribute.String("step_name", step.StepName),
		attribute.Int("attempt", step.RetryCount+1),
	))
	defer span.End()

	outcome, err := e.execute(ctx, run, step, businessObjectID)
	if outcome == OutcomePermanentFailure {
		span.SetStatus(codes.Error, "permanent failure")
	}
	if err != nil && outcome != OutcomeRetry {
		span.RecordError(err)
	}
	return outcome, err
}

func (e *Executor) execute(ctx context.Context, run *workflow.Run, step *workflow.Step, businessObjectID id.OrderID) (Outcome, error) {
	// Write A: issue a fresh idempotency key, move to RUNNING.
	key := id.NewStepResultID()
	now := e.clock.Now()
	step.IdempotencyKey = &key
	step.Status = workflow.StepStatusRunning
	if step.StartedAt == nil {
		step.StartedAt = &now
	}
	if err := e.store.UpdateStep(ctx, step); err != nil {
		return OutcomeRetry, fmt.Errorf("%w: write A for step %q: %w", stepflow.ErrStoreUnavailable, step.StepName, err)
	}

	// Probe: a crash between Write B and bookkeeping could leave a
	// StepResult durable under this exact key. Normal flow never hits
	// this since the key is always freshly generated above, but the
	// protocol keeps the check as a guard.
	if existing, err := e.store.GetStepResult(ctx, key); err == nil && existing != nil {
		return e.markCompleted(ctx, step)
	} else if err != nil && !errors.Is(err, stepflow.ErrStepResultNotFound) {
		return OutcomeRetry, fmt.Errorf("%w: probing step result for step %q: %w", stepflow.ErrStoreUnavailable, step.StepName, err)
	}

	outcome, taskErr := e.runner.Run(ctx, task.Config{
		Action:          step.Action,
		DurationSeconds: step.DurationSeconds,
		FailProbability: step.FailProbability,
	})

	if outcome == task.OutcomeSuccess {
		return e.commitSuccess(ctx, run, step, key, businessObjectID)
	}
	return e.commitFailure(ctx, step, taskErr)
}

func (e *Executor) markCompleted(ctx context.Context, step *workflow.Step) (Outcome, error) {
	now := e.clock.Now()
	step.Status = workflow.StepStatusCompleted
	step.CompletedAt = &now
	if err := e.store.UpdateStep(ctx, step); err != nil {
		return OutcomeRetry, fmt.Errorf("%w: marking step %q completed from probe: %w", stepflow.ErrStoreUnavailable, step.StepName, err)
	}
	e.logger.Info("step already completed, skipping re-execution",
		slog.String("step_id", step.ID.String()),
		slog.String("step_name", step.StepName),
	)
	return OutcomeSuccess, nil
}

func (e *Executor) commitSuccess(ctx context.Context, run *workflow.Run, step *workflow.Step, key id.StepResultID, businessObjectID id.OrderID) (Outcome, error) {
	now := e.clock.Now()
	completed := *step
	completed.Status = workflow.StepStatusCompleted
	completed.CompletedAt = &now
	completed.ErrorMessage = nil

	result := &workflow.StepResult{
		IdempotencyKey: key,
		StepID:         step.ID,
		CreatedAt:      now,
	}

	var stepAction workflow.StepAction
	if step.Action != "" && !businessObjectID.IsNil() {
		stepAction = func(ctx context.Context, orders order.Store) error {
			return e.actions.Dispatch(ctx, orders, step.Action, businessObjectID, now)
		}
	}

	if err := e.store.CommitStepSuccess(ctx, &completed, result, stepAction); err != nil {
		return e.commitFailure(ctx, step, fmt.Errorf("action commit failed: %w", err))
	}

	*step = completed
	e.logger.Info("step completed",
		slog.String("run_id", run.ID.String()),
		slog.String("step_id", step.ID.String()),
		slog.String("step_name", step.StepName),
	)
	return OutcomeSuccess, nil
}

func (e *Executor) commitFailure(ctx context.Context, step *workflow.Step, cause error) (Outcome, error) {
	now := e.clock.Now()
	msg := cause.Error()
	step.ErrorMessage = &msg
	step.IdempotencyKey = nil

	if step.RetryCount < step.MaxRetries {
		step.RetryCount++
		step.Status = workflow.StepStatusPending
		if err := e.store.UpdateStep(ctx, step); err != nil {
			return OutcomeRetry, fmt.Errorf("%w: recording retry for step %q: %w", stepflow.ErrStoreUnavailable, step.StepName, err)
		}
		e.logger.Warn("step failed, will retry",
			slog.String("step_id", step.ID.String()),
			slog.String("step_name", step.StepName),
			slog.Int("retry_count", step.RetryCount),
			slog.Int("max_retries", step.MaxRetries),
			slog.String("error", msg),
		)
		return OutcomeRetry, cause
	}

	step.Status = workflow.StepStatusFailed
	step.CompletedAt = &now
	if err := e.store.UpdateStep(ctx, step); err != nil {
		return OutcomeRetry, fmt.Errorf("%w: recording permanent failure for step %q: %w", stepflow.ErrStoreUnavailable, step.StepName, err)
	}
	e.logger.Error("step permanently failed",
		slog.String("step_id", step.ID.String()),
		slog.String("step_name", step.StepName),
		slog.Int("retry_count", step.RetryCount),
		slog.String("error", msg),
	)
	return OutcomePermanentFailure, cause
}
