// Package runworker implements RunWorker: it drives one Run end-to-end,
// stepping through its pre-planned Steps in order and delegating each
// attempt to stepexec.Executor. A top-level recover converts any panic
// into a worker-internal error and marks the Run failed rather than
// crashing the process.
package runworker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stepflow/stepflow"
	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/stepexec"
	"github.com/stepflow/stepflow/workflow"
)

var tracer = otel.Tracer("github.com/stepflow/stepflow/runworker")

// Worker drives a single Run to completion.
type Worker struct {
	store  workflow.Store
	exec   *stepexec.Executor
	clock  clock
	logger *slog.Logger
}

// clock is the minimal time seam Worker needs for started_at/completed_at
// stamps; stepexec.Executor owns its own clock for step-level timestamps.
type clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// New creates a Worker. If c is nil, real wall-clock time is used.
func New(store workflow.Store, exec *stepexec.Executor, c clock, logger *slog.Logger) *Worker {
	if c == nil {
		c = systemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, exec: exec, clock: c, logger: logger}
}

// Run executes runID end-to-end: sets the Run RUNNING, steps through its
// Steps in step_index order (skipping COMPLETED ones, repeating on
// RETRY, stopping on PERMANENT_FAILURE), and sets the Run's terminal
// status. Any panic escaping the executor or action registry is
// recovered: the Run is marked FAILED and the panic is returned as a
// stepflow.ErrWorkerInternal error. The panic message is carried in that
// error and the log; the Run itself has no error-message field.
func (w *Worker) Run(ctx context.Context, runID id.RunID) (err error) {
	ctx, span := tracer.Start(ctx, "runworker.run", trace.WithAttributes(
		attribute.String("run_id", runID.String()),
	))
	defer span.End()

	run, getErr := w.store.GetRun(ctx, runID)
	if getErr != nil {
		return fmt.Errorf("%w: loading run %s: %w", stepflow.ErrStoreUnavailable, runID, getErr)
	}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic: %v", r)
			w.logger.Error("run worker panicked", slog.String("run_id", runID.String()), slog.String("panic", msg))
			w.failRun(ctx, run)
			err = fmt.Errorf("%w: run %s: %s", stepflow.ErrWorkerInternal, runID, msg)
		}
	}()

	now := w.clock.Now()
	run.Status = workflow.RunStatusRunning
	if run.StartedAt == nil {
		run.StartedAt = &now
	}
	if err := w.store.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("%w: marking run %s running: %w", stepflow.ErrStoreUnavailable, runID, err)
	}

	steps, err := w.store.GetSteps(ctx, runID)
	if err != nil {
		return fmt.Errorf("%w: loading steps for run %s: %w", stepflow.ErrStoreUnavailable, runID, err)
	}

	businessObjectID := id.Nil
	if run.BusinessObjectID != nil {
		businessObjectID = *run.BusinessObjectID
	}

	allCompleted := true
stepLoop:
	for _, step := range steps {
		if step.Status == workflow.StepStatusCompleted {
			continue
		}

		for {
			outcome, execErr := w.exec.Execute(ctx, run, step, businessObjectID)
			if execErr != nil && errors.Is(execErr, stepflow.ErrStoreUnavailable) {
				// The store itself is failing; retry accounting cannot be
				// recorded, so there is nothing safe left to do but stop
				// and return the failure to the caller rather than retry.
				return fmt.Errorf("%w: step %q in run %s: %w", stepflow.ErrStoreUnavailable, step.StepName, runID, execErr)
			}
			if outcome == stepexec.OutcomeRetry {
				w.logger.Debug("step will be retried", slog.String("run_id", runID.String()), slog.String("step_name", step.StepName))
				continue
			}
			if outcome == stepexec.OutcomePermanentFailure {
				allCompleted = false
			}
			break
		}

		if step.Status != workflow.StepStatusCompleted {
			allCompleted = false
			break stepLoop
		}
	}

	completedAt := w.clock.Now()
	run.CompletedAt = &completedAt
	if allCompleted {
		run.Status = workflow.RunStatusCompleted
	} else {
		run.Status = workflow.RunStatusFailed
	}
	if err := w.store.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("%w: recording terminal status for run %s: %w", stepflow.ErrStoreUnavailable, runID, err)
	}

	w.logger.Info("run finished", slog.String("run_id", runID.String()), slog.String("status", string(run.Status)))
	return nil
}

func (w *Worker) failRun(ctx context.Context, run *workflow.Run) {
	if run == nil {
		return
	}
	now := w.clock.Now()
	run.Status = workflow.RunStatusFailed
	run.CompletedAt = &now
	_ = w.store.UpdateRun(ctx, run)
}
