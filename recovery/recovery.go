// Package recovery implements the startup routine that resubmits every
// Run left in RUNNING — e.g. by a crash — to the Supervisor, so they
// resume under the same idempotency-key protocol as a fresh start.
package recovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stepflow/stepflow"
	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/workflow"
)

// Submitter is the subset of Supervisor's surface Recovery needs.
type Submitter interface {
	Submit(ctx context.Context, runID id.RunID)
}

// Run queries store for every Run with status RUNNING and submits each
// to sup. It returns once all submissions have been accepted — not once
// the runs have finished.
func Run(ctx context.Context, store workflow.Store, sup Submitter, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	runs, err := store.ListRuns(ctx, workflow.ListRunsOpts{Status: workflow.RunStatusRunning})
	if err != nil {
		return fmt.Errorf("%w: listing running runs for recovery: %w", stepflow.ErrStoreUnavailable, err)
	}

	for _, run := range runs {
		logger.Info("resubmitting crashed run for recovery", slog.String("run_id", run.ID.String()))
		sup.Submit(ctx, run.ID)
	}

	logger.Info("recovery complete", slog.Int("resubmitted", len(runs)))
	return nil
}
