// Package supervisor implements Supervisor: it accepts "start this run"
// requests and ensures exactly one live runworker.Worker goroutine per
// run id, tracking active runs in a map guarded by a mutex.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/runworker"
	"github.com/stepflow/stepflow/workflow"
)

// Supervisor dispatches RunWorkers in the background and keeps Run
// status consistent even when a worker fails unexpectedly.
type Supervisor struct {
	store  workflow.Store
	worker *runworker.Worker
	clock  clock
	logger *slog.Logger

	mu     sync.Mutex
	active map[id.RunID]struct{}
	group  *errgroup.Group
}

// clock is the minimal time seam markFailed needs to stamp CompletedAt;
// it mirrors the seam runworker.Worker uses for the same purpose.
type clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// New creates a Supervisor backed by worker for running individual runs.
// If c is nil, real wall-clock time is used.
func New(store workflow.Store, worker *runworker.Worker, c clock, logger *slog.Logger) *Supervisor {
	if c == nil {
		c = systemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		store:  store,
		worker: worker,
		clock:  c,
		logger: logger,
		active: make(map[id.RunID]struct{}),
		group:  &errgroup.Group{},
	}
}

// Submit starts runID in a background goroutine. If a worker is already
// live for runID, Submit is a no-op — submission is idempotent.
func (s *Supervisor) Submit(ctx context.Context, runID id.RunID) {
	if !s.track(runID) {
		s.logger.Debug("run already has a live worker, skipping submission", slog.String("run_id", runID.String()))
		return
	}

	s.group.Go(func() error {
		defer s.untrack(runID)
		return s.runOne(ctx, runID)
	})
}

func (s *Supervisor) runOne(ctx context.Context, runID id.RunID) error {
	if err := s.worker.Run(ctx, runID); err != nil {
		s.logger.Error("run worker failed", slog.String("run_id", runID.String()), slog.String("error", err.Error()))
		s.markFailed(ctx, runID, err)
		return err
	}
	return nil
}

// markFailed is the safety net for worker.Run returning an error instead
// of leaving the Run in its own terminal state (e.g. a Store failure
// surfaced before the worker could record any terminal status itself).
// It never leaves a Run in RUNNING indefinitely.
func (s *Supervisor) markFailed(ctx context.Context, runID id.RunID, cause error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		s.logger.Error("failed to load run for failure bookkeeping", slog.String("run_id", runID.String()), slog.String("error", err.Error()))
		return
	}
	if run.Status.IsTerminal() {
		return
	}
	now := s.clock.Now()
	run.Status = workflow.RunStatusFailed
	run.CompletedAt = &now
	if updateErr := s.store.UpdateRun(ctx, run); updateErr != nil {
		s.logger.Error("failed to mark run failed after worker error",
			slog.String("run_id", runID.String()),
			slog.String("worker_error", cause.Error()),
			slog.String("update_error", updateErr.Error()),
		)
	}
}

func (s *Supervisor) track(runID id.RunID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[runID]; ok {
		return false
	}
	s.active[runID] = struct{}{}
	return true
}

func (s *Supervisor) untrack(runID id.RunID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, runID)
}

// IsActive reports whether a worker is currently live for runID.
func (s *Supervisor) IsActive(runID id.RunID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[runID]
	return ok
}

// Shutdown waits for all live RunWorkers to finish, bounded by ctx's
// deadline, then returns. It is the one place errgroup is used for
// worker-lifecycle fan-in rather than in-run step parallelism.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.group.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
