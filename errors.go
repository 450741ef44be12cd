package stepflow

import "errors"

// Sentinel errors grouped by the four kinds the engine distinguishes.
// Callers should compare with errors.Is; the wrapped message carries the
// offending detail.
var (
	// Validation errors — surfaced immediately, nothing persisted, never retried.
	ErrInvalidWorkflow = errors.New("stepflow: invalid workflow definition")
	ErrCycleDetected   = errors.New("stepflow: cycle detected in workflow definition")

	// Not-found errors — legitimate "row absent" outcomes, not failures by themselves.
	ErrWorkflowNotFound   = errors.New("stepflow: workflow not found")
	ErrRunNotFound        = errors.New("stepflow: run not found")
	ErrStepNotFound       = errors.New("stepflow: step not found")
	ErrStepResultNotFound = errors.New("stepflow: step result not found")
	ErrOrderNotFound      = errors.New("stepflow: order not found")

	// Step task failure — produced by TaskRunner or a failing action.
	ErrStepTaskFailed = errors.New("stepflow: step task failed")

	// Store failure — a Store read or write StepExecutor or RunWorker could
	// not complete. RunWorker stops the Run and returns it instead of
	// retrying. A failed Write B is not wrapped in it: that goes through
	// retry accounting like a step task failure.
	ErrStoreUnavailable = errors.New("stepflow: store unavailable")

	// ErrDuplicateStepResult signals a unique-key conflict on the
	// idempotency key itself — a StepResult already exists for that key,
	// violating the invariant that at most one StepResult exists per key.
	ErrDuplicateStepResult = errors.New("stepflow: step result already recorded for idempotency key")

	// Worker-internal errors — a bug in the core caught by RunWorker's
	// top-level recover, never left for the caller to retry.
	ErrWorkerInternal = errors.New("stepflow: worker internal error")

	// Supervisor/engine lifecycle.
	ErrNoStore        = errors.New("stepflow: no store configured")
	ErrAlreadyStarted = errors.New("stepflow: engine already started")
)
