package workflow

import (
	"time"

	"github.com/stepflow/stepflow/id"
)

// StepStatus is the lifecycle status of a Step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// IsTerminal reports whether s is a terminal Step status.
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusFailed
}

// Step is one node of a Run: a single planned unit of execution. Its
// StepIndex is assigned once, at Run creation, by plan.Sort — the worker
// never re-derives ordering from DependsOn.
type Step struct {
	ID    id.StepID `json:"id"`
	RunID id.RunID  `json:"run_id"`

	// StepName is the user-supplied id from the workflow definition —
	// unique within the Run, not a UUID.
	StepName  string `json:"step_name"`
	StepIndex int    `json:"step_index"`

	// Type and DependsOn are carried through from the definition for
	// inspection; the worker does not consult DependsOn at execution
	// time — the order is computed once by plan.Sort and stored as a
	// sequence.
	Type      string   `json:"type"`
	DependsOn []string `json:"depends_on"`

	// Action, if set and registered, is invoked atomically with step
	// completion by ActionRegistry.
	Action          string  `json:"action,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	FailProbability float64 `json:"fail_probability"`

	Status StepStatus `json:"status"`

	// IdempotencyKey is nil when the step has never started an attempt,
	// or after a failed attempt clears it for a fresh retry.
	IdempotencyKey *id.StepResultID `json:"idempotency_key,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
