package workflow

import (
	"time"

	"github.com/stepflow/stepflow/id"
)

// RunStatus is the lifecycle status of a Run. Status transitions
// monotonically away from RunStatusPending; once terminal it is never
// mutated again.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether s is a terminal Run status.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Run is one execution instance of a Workflow.
type Run struct {
	ID         id.RunID      `json:"id"`
	WorkflowID id.WorkflowID `json:"workflow_id"`
	Status     RunStatus     `json:"status"`

	// BusinessObjectID, if set, is the order this Run's actions dispatch
	// against. Nil means actions are always no-ops for this Run.
	BusinessObjectID *id.OrderID `json:"business_object_id,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
