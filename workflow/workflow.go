// Package workflow defines the Workflow, Run, Step, and StepResult
// entities and the Store interface every persistence backend implements.
//
// A Run's steps are fixed at creation time by plan.Sort into a static,
// pre-planned sequence: the worker never re-consults depends_on once a
// Run has started.
package workflow

import (
	"encoding/json"
	"time"

	"github.com/stepflow/stepflow/id"
)

// Workflow is an immutable named DAG of steps. The original definition
// document is kept verbatim so Recovery never needs to re-derive it.
type Workflow struct {
	ID         id.WorkflowID   `json:"id"`
	Name       string          `json:"name"`
	Definition json.RawMessage `json:"definition"`
	CreatedAt  time.Time       `json:"created_at"`
}
