package workflow

import (
	"encoding/json"
	"time"

	"github.com/stepflow/stepflow/id"
)

// StepResult is the durable record of one successful step attempt. Its
// primary key is the idempotency key that was active when the attempt
// committed. At most one StepResult exists per key; StepExecutor is the
// only writer, and it writes exactly once, on the successful commit
// path.
type StepResult struct {
	IdempotencyKey id.StepResultID `json:"idempotency_key"`
	StepID         id.StepID       `json:"step_id"`
	ResultData     json.RawMessage `json:"result_data,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
