// Package order defines the BusinessObject demo entity used to
// illustrate action dispatch: an order lifecycle driven entirely
// by the four registered actions in the action package.
package order

import (
	"time"

	"github.com/stepflow/stepflow/id"
)

// Status is the lifecycle status of an Order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusCharged   Status = "charged"
	StatusShipped   Status = "shipped"
)

// Order is the demo BusinessObject. Its Status is mutated only by
// ActionRegistry functions invoked inside StepExecutor's atomic commit.
type Order struct {
	ID        id.OrderID `json:"id"`
	Status    Status     `json:"status"`
	Amount    float64    `json:"amount"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
