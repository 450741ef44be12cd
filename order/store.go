package order

import (
	"context"

	"github.com/stepflow/stepflow/id"
)

// Store defines the persistence contract for Orders. Implementations
// handed to an action mid-transaction (via workflow.StepAction) must
// read and write within that same transaction.
type Store interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, orderID id.OrderID) (*Order, error)
	UpdateOrder(ctx context.Context, o *Order) error
}
