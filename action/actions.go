package action

import (
	"context"
	"fmt"
	"time"

	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
)

// ValidateOrder transitions an Order from PENDING to VALIDATED. It fails
// if the order is not PENDING or its amount is not positive.
func ValidateOrder(ctx context.Context, orders order.Store, orderID id.OrderID, now time.Time) error {
	o, err := orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("validate_order: %w", err)
	}
	if o.Status != order.StatusPending {
		return fmt.Errorf("validate_order: order %s is %s, want %s", orderID, o.Status, order.StatusPending)
	}
	if o.Amount <= 0 {
		return fmt.Errorf("validate_order: order %s has non-positive amount %v", orderID, o.Amount)
	}
	o.Status = order.StatusValidated
	o.UpdatedAt = now
	return orders.UpdateOrder(ctx, o)
}

// ChargePayment transitions an Order from VALIDATED to CHARGED.
func ChargePayment(ctx context.Context, orders order.Store, orderID id.OrderID, now time.Time) error {
	o, err := orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("charge_payment: %w", err)
	}
	if o.Status != order.StatusValidated {
		return fmt.Errorf("charge_payment: order %s is %s, want %s", orderID, o.Status, order.StatusValidated)
	}
	o.Status = order.StatusCharged
	o.UpdatedAt = now
	return orders.UpdateOrder(ctx, o)
}

// ShipOrder transitions an Order from CHARGED to SHIPPED, the terminal
// state in the demo lifecycle.
func ShipOrder(ctx context.Context, orders order.Store, orderID id.OrderID, now time.Time) error {
	o, err := orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("ship_order: %w", err)
	}
	if o.Status != order.StatusCharged {
		return fmt.Errorf("ship_order: order %s is %s, want %s", orderID, o.Status, order.StatusCharged)
	}
	o.Status = order.StatusShipped
	o.UpdatedAt = now
	return orders.UpdateOrder(ctx, o)
}

// SendNotification performs no state transition; it only requires the
// order to exist.
func SendNotification(ctx context.Context, orders order.Store, orderID id.OrderID, now time.Time) error {
	_, err := orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("send_notification: %w", err)
	}
	return nil
}
