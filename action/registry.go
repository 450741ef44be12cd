// Package action implements ActionRegistry: the static name → function
// table of business-logic handlers StepExecutor invokes atomically with
// step completion. Registered actions here illustrate an order
// lifecycle driven entirely by the four demo actions below.
package action

import (
	"context"
	"time"

	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
)

// Func is a registered action: it mutates the BusinessObject identified
// by orderID, using the order.Store scoped to the enclosing transaction.
// now is the timestamp StepExecutor stamped the commit with, so actions
// never call time.Now() themselves. Returning an error aborts the whole
// atomic commit.
type Func func(ctx context.Context, orders order.Store, orderID id.OrderID, now time.Time) error

// Registry is a static name → Func table, built once at construction and
// never mutated at runtime — actions run inside the atomic commit, so
// dynamic or untrusted dispatch would risk the durability contract.
type Registry struct {
	actions map[string]Func
}

// NewRegistry builds a Registry from the given name→Func pairs.
func NewRegistry(actions map[string]Func) *Registry {
	cp := make(map[string]Func, len(actions))
	for name, fn := range actions {
		cp[name] = fn
	}
	return &Registry{actions: cp}
}

// NewDefaultRegistry returns the four demo actions: validate_order,
// charge_payment, ship_order, send_notification.
func NewDefaultRegistry() *Registry {
	return NewRegistry(map[string]Func{
		"validate_order":    ValidateOrder,
		"charge_payment":    ChargePayment,
		"ship_order":        ShipOrder,
		"send_notification": SendNotification,
	})
}

// Get returns the action registered under name, and whether it exists.
// An unknown name is not an error — Dispatch treats it as a no-op —
// callers decide what "not found" means.
func (r *Registry) Get(name string) (Func, bool) {
	fn, ok := r.actions[name]
	return fn, ok
}

// Names returns the registered action names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	return names
}

// Dispatch implements the action dispatch rule: if name is empty,
// unknown, or orderID is the zero ID, Dispatch is a no-op and returns
// nil. If the action is known it is invoked; any error it returns
// propagates unchanged for the caller to treat as a step task failure.
func (r *Registry) Dispatch(ctx context.Context, orders order.Store, name string, orderID id.OrderID, now time.Time) error {
	if name == "" || orderID.IsNil() {
		return nil
	}
	fn, ok := r.actions[name]
	if !ok {
		return nil
	}
	return fn(ctx, orders, orderID, now)
}
