package sqlstore

import (
	"context"
	"fmt"

	"github.com/stepflow/stepflow"
	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
)

// CreateOrder persists a new BusinessObject.
func (s *Store) CreateOrder(ctx context.Context, o *order.Order) error {
	if _, err := s.db.NewInsert().Model(toOrderModel(o)).Exec(ctx); err != nil {
		return fmt.Errorf("sqlstore: create order: %w", err)
	}
	return nil
}

// GetOrder retrieves a BusinessObject by ID.
func (s *Store) GetOrder(ctx context.Context, orderID id.OrderID) (*order.Order, error) {
	m := new(orderModel)
	err := s.db.NewSelect().Model(m).Where("id = ?", orderID.String()).Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, stepflow.ErrOrderNotFound
		}
		return nil, fmt.Errorf("sqlstore: get order: %w", err)
	}
	return fromOrderModel(m)
}

// UpdateOrder persists changes to an existing BusinessObject.
func (s *Store) UpdateOrder(ctx context.Context, o *order.Order) error {
	res, err := s.db.NewUpdate().Model(toOrderModel(o)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: update order: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return stepflow.ErrOrderNotFound
	}
	return nil
}
