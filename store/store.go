// Package store defines the aggregate persistence interface. A single
// backend (in-memory or SQL) implements every subsystem store by
// composing workflow.Store and order.Store into one Store.
package store

import (
	"context"

	"github.com/stepflow/stepflow/order"
	"github.com/stepflow/stepflow/workflow"
)

// Store is the aggregate persistence interface every backend implements.
type Store interface {
	workflow.Store
	order.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks store connectivity.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
