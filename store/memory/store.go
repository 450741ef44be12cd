// Package memory implements store.Store entirely in memory: maps guarded
// by a mutex, copy-on-read/write, sorted listings, covering workflows,
// runs, steps, step results, and orders.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/stepflow/stepflow"
	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
	"github.com/stepflow/stepflow/workflow"
)

var (
	_ workflow.Store = (*Store)(nil)
	_ order.Store    = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store. Safe for
// concurrent access. Intended for tests and single-process development.
type Store struct {
	mu        sync.RWMutex
	workflows map[id.WorkflowID]*workflow.Workflow
	runs      map[id.RunID]*workflow.Run
	steps     map[id.StepID]*workflow.Step
	results   map[id.StepResultID]*workflow.StepResult

	ordersMu sync.RWMutex
	orders   map[id.OrderID]*order.Order
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		workflows: make(map[id.WorkflowID]*workflow.Workflow),
		runs:      make(map[id.RunID]*workflow.Run),
		steps:     make(map[id.StepID]*workflow.Step),
		results:   make(map[id.StepResultID]*workflow.StepResult),
		orders:    make(map[id.OrderID]*order.Order),
	}
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Workflow Store
// ──────────────────────────────────────────────────

func (m *Store) CreateWorkflow(_ context.Context, wf *workflow.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *wf
	m.workflows[wf.ID] = &cp
	return nil
}

func (m *Store) GetWorkflow(_ context.Context, workflowID id.WorkflowID) (*workflow.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wf, ok := m.workflows[workflowID]
	if !ok {
		return nil, stepflow.ErrWorkflowNotFound
	}
	cp := *wf
	return &cp, nil
}

func (m *Store) ListWorkflows(_ context.Context) ([]*workflow.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*workflow.Workflow, 0, len(m.workflows))
	for _, wf := range m.workflows {
		cp := *wf
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) CreateRun(_ context.Context, run *workflow.Run, steps []*workflow.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rcp := *run
	m.runs[run.ID] = &rcp
	for _, step := range steps {
		scp := *step
		m.steps[step.ID] = &scp
	}
	return nil
}

func (m *Store) GetRun(_ context.Context, runID id.RunID) (*workflow.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, stepflow.ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (m *Store) UpdateRun(_ context.Context, run *workflow.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return stepflow.ErrRunNotFound
	}
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *Store) ListRuns(_ context.Context, opts workflow.ListRunsOpts) ([]*workflow.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*workflow.Run, 0, len(m.runs))
	for _, run := range m.runs {
		if opts.Status != "" && run.Status != opts.Status {
			continue
		}
		cp := *run
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) GetSteps(_ context.Context, runID id.RunID) ([]*workflow.Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*workflow.Step, 0)
	for _, step := range m.steps {
		if step.RunID != runID {
			continue
		}
		cp := *step
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepIndex < out[j].StepIndex })
	return out, nil
}

func (m *Store) UpdateStep(_ context.Context, step *workflow.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.steps[step.ID]; !ok {
		return stepflow.ErrStepNotFound
	}
	cp := *step
	m.steps[step.ID] = &cp
	return nil
}

func (m *Store) GetStepResult(_ context.Context, key id.StepResultID) (*workflow.StepResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[key]
	if !ok {
		return nil, stepflow.ErrStepResultNotFound
	}
	cp := *r
	return &cp, nil
}

// CommitStepSuccess performs Write B — StepResult insert, Step update,
// and action dispatch — as a single critical section. The in-memory
// store has no real transaction manager, so atomicity is approximated
// by holding mu for the whole operation (and ordersMu while an action
// runs) and rolling back the order mutation map on action failure;
// txOrderStore bypasses ordersMu (already held by the caller) rather
// than re-locking it.
func (m *Store) CommitStepSuccess(ctx context.Context, step *workflow.Step, result *workflow.StepResult, action workflow.StepAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.steps[step.ID]; !ok {
		return stepflow.ErrStepNotFound
	}

	if action != nil {
		m.ordersMu.Lock()
		before := make(map[id.OrderID]*order.Order, len(m.orders))
		for k, v := range m.orders {
			before[k] = v
		}
		tx := &txOrderStore{orders: m.orders}
		err := action(ctx, tx)
		if err != nil {
			m.orders = before
			m.ordersMu.Unlock()
			return err
		}
		m.ordersMu.Unlock()
	}

	scp := *step
	m.steps[step.ID] = &scp
	rcp := *result
	m.results[result.IdempotencyKey] = &rcp
	return nil
}

// txOrderStore gives an action function direct, unlocked access to the
// order map, for use only while the enclosing CommitStepSuccess already
// holds ordersMu.
type txOrderStore struct {
	orders map[id.OrderID]*order.Order
}

func (t *txOrderStore) CreateOrder(_ context.Context, o *order.Order) error {
	cp := *o
	t.orders[o.ID] = &cp
	return nil
}

func (t *txOrderStore) GetOrder(_ context.Context, orderID id.OrderID) (*order.Order, error) {
	o, ok := t.orders[orderID]
	if !ok {
		return nil, stepflow.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *txOrderStore) UpdateOrder(_ context.Context, o *order.Order) error {
	if _, ok := t.orders[o.ID]; !ok {
		return stepflow.ErrOrderNotFound
	}
	cp := *o
	t.orders[o.ID] = &cp
	return nil
}

// ──────────────────────────────────────────────────
// Order Store (BusinessObject CRUD)
// ──────────────────────────────────────────────────

func (m *Store) CreateOrder(_ context.Context, o *order.Order) error {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *Store) GetOrder(_ context.Context, orderID id.OrderID) (*order.Order, error) {
	m.ordersMu.RLock()
	defer m.ordersMu.RUnlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, stepflow.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *Store) UpdateOrder(_ context.Context, o *order.Order) error {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return stepflow.ErrOrderNotFound
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}
