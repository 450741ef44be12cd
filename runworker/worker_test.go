package runworker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stepflow/stepflow"
	"github.com/stepflow/stepflow/action"
	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
	"github.com/stepflow/stepflow/runworker"
	"github.com/stepflow/stepflow/stepexec"
	"github.com/stepflow/stepflow/task"
	"github.com/stepflow/stepflow/workflow"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time                                 { return c.now }
func (c *fakeClock) Sleep(_ context.Context, _ time.Duration) error { return nil }

type fixedRandom struct{ v float64 }

func (f fixedRandom) Float64() float64 { return f.v }

type fakeOrderStore struct {
	orders map[id.OrderID]*order.Order
}

func (s *fakeOrderStore) CreateOrder(_ context.Context, o *order.Order) error {
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}
func (s *fakeOrderStore) GetOrder(_ context.Context, orderID id.OrderID) (*order.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return nil, stepflow.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}
func (s *fakeOrderStore) UpdateOrder(_ context.Context, o *order.Order) error {
	if _, ok := s.orders[o.ID]; !ok {
		return stepflow.ErrOrderNotFound
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

// fakeStore is a minimal workflow.Store over in-memory Run/Step maps,
// ordered by StepIndex for GetSteps, sufficient to drive a Worker
// without a real transaction manager.
type fakeStore struct {
	runs    map[id.RunID]*workflow.Run
	steps   map[id.RunID][]*workflow.Step
	results map[id.StepResultID]*workflow.StepResult
	orders  *fakeOrderStore
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		runs:    make(map[id.RunID]*workflow.Run),
		steps:   make(map[id.RunID][]*workflow.Step),
		results: make(map[id.StepResultID]*workflow.StepResult),
		orders:  &fakeOrderStore{orders: make(map[id.OrderID]*order.Order)},
	}
}

func (s *fakeStore) CreateWorkflow(context.Context, *workflow.Workflow) error { return nil }
func (s *fakeStore) GetWorkflow(context.Context, id.WorkflowID) (*workflow.Workflow, error) {
	return nil, stepflow.ErrWorkflowNotFound
}
func (s *fakeStore) ListWorkflows(context.Context) ([]*workflow.Workflow, error) { return nil, nil }

func (s *fakeStore) CreateRun(_ context.Context, run *workflow.Run, steps []*workflow.Step) error {
	s.runs[run.ID] = run
	s.steps[run.ID] = steps
	return nil
}

func (s *fakeStore) GetRun(_ context.Context, runID id.RunID) (*workflow.Run, error) {
	r, ok := s.runs[runID]
	if !ok {
		return nil, stepflow.ErrRunNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) UpdateRun(_ context.Context, run *workflow.Run) error {
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *fakeStore) ListRuns(context.Context, workflow.ListRunsOpts) ([]*workflow.Run, error) { return nil, nil }

func (s *fakeStore) GetSteps(_ context.Context, runID id.RunID) ([]*workflow.Step, error) {
	return s.steps[runID], nil
}

func (s *fakeStore) UpdateStep(_ context.Context, step *workflow.Step) error {
	for _, existing := range s.steps[step.RunID] {
		if existing.ID == step.ID {
			*existing = *step
			return nil
		}
	}
	return stepflow.ErrStepNotFound
}

func (s *fakeStore) GetStepResult(_ context.Context, key id.StepResultID) (*workflow.StepResult, error) {
	r, ok := s.results[key]
	if !ok {
		return nil, stepflow.ErrStepResultNotFound
	}
	return r, nil
}

func (s *fakeStore) CommitStepSuccess(ctx context.Context, step *workflow.Step, result *workflow.StepResult, act workflow.StepAction) error {
	if act != nil {
		if err := act(ctx, s.orders); err != nil {
			return err
		}
	}
	for _, existing := range s.steps[step.RunID] {
		if existing.ID == step.ID {
			*existing = *step
		}
	}
	rcp := *result
	s.results[result.IdempotencyKey] = &rcp
	return nil
}

func newStep(runID id.RunID, index int, name string, failProbability float64, maxRetries int, action string) *workflow.Step {
	return &workflow.Step{
		ID:              id.NewStepID(),
		RunID:           runID,
		StepName:        name,
		StepIndex:       index,
		FailProbability: failProbability,
		MaxRetries:      maxRetries,
		Action:          action,
		Status:          workflow.StepStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
}

func newWorker(store *fakeStore, random task.Random) *runworker.Worker {
	clock := &fakeClock{now: time.Now().UTC()}
	runner := task.New(clock, random)
	exec := stepexec.New(store, action.NewDefaultRegistry(), runner, clock, nil)
	return runworker.New(store, exec, clock, nil)
}

func TestRunCompletesAllStepsInOrder(t *testing.T) {
	store := newFakeStore()
	runID := id.NewRunID()
	run := &workflow.Run{ID: runID, WorkflowID: id.NewWorkflowID(), Status: workflow.RunStatusPending, CreatedAt: time.Now().UTC()}
	steps := []*workflow.Step{
		newStep(runID, 0, "a", 0, 0, ""),
		newStep(runID, 1, "b", 0, 0, ""),
	}
	_ = store.CreateRun(context.Background(), run, steps)

	w := newWorker(store, fixedRandom{v: 1.0})
	if err := w.Run(context.Background(), runID); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got, err := store.GetRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != workflow.RunStatusCompleted {
		t.Fatalf("run status = %s, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatalf("run CompletedAt is nil, want set")
	}
	for _, step := range store.steps[runID] {
		if step.Status != workflow.StepStatusCompleted {
			t.Fatalf("step %s status = %s, want completed", step.StepName, step.Status)
		}
	}
}

func TestRunStopsAtPermanentFailureAndSkipsLaterSteps(t *testing.T) {
	store := newFakeStore()
	runID := id.NewRunID()
	run := &workflow.Run{ID: runID, WorkflowID: id.NewWorkflowID(), Status: workflow.RunStatusPending, CreatedAt: time.Now().UTC()}
	steps := []*workflow.Step{
		newStep(runID, 0, "a", 0, 0, ""),
		newStep(runID, 1, "b", 1.0, 0, ""),
		newStep(runID, 2, "c", 0, 0, ""),
	}
	_ = store.CreateRun(context.Background(), run, steps)

	w := newWorker(store, fixedRandom{v: 1.0})
	if err := w.Run(context.Background(), runID); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got, _ := store.GetRun(context.Background(), runID)
	if got.Status != workflow.RunStatusFailed {
		t.Fatalf("run status = %s, want failed", got.Status)
	}

	stored := store.steps[runID]
	if stored[0].Status != workflow.StepStatusCompleted {
		t.Fatalf("step a status = %s, want completed", stored[0].Status)
	}
	if stored[1].Status != workflow.StepStatusFailed {
		t.Fatalf("step b status = %s, want failed", stored[1].Status)
	}
	if stored[2].Status != workflow.StepStatusPending {
		t.Fatalf("step c status = %s, want pending (never attempted)", stored[2].Status)
	}
}

func TestRunSkipsAlreadyCompletedSteps(t *testing.T) {
	store := newFakeStore()
	runID := id.NewRunID()
	run := &workflow.Run{ID: runID, WorkflowID: id.NewWorkflowID(), Status: workflow.RunStatusRunning, CreatedAt: time.Now().UTC()}
	already := newStep(runID, 0, "a", 0, 0, "")
	already.Status = workflow.StepStatusCompleted
	steps := []*workflow.Step{
		already,
		newStep(runID, 1, "b", 0, 0, ""),
	}
	_ = store.CreateRun(context.Background(), run, steps)

	w := newWorker(store, fixedRandom{v: 1.0})
	if err := w.Run(context.Background(), runID); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got, _ := store.GetRun(context.Background(), runID)
	if got.Status != workflow.RunStatusCompleted {
		t.Fatalf("run status = %s, want completed", got.Status)
	}
	if len(store.results) != 1 {
		t.Fatalf("len(store.results) = %d, want 1 (only step b should have executed)", len(store.results))
	}
}

func TestRunDrivesBusinessObjectThroughActions(t *testing.T) {
	store := newFakeStore()
	orderID := id.NewOrderID()
	now := time.Now().UTC()
	_ = store.orders.CreateOrder(context.Background(), &order.Order{ID: orderID, Status: order.StatusPending, Amount: 25, CreatedAt: now, UpdatedAt: now})

	runID := id.NewRunID()
	run := &workflow.Run{ID: runID, WorkflowID: id.NewWorkflowID(), Status: workflow.RunStatusPending, BusinessObjectID: &orderID, CreatedAt: now}
	steps := []*workflow.Step{
		newStep(runID, 0, "validate", 0, 0, "validate_order"),
		newStep(runID, 1, "charge", 0, 0, "charge_payment"),
		newStep(runID, 2, "ship", 0, 0, "ship_order"),
	}
	_ = store.CreateRun(context.Background(), run, steps)

	w := newWorker(store, fixedRandom{v: 1.0})
	if err := w.Run(context.Background(), runID); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got, err := store.orders.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != order.StatusShipped {
		t.Fatalf("order status = %s, want shipped", got.Status)
	}
}
