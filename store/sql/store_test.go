package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stepflow/stepflow"
	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
	sqlstore "github.com/stepflow/stepflow/store/sql"
	"github.com/stepflow/stepflow/workflow"
)

// newTestStore opens a pure-Go, in-memory SQLite-backed Store — exercising
// the same dialect-neutral schema and query code OpenPostgres uses,
// without requiring a running Postgres or Docker.
func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	db, err := sqlstore.OpenSQLite("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := sqlstore.New(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestSQLiteStore_WorkflowRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wf := &workflow.Workflow{
		ID:         id.NewWorkflowID(),
		Name:       "demo",
		Definition: []byte(`{"name":"demo","steps":[]}`),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.CreateWorkflow(ctx, wf); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}

	got, err := s.GetWorkflow(ctx, wf.ID)
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if got.Name != "demo" {
		t.Fatalf("got.Name = %q, want demo", got.Name)
	}

	all, err := s.ListWorkflows(ctx)
	if err != nil {
		t.Fatalf("ListWorkflows: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len(all) = %d, want 1", len(all))
	}
}

func TestSQLiteStore_GetWorkflowNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetWorkflow(context.Background(), id.NewWorkflowID())
	if !errors.Is(err, stepflow.ErrWorkflowNotFound) {
		t.Fatalf("err = %v, want ErrWorkflowNotFound", err)
	}
}

func TestSQLiteStore_RunAndStepOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wf := &workflow.Workflow{ID: id.NewWorkflowID(), Name: "wf", Definition: []byte(`{}`), CreatedAt: time.Now().UTC()}
	if err := s.CreateWorkflow(ctx, wf); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}

	runID := id.NewRunID()
	run := &workflow.Run{ID: runID, WorkflowID: wf.ID, Status: workflow.RunStatusPending, CreatedAt: time.Now().UTC()}
	steps := []*workflow.Step{
		{ID: id.NewStepID(), RunID: runID, StepName: "b", StepIndex: 1, Status: workflow.StepStatusPending, CreatedAt: time.Now().UTC()},
		{ID: id.NewStepID(), RunID: runID, StepName: "a", StepIndex: 0, Status: workflow.StepStatusPending, CreatedAt: time.Now().UTC()},
	}
	if err := s.CreateRun(ctx, run, steps); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := s.GetSteps(ctx, runID)
	if err != nil {
		t.Fatalf("GetSteps: %v", err)
	}
	if len(got) != 2 || got[0].StepName != "a" || got[1].StepName != "b" {
		t.Fatalf("GetSteps() = %+v, want [a, b]", got)
	}
}

func TestSQLiteStore_CommitStepSuccessRollsBackOnActionFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	orderID := id.NewOrderID()
	if err := s.CreateOrder(ctx, &order.Order{ID: orderID, Status: order.StatusPending, Amount: 5, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	wf := &workflow.Workflow{ID: id.NewWorkflowID(), Name: "wf", Definition: []byte(`{}`), CreatedAt: now}
	if err := s.CreateWorkflow(ctx, wf); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}

	runID := id.NewRunID()
	run := &workflow.Run{ID: runID, WorkflowID: wf.ID, BusinessObjectID: &orderID, Status: workflow.RunStatusRunning, CreatedAt: now}
	step := &workflow.Step{ID: id.NewStepID(), RunID: runID, StepName: "charge", Status: workflow.StepStatusRunning, CreatedAt: now}
	if err := s.CreateRun(ctx, run, []*workflow.Step{step}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	failErr := errors.New("precondition violated")
	action := func(ctx context.Context, orders order.Store) error {
		o, _ := orders.GetOrder(ctx, orderID)
		o.Status = order.StatusCharged
		_ = orders.UpdateOrder(ctx, o)
		return failErr
	}

	completed := *step
	completed.Status = workflow.StepStatusCompleted
	result := &workflow.StepResult{IdempotencyKey: id.NewStepResultID(), StepID: step.ID, CreatedAt: now}

	err := s.CommitStepSuccess(ctx, &completed, result, action)
	if !errors.Is(err, failErr) {
		t.Fatalf("CommitStepSuccess() error = %v, want %v", err, failErr)
	}

	got, getErr := s.GetOrder(ctx, orderID)
	if getErr != nil {
		t.Fatalf("GetOrder: %v", getErr)
	}
	if got.Status != order.StatusPending {
		t.Fatalf("order status = %s, want unchanged pending after rollback", got.Status)
	}
}
