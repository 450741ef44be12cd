package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stepflow/stepflow"
	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
	"github.com/stepflow/stepflow/store/memory"
	"github.com/stepflow/stepflow/workflow"
)

func TestCreateAndGetWorkflow(t *testing.T) {
	s := memory.New()
	wf := &workflow.Workflow{ID: id.NewWorkflowID(), Name: "demo", CreatedAt: time.Now().UTC()}

	if err := s.CreateWorkflow(context.Background(), wf); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}

	got, err := s.GetWorkflow(context.Background(), wf.ID)
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if got.Name != "demo" {
		t.Fatalf("got.Name = %q, want %q", got.Name, "demo")
	}
	if got == wf {
		t.Fatalf("GetWorkflow returned the stored pointer, want a defensive copy")
	}
}

func TestGetWorkflowNotFound(t *testing.T) {
	s := memory.New()
	_, err := s.GetWorkflow(context.Background(), id.NewWorkflowID())
	if !errors.Is(err, stepflow.ErrWorkflowNotFound) {
		t.Fatalf("err = %v, want ErrWorkflowNotFound", err)
	}
}

func TestListWorkflowsOrderedByCreatedAt(t *testing.T) {
	s := memory.New()
	base := time.Now().UTC()
	wf1 := &workflow.Workflow{ID: id.NewWorkflowID(), Name: "first", CreatedAt: base}
	wf2 := &workflow.Workflow{ID: id.NewWorkflowID(), Name: "second", CreatedAt: base.Add(time.Second)}
	_ = s.CreateWorkflow(context.Background(), wf2)
	_ = s.CreateWorkflow(context.Background(), wf1)

	got, err := s.ListWorkflows(context.Background())
	if err != nil {
		t.Fatalf("ListWorkflows: %v", err)
	}
	if len(got) != 2 || got[0].Name != "first" || got[1].Name != "second" {
		t.Fatalf("ListWorkflows() = %+v, want [first, second]", got)
	}
}

func TestCreateRunPersistsStepsAndGetStepsOrdersByIndex(t *testing.T) {
	s := memory.New()
	runID := id.NewRunID()
	run := &workflow.Run{ID: runID, WorkflowID: id.NewWorkflowID(), Status: workflow.RunStatusPending, CreatedAt: time.Now().UTC()}
	steps := []*workflow.Step{
		{ID: id.NewStepID(), RunID: runID, StepName: "b", StepIndex: 1},
		{ID: id.NewStepID(), RunID: runID, StepName: "a", StepIndex: 0},
	}
	if err := s.CreateRun(context.Background(), run, steps); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := s.GetSteps(context.Background(), runID)
	if err != nil {
		t.Fatalf("GetSteps: %v", err)
	}
	if len(got) != 2 || got[0].StepName != "a" || got[1].StepName != "b" {
		t.Fatalf("GetSteps() = %+v, want [a, b]", got)
	}
}

func TestListRunsFiltersByStatus(t *testing.T) {
	s := memory.New()
	now := time.Now().UTC()
	running := &workflow.Run{ID: id.NewRunID(), Status: workflow.RunStatusRunning, CreatedAt: now}
	completed := &workflow.Run{ID: id.NewRunID(), Status: workflow.RunStatusCompleted, CreatedAt: now}
	_ = s.CreateRun(context.Background(), running, nil)
	_ = s.CreateRun(context.Background(), completed, nil)

	got, err := s.ListRuns(context.Background(), workflow.ListRunsOpts{Status: workflow.RunStatusRunning})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 1 || got[0].ID != running.ID {
		t.Fatalf("ListRuns(running) = %+v, want exactly [%s]", got, running.ID)
	}
}

func TestGetStepResultNotFoundIsExpected(t *testing.T) {
	s := memory.New()
	_, err := s.GetStepResult(context.Background(), id.NewStepResultID())
	if !errors.Is(err, stepflow.ErrStepResultNotFound) {
		t.Fatalf("err = %v, want ErrStepResultNotFound", err)
	}
}

func TestCommitStepSuccessInsertsResultAndCompletesStep(t *testing.T) {
	s := memory.New()
	runID := id.NewRunID()
	run := &workflow.Run{ID: runID, CreatedAt: time.Now().UTC()}
	step := &workflow.Step{ID: id.NewStepID(), RunID: runID, StepName: "a", Status: workflow.StepStatusRunning}
	_ = s.CreateRun(context.Background(), run, []*workflow.Step{step})

	key := id.NewStepResultID()
	completed := *step
	completed.Status = workflow.StepStatusCompleted
	result := &workflow.StepResult{IdempotencyKey: key, StepID: step.ID, CreatedAt: time.Now().UTC()}

	if err := s.CommitStepSuccess(context.Background(), &completed, result, nil); err != nil {
		t.Fatalf("CommitStepSuccess: %v", err)
	}

	gotResult, err := s.GetStepResult(context.Background(), key)
	if err != nil {
		t.Fatalf("GetStepResult: %v", err)
	}
	if gotResult.StepID != step.ID {
		t.Fatalf("gotResult.StepID = %s, want %s", gotResult.StepID, step.ID)
	}

	gotSteps, err := s.GetSteps(context.Background(), runID)
	if err != nil {
		t.Fatalf("GetSteps: %v", err)
	}
	if gotSteps[0].Status != workflow.StepStatusCompleted {
		t.Fatalf("step status = %s, want completed", gotSteps[0].Status)
	}
}

func TestCommitStepSuccessRollsBackOnActionFailure(t *testing.T) {
	s := memory.New()
	orderID := id.NewOrderID()
	now := time.Now().UTC()
	_ = s.CreateOrder(context.Background(), &order.Order{ID: orderID, Status: order.StatusPending, Amount: 5, CreatedAt: now, UpdatedAt: now})

	runID := id.NewRunID()
	run := &workflow.Run{ID: runID, BusinessObjectID: &orderID, CreatedAt: now}
	step := &workflow.Step{ID: id.NewStepID(), RunID: runID, StepName: "charge", Status: workflow.StepStatusRunning}
	_ = s.CreateRun(context.Background(), run, []*workflow.Step{step})

	failErr := errors.New("precondition violated")
	action := func(ctx context.Context, orders order.Store) error {
		// Mutate, then fail — the mutation must not survive the rollback.
		o, _ := orders.GetOrder(ctx, orderID)
		o.Status = order.StatusCharged
		_ = orders.UpdateOrder(ctx, o)
		return failErr
	}

	completed := *step
	completed.Status = workflow.StepStatusCompleted
	result := &workflow.StepResult{IdempotencyKey: id.NewStepResultID(), StepID: step.ID, CreatedAt: now}

	err := s.CommitStepSuccess(context.Background(), &completed, result, action)
	if !errors.Is(err, failErr) {
		t.Fatalf("CommitStepSuccess() error = %v, want %v", err, failErr)
	}

	got, getErr := s.GetOrder(context.Background(), orderID)
	if getErr != nil {
		t.Fatalf("GetOrder: %v", getErr)
	}
	if got.Status != order.StatusPending {
		t.Fatalf("order status = %s, want unchanged pending after rollback", got.Status)
	}

	gotSteps, _ := s.GetSteps(context.Background(), runID)
	if gotSteps[0].Status != workflow.StepStatusRunning {
		t.Fatalf("step status = %s, want unchanged running after rollback", gotSteps[0].Status)
	}
}

func TestOrderCRUD(t *testing.T) {
	s := memory.New()
	orderID := id.NewOrderID()
	now := time.Now().UTC()
	o := &order.Order{ID: orderID, Status: order.StatusPending, Amount: 19.99, CreatedAt: now, UpdatedAt: now}

	if err := s.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	got, err := s.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Amount != 19.99 {
		t.Fatalf("got.Amount = %v, want 19.99", got.Amount)
	}

	got.Status = order.StatusValidated
	if err := s.UpdateOrder(context.Background(), got); err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}

	got2, err := s.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got2.Status != order.StatusValidated {
		t.Fatalf("got2.Status = %s, want validated", got2.Status)
	}
}

func TestMigratePingClose(t *testing.T) {
	s := memory.New()
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
