package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stepflow/stepflow"
	"github.com/stepflow/stepflow/action"
	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
	"github.com/stepflow/stepflow/plan"
	"github.com/stepflow/stepflow/recovery"
	"github.com/stepflow/stepflow/runworker"
	"github.com/stepflow/stepflow/stepexec"
	"github.com/stepflow/stepflow/store"
	"github.com/stepflow/stepflow/supervisor"
	"github.com/stepflow/stepflow/task"
	"github.com/stepflow/stepflow/workflow"
	"github.com/stepflow/stepflow/workflowdef"
)

// Engine is the transport-independent façade exposing every core
// operation as a plain Go method. Build one with New.
type Engine struct {
	store      store.Store
	actions    *action.Registry
	runner     *task.Runner
	clock      task.Clock
	logger     *slog.Logger
	exec       *stepexec.Executor
	worker     *runworker.Worker
	supervisor *supervisor.Supervisor
	config     stepflow.Config

	started bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. If unset, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithActions sets the ActionRegistry used to dispatch step actions. If
// unset, action.NewDefaultRegistry() is used.
func WithActions(reg *action.Registry) Option {
	return func(e *Engine) { e.actions = reg }
}

// WithClockAndRandom overrides the TaskRunner's time and randomness
// seams — primarily for deterministic tests of the whole Engine.
func WithClockAndRandom(clock task.Clock, random task.Random) Option {
	return func(e *Engine) {
		e.clock = clock
		e.runner = task.New(clock, random)
	}
}

// WithConfig overrides the Engine's Config. If unset, stepflow.DefaultConfig()
// is used, bounding Stop's wait for live RunWorkers by ShutdownTimeout
// whenever the caller's context carries no deadline of its own.
func WithConfig(config stepflow.Config) Option {
	return func(e *Engine) { e.config = config }
}

// New builds an Engine backed by s. Call Start before submitting runs.
func New(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, stepflow.ErrNoStore
	}

	e := &Engine{store: s, config: stepflow.DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.actions == nil {
		e.actions = action.NewDefaultRegistry()
	}
	if e.runner == nil {
		e.clock = task.SystemClock{}
		e.runner = task.NewSystem()
	}

	e.exec = stepexec.New(e.store, e.actions, e.runner, e.clock, e.logger)
	e.worker = runworker.New(e.store, e.exec, e.clock, e.logger)
	e.supervisor = supervisor.New(e.store, e.worker, e.clock, e.logger)

	return e, nil
}

// Start runs schema migration and resumes any Run left RUNNING by a
// prior crash.
func (e *Engine) Start(ctx context.Context) error {
	if e.started {
		return stepflow.ErrAlreadyStarted
	}
	if err := e.store.Migrate(ctx); err != nil {
		return fmt.Errorf("engine: migrate store: %w", err)
	}
	if err := recovery.Run(ctx, e.store, e.supervisor, e.logger); err != nil {
		return fmt.Errorf("engine: recover crashed runs: %w", err)
	}
	e.started = true
	return nil
}

// Stop waits for all live RunWorkers to finish, bounded by ctx (or, if
// ctx carries no deadline of its own, by e.config.ShutdownTimeout), then
// closes the store.
func (e *Engine) Stop(ctx context.Context) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && e.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.ShutdownTimeout)
		defer cancel()
	}
	if err := e.supervisor.Shutdown(ctx); err != nil {
		e.logger.Warn("supervisor shutdown did not complete cleanly", slog.String("error", err.Error()))
	}
	return e.store.Close()
}

// CreateWorkflow validates def via workflowdef.Validate (ids, references,
// numeric ranges) and plan.Sort (the cycle check), then stores it verbatim.
func (e *Engine) CreateWorkflow(ctx context.Context, def workflowdef.Definition) (id.WorkflowID, error) {
	if err := workflowdef.Validate(def); err != nil {
		return id.Nil, err
	}
	if _, err := plan.Sort(def); err != nil {
		return id.Nil, err
	}

	raw, err := workflowdef.Marshal(def)
	if err != nil {
		return id.Nil, fmt.Errorf("%w: marshaling definition: %w", stepflow.ErrInvalidWorkflow, err)
	}

	wf := &workflow.Workflow{
		ID:         id.NewWorkflowID(),
		Name:       def.Name,
		Definition: raw,
		CreatedAt:  e.now(),
	}
	if err := e.store.CreateWorkflow(ctx, wf); err != nil {
		return id.Nil, fmt.Errorf("%w: persisting workflow: %w", stepflow.ErrStoreUnavailable, err)
	}
	return wf.ID, nil
}

// StartRun creates a Run and its pre-planned Steps (ordered by
// plan.Sort) for workflowID, submits it to the Supervisor, and returns
// immediately.
func (e *Engine) StartRun(ctx context.Context, workflowID id.WorkflowID, businessObjectID *id.OrderID) (id.RunID, error) {
	wf, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return id.Nil, err
	}

	var def workflowdef.Definition
	if err := workflowdef.Unmarshal(wf.Definition, &def); err != nil {
		return id.Nil, fmt.Errorf("%w: parsing stored definition for workflow %s: %w", stepflow.ErrInvalidWorkflow, workflowID, err)
	}

	ordered, err := plan.Sort(def)
	if err != nil {
		return id.Nil, err
	}

	now := e.now()
	runID := id.NewRunID()
	run := &workflow.Run{
		ID:               runID,
		WorkflowID:       workflowID,
		Status:           workflow.RunStatusPending,
		BusinessObjectID: businessObjectID,
		CreatedAt:        now,
	}

	steps := make([]*workflow.Step, len(ordered))
	for i, spec := range ordered {
		steps[i] = &workflow.Step{
			ID:              id.NewStepID(),
			RunID:           runID,
			StepName:        spec.ID,
			StepIndex:       i,
			Type:            spec.Type,
			DependsOn:       spec.DependsOn,
			Action:          spec.Config.Action,
			DurationSeconds: spec.Config.DurationSeconds,
			FailProbability: spec.Config.FailProbability,
			MaxRetries:      spec.Config.MaxRetries,
			Status:          workflow.StepStatusPending,
			CreatedAt:       now,
		}
	}

	if err := e.store.CreateRun(ctx, run, steps); err != nil {
		return id.Nil, fmt.Errorf("%w: persisting run: %w", stepflow.ErrStoreUnavailable, err)
	}

	e.supervisor.Submit(ctx, runID)
	return runID, nil
}

// RunSnapshot is a read-only view of a Run and its ordered Steps.
type RunSnapshot struct {
	Run   *workflow.Run
	Steps []*workflow.Step
}

// GetRun returns a read-only snapshot of runID's Run and ordered Steps.
func (e *Engine) GetRun(ctx context.Context, runID id.RunID) (*RunSnapshot, error) {
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	steps, err := e.store.GetSteps(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &RunSnapshot{Run: run, Steps: steps}, nil
}

// ListRuns returns every Run matching opts.
func (e *Engine) ListRuns(ctx context.Context, opts workflow.ListRunsOpts) ([]*workflow.Run, error) {
	return e.store.ListRuns(ctx, opts)
}

// ListWorkflows returns every stored Workflow.
func (e *Engine) ListWorkflows(ctx context.Context) ([]*workflow.Workflow, error) {
	return e.store.ListWorkflows(ctx)
}

// GetWorkflow returns the Workflow identified by workflowID.
func (e *Engine) GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*workflow.Workflow, error) {
	return e.store.GetWorkflow(ctx, workflowID)
}

// CreateBusinessObject creates a demo Order with the given amount,
// status PENDING, for a Run to reference.
func (e *Engine) CreateBusinessObject(ctx context.Context, amount float64) (id.OrderID, error) {
	now := e.now()
	o := &order.Order{
		ID:        id.NewOrderID(),
		Status:    order.StatusPending,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateOrder(ctx, o); err != nil {
		return id.Nil, fmt.Errorf("%w: persisting business object: %w", stepflow.ErrStoreUnavailable, err)
	}
	return o.ID, nil
}

// GetBusinessObject returns the Order identified by orderID.
func (e *Engine) GetBusinessObject(ctx context.Context, orderID id.OrderID) (*order.Order, error) {
	return e.store.GetOrder(ctx, orderID)
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}
