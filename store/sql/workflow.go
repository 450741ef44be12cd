package sqlstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/stepflow/stepflow"
	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
	"github.com/stepflow/stepflow/workflow"
)

// CreateWorkflow persists a new Workflow.
func (s *Store) CreateWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	m := toWorkflowModel(wf)
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("sqlstore: create workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a Workflow by ID.
func (s *Store) GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*workflow.Workflow, error) {
	m := new(workflowModel)
	err := s.db.NewSelect().Model(m).Where("id = ?", workflowID.String()).Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, stepflow.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("sqlstore: get workflow: %w", err)
	}
	return fromWorkflowModel(m)
}

// ListWorkflows returns every stored Workflow ordered by creation time.
func (s *Store) ListWorkflows(ctx context.Context) ([]*workflow.Workflow, error) {
	var models []workflowModel
	if err := s.db.NewSelect().Model(&models).Order("created_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("sqlstore: list workflows: %w", err)
	}
	out := make([]*workflow.Workflow, 0, len(models))
	for i := range models {
		wf, err := fromWorkflowModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	return out, nil
}

// CreateRun persists a Run and its pre-planned Steps together in one
// transaction, matching the semantics workflow.Store documents.
func (s *Store) CreateRun(ctx context.Context, run *workflow.Run, steps []*workflow.Step) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(toRunModel(run)).Exec(ctx); err != nil {
			return fmt.Errorf("sqlstore: create run: %w", err)
		}
		for _, step := range steps {
			m, err := toStepModel(step)
			if err != nil {
				return err
			}
			if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
				return fmt.Errorf("sqlstore: create run's step %q: %w", step.StepName, err)
			}
		}
		return nil
	})
}

// GetRun retrieves a Run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*workflow.Run, error) {
	m := new(runModel)
	err := s.db.NewSelect().Model(m).Where("id = ?", runID.String()).Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, stepflow.ErrRunNotFound
		}
		return nil, fmt.Errorf("sqlstore: get run: %w", err)
	}
	return fromRunModel(m)
}

// UpdateRun persists changes to an existing Run.
func (s *Store) UpdateRun(ctx context.Context, run *workflow.Run) error {
	res, err := s.db.NewUpdate().Model(toRunModel(run)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: update run: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return stepflow.ErrRunNotFound
	}
	return nil
}

// ListRuns returns every Run matching opts.
func (s *Store) ListRuns(ctx context.Context, opts workflow.ListRunsOpts) ([]*workflow.Run, error) {
	q := s.db.NewSelect().Model((*runModel)(nil))
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	q = q.Order("created_at ASC")

	var models []runModel
	if err := q.Scan(ctx, &models); err != nil {
		return nil, fmt.Errorf("sqlstore: list runs: %w", err)
	}
	out := make([]*workflow.Run, 0, len(models))
	for i := range models {
		run, err := fromRunModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

// GetSteps returns runID's Steps ordered by StepIndex ascending.
func (s *Store) GetSteps(ctx context.Context, runID id.RunID) ([]*workflow.Step, error) {
	var models []stepModel
	err := s.db.NewSelect().Model(&models).
		Where("run_id = ?", runID.String()).
		Order("step_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get steps: %w", err)
	}
	out := make([]*workflow.Step, 0, len(models))
	for i := range models {
		step, err := fromStepModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, step)
	}
	return out, nil
}

// UpdateStep persists a write to a Step (Write A, a retry, a
// permanent-failure write, or the probe's completion when a StepResult
// already exists). See workflow.Store's doc comment for why Write B never
// calls this.
func (s *Store) UpdateStep(ctx context.Context, step *workflow.Step) error {
	m, err := toStepModel(step)
	if err != nil {
		return err
	}
	res, execErr := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if execErr != nil {
		return fmt.Errorf("sqlstore: update step: %w", execErr)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return stepflow.ErrStepNotFound
	}
	return nil
}

// GetStepResult probes for a StepResult by idempotency key.
func (s *Store) GetStepResult(ctx context.Context, key id.StepResultID) (*workflow.StepResult, error) {
	m := new(stepResultModel)
	err := s.db.NewSelect().Model(m).Where("idempotency_key = ?", key.String()).Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, stepflow.ErrStepResultNotFound
		}
		return nil, fmt.Errorf("sqlstore: get step result: %w", err)
	}
	return fromStepResultModel(m)
}

// CommitStepSuccess performs Write B — the StepResult insert, the Step's
// move to COMPLETED, and action's order mutation — inside one
// bun.RunInTx transaction, so any part failing rolls the whole write
// back at the database level.
func (s *Store) CommitStepSuccess(ctx context.Context, step *workflow.Step, result *workflow.StepResult, action workflow.StepAction) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if action != nil {
			if err := action(ctx, &txOrderStore{tx: tx}); err != nil {
				return err
			}
		}

		stepM, err := toStepModel(step)
		if err != nil {
			return err
		}
		res, err := tx.NewUpdate().Model(stepM).WherePK().Exec(ctx)
		if err != nil {
			return fmt.Errorf("sqlstore: commit step success: update step: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return stepflow.ErrStepNotFound
		}

		if _, err := tx.NewInsert().Model(toStepResultModel(result)).Exec(ctx); err != nil {
			if isDuplicateKey(err) {
				return stepflow.ErrDuplicateStepResult
			}
			return fmt.Errorf("sqlstore: commit step success: insert step result: %w", err)
		}
		return nil
	})
}

// txOrderStore scopes order.Store operations to the transaction
// CommitStepSuccess is running in, so an action's order mutations commit
// or roll back atomically with the Step and StepResult writes.
type txOrderStore struct {
	tx bun.Tx
}

func (t *txOrderStore) CreateOrder(ctx context.Context, o *order.Order) error {
	if _, err := t.tx.NewInsert().Model(toOrderModel(o)).Exec(ctx); err != nil {
		return fmt.Errorf("sqlstore: tx create order: %w", err)
	}
	return nil
}

func (t *txOrderStore) GetOrder(ctx context.Context, orderID id.OrderID) (*order.Order, error) {
	m := new(orderModel)
	err := t.tx.NewSelect().Model(m).Where("id = ?", orderID.String()).Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, stepflow.ErrOrderNotFound
		}
		return nil, fmt.Errorf("sqlstore: tx get order: %w", err)
	}
	return fromOrderModel(m)
}

func (t *txOrderStore) UpdateOrder(ctx context.Context, o *order.Order) error {
	res, err := t.tx.NewUpdate().Model(toOrderModel(o)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: tx update order: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return stepflow.ErrOrderNotFound
	}
	return nil
}
