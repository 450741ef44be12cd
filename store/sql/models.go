package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/stepflow/stepflow/id"
	"github.com/stepflow/stepflow/order"
	"github.com/stepflow/stepflow/workflow"
)

// ── Workflow model ────────────────────────────────────────────────

type workflowModel struct {
	bun.BaseModel `bun:"table:workflows"`

	ID         string    `bun:"id,pk"`
	Name       string    `bun:"name,notnull"`
	Definition []byte    `bun:"definition,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func toWorkflowModel(wf *workflow.Workflow) *workflowModel {
	return &workflowModel{
		ID:         wf.ID.String(),
		Name:       wf.Name,
		Definition: []byte(wf.Definition),
		CreatedAt:  wf.CreatedAt,
	}
}

func fromWorkflowModel(m *workflowModel) (*workflow.Workflow, error) {
	parsedID, err := id.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: parse workflow id %q: %w", m.ID, err)
	}
	return &workflow.Workflow{
		ID:         parsedID,
		Name:       m.Name,
		Definition: json.RawMessage(m.Definition),
		CreatedAt:  m.CreatedAt,
	}, nil
}

// ── Run model ─────────────────────────────────────────────────────

type runModel struct {
	bun.BaseModel `bun:"table:runs"`

	ID               string     `bun:"id,pk"`
	WorkflowID       string     `bun:"workflow_id,notnull"`
	Status           string     `bun:"status,notnull"`
	BusinessObjectID *string    `bun:"business_object_id"`
	StartedAt        *time.Time `bun:"started_at"`
	CompletedAt      *time.Time `bun:"completed_at"`
	CreatedAt        time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

func toRunModel(r *workflow.Run) *runModel {
	m := &runModel{
		ID:          r.ID.String(),
		WorkflowID:  r.WorkflowID.String(),
		Status:      string(r.Status),
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
	}
	if r.BusinessObjectID != nil {
		s := r.BusinessObjectID.String()
		m.BusinessObjectID = &s
	}
	return m
}

func fromRunModel(m *runModel) (*workflow.Run, error) {
	parsedID, err := id.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: parse run id %q: %w", m.ID, err)
	}
	workflowID, err := id.Parse(m.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: parse run's workflow id %q: %w", m.WorkflowID, err)
	}

	run := &workflow.Run{
		ID:          parsedID,
		WorkflowID:  workflowID,
		Status:      workflow.RunStatus(m.Status),
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		CreatedAt:   m.CreatedAt,
	}
	if m.BusinessObjectID != nil {
		boID, boErr := id.Parse(*m.BusinessObjectID)
		if boErr != nil {
			return nil, fmt.Errorf("sqlstore: parse run's business object id %q: %w", *m.BusinessObjectID, boErr)
		}
		run.BusinessObjectID = &boID
	}
	return run, nil
}

// ── Step model ────────────────────────────────────────────────────

type stepModel struct {
	bun.BaseModel `bun:"table:steps"`

	ID              string     `bun:"id,pk"`
	RunID           string     `bun:"run_id,notnull"`
	StepName        string     `bun:"step_name,notnull"`
	StepIndex       int        `bun:"step_index,notnull"`
	Type            string     `bun:"type,notnull"`
	DependsOn       []byte     `bun:"depends_on,notnull"`
	Action          string     `bun:"action,notnull"`
	DurationSeconds float64    `bun:"duration_seconds,notnull"`
	FailProbability float64    `bun:"fail_probability,notnull"`
	Status          string     `bun:"status,notnull"`
	IdempotencyKey  *string    `bun:"idempotency_key"`
	RetryCount      int        `bun:"retry_count,notnull"`
	MaxRetries      int        `bun:"max_retries,notnull"`
	StartedAt       *time.Time `bun:"started_at"`
	CompletedAt     *time.Time `bun:"completed_at"`
	ErrorMessage    *string    `bun:"error_message"`
	CreatedAt       time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

func toStepModel(s *workflow.Step) (*stepModel, error) {
	dependsOn, err := json.Marshal(s.DependsOn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: marshal step depends_on: %w", err)
	}

	m := &stepModel{
		ID:              s.ID.String(),
		RunID:           s.RunID.String(),
		StepName:        s.StepName,
		StepIndex:       s.StepIndex,
		Type:            s.Type,
		DependsOn:       dependsOn,
		Action:          s.Action,
		DurationSeconds: s.DurationSeconds,
		FailProbability: s.FailProbability,
		Status:          string(s.Status),
		RetryCount:      s.RetryCount,
		MaxRetries:      s.MaxRetries,
		StartedAt:       s.StartedAt,
		CompletedAt:     s.CompletedAt,
		ErrorMessage:    s.ErrorMessage,
		CreatedAt:       s.CreatedAt,
	}
	if s.IdempotencyKey != nil {
		key := s.IdempotencyKey.String()
		m.IdempotencyKey = &key
	}
	return m, nil
}

func fromStepModel(m *stepModel) (*workflow.Step, error) {
	parsedID, err := id.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: parse step id %q: %w", m.ID, err)
	}
	runID, err := id.Parse(m.RunID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: parse step's run id %q: %w", m.RunID, err)
	}

	var dependsOn []string
	if len(m.DependsOn) > 0 {
		if unmarshalErr := json.Unmarshal(m.DependsOn, &dependsOn); unmarshalErr != nil {
			return nil, fmt.Errorf("sqlstore: unmarshal step depends_on: %w", unmarshalErr)
		}
	}

	step := &workflow.Step{
		ID:              parsedID,
		RunID:           runID,
		StepName:        m.StepName,
		StepIndex:       m.StepIndex,
		Type:            m.Type,
		DependsOn:       dependsOn,
		Action:          m.Action,
		DurationSeconds: m.DurationSeconds,
		FailProbability: m.FailProbability,
		Status:          workflow.StepStatus(m.Status),
		RetryCount:      m.RetryCount,
		MaxRetries:      m.MaxRetries,
		StartedAt:       m.StartedAt,
		CompletedAt:     m.CompletedAt,
		ErrorMessage:    m.ErrorMessage,
		CreatedAt:       m.CreatedAt,
	}
	if m.IdempotencyKey != nil {
		key, keyErr := id.Parse(*m.IdempotencyKey)
		if keyErr != nil {
			return nil, fmt.Errorf("sqlstore: parse step idempotency key %q: %w", *m.IdempotencyKey, keyErr)
		}
		step.IdempotencyKey = &key
	}
	return step, nil
}

// ── StepResult model ──────────────────────────────────────────────

type stepResultModel struct {
	bun.BaseModel `bun:"table:step_results"`

	IdempotencyKey string    `bun:"idempotency_key,pk"`
	StepID         string    `bun:"step_id,notnull"`
	ResultData     []byte    `bun:"result_data"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func toStepResultModel(r *workflow.StepResult) *stepResultModel {
	return &stepResultModel{
		IdempotencyKey: r.IdempotencyKey.String(),
		StepID:         r.StepID.String(),
		ResultData:     []byte(r.ResultData),
		CreatedAt:      r.CreatedAt,
	}
}

func fromStepResultModel(m *stepResultModel) (*workflow.StepResult, error) {
	key, err := id.Parse(m.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: parse step result key %q: %w", m.IdempotencyKey, err)
	}
	stepID, err := id.Parse(m.StepID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: parse step result's step id %q: %w", m.StepID, err)
	}
	return &workflow.StepResult{
		IdempotencyKey: key,
		StepID:         stepID,
		ResultData:     json.RawMessage(m.ResultData),
		CreatedAt:      m.CreatedAt,
	}, nil
}

// ── BusinessObject (order) model ──────────────────────────────────

type orderModel struct {
	bun.BaseModel `bun:"table:business_objects"`

	ID        string    `bun:"id,pk"`
	Status    string    `bun:"status,notnull"`
	Amount    float64   `bun:"amount,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func toOrderModel(o *order.Order) *orderModel {
	return &orderModel{
		ID:        o.ID.String(),
		Status:    string(o.Status),
		Amount:    o.Amount,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func fromOrderModel(m *orderModel) (*order.Order, error) {
	parsedID, err := id.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: parse business object id %q: %w", m.ID, err)
	}
	return &order.Order{
		ID:        parsedID,
		Status:    order.Status(m.Status),
		Amount:    m.Amount,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}
