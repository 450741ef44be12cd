// Package workflowdef defines the workflow definition document format —
// the JSON shape a caller submits to create_workflow — and the defaults
// applied to each step's configuration.
package workflowdef

import "encoding/json"

// Definition is the input document for create_workflow.
type Definition struct {
	Name  string     `json:"name"`
	Steps []StepSpec `json:"steps"`
}

// StepSpec is one node of the definition's step list, in caller-supplied
// order (not yet topologically sorted).
type StepSpec struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	DependsOn  []string   `json:"depends_on"`
	Config     StepConfig `json:"config"`
}

// StepConfig carries the parameters TaskRunner and ActionRegistry act on.
// When decoded from JSON, a field absent from the input takes the default
// documented on it; an explicit zero is kept as zero.
type StepConfig struct {
	// Action, if set and registered, is invoked atomically with step
	// completion. Free-form; unknown values are no-ops.
	Action string `json:"action,omitempty"`

	// DurationSeconds is how long TaskRunner sleeps before deciding
	// success or failure. Defaults to 1.0 when the field is omitted from
	// the input JSON (see UnmarshalJSON).
	DurationSeconds float64 `json:"duration_seconds"`

	// FailProbability in [0.0, 1.0]. Defaults to 0.0.
	FailProbability float64 `json:"fail_probability"`

	// MaxRetries, a non-negative retry budget. Defaults to 0.
	MaxRetries int `json:"max_retries"`
}

// rawStepConfig mirrors StepConfig but with pointer fields, so
// UnmarshalJSON can tell "absent from the input" apart from "explicitly
// zero" before applying defaults.
type rawStepConfig struct {
	Action          string   `json:"action,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds"`
	FailProbability *float64 `json:"fail_probability"`
	MaxRetries      *int     `json:"max_retries"`
}

const (
	defaultDurationSeconds = 1.0
	defaultFailProbability = 0.0
	defaultMaxRetries      = 0
)

// UnmarshalJSON applies the definition format's field defaults
// (duration_seconds=1.0, fail_probability=0.0, max_retries=0) exactly the
// way the original Pydantic model does via field defaults.
func (c *StepConfig) UnmarshalJSON(data []byte) error {
	var raw rawStepConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Action = raw.Action

	if raw.DurationSeconds != nil {
		c.DurationSeconds = *raw.DurationSeconds
	} else {
		c.DurationSeconds = defaultDurationSeconds
	}

	if raw.FailProbability != nil {
		c.FailProbability = *raw.FailProbability
	} else {
		c.FailProbability = defaultFailProbability
	}

	if raw.MaxRetries != nil {
		c.MaxRetries = *raw.MaxRetries
	} else {
		c.MaxRetries = defaultMaxRetries
	}

	return nil
}

// UnmarshalJSON decodes a step, giving it StepConfig's field defaults when
// its config object is absent from the input.
func (s *StepSpec) UnmarshalJSON(data []byte) error {
	type plain StepSpec
	p := plain{Config: StepConfig{
		DurationSeconds: defaultDurationSeconds,
		FailProbability: defaultFailProbability,
		MaxRetries:      defaultMaxRetries,
	}}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = StepSpec(p)
	return nil
}

// Marshal serializes def to the definition document format.
func Marshal(def Definition) ([]byte, error) {
	return json.Marshal(def)
}

// Unmarshal parses a definition document into def, applying
// StepConfig's field defaults to any step whose config is absent or
// only partially specified.
func Unmarshal(data []byte, def *Definition) error {
	return json.Unmarshal(data, def)
}
