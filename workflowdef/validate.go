package workflowdef

import (
	"fmt"

	"github.com/stepflow/stepflow"
)

var errInvalid = stepflow.ErrInvalidWorkflow

// Validate checks structural and numeric constraints on a Definition
// before it reaches the topological planner: step ids unique within the
// workflow, every depends_on reference resolving to a known step id
// (forward references allowed), and each numeric config field within its
// valid range. It does not detect cycles — that is TopoPlanner's job,
// surfaced as a distinct cycle-detected error.
//
// Checks run in three passes: duplicate ids, then unknown references,
// then (by the caller, via plan.Sort) cycles.
func Validate(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: workflow name must not be empty", errInvalid)
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("%w: workflow must have at least one step", errInvalid)
	}

	seen := make(map[string]struct{}, len(def.Steps))
	for _, s := range def.Steps {
		if s.ID == "" {
			return fmt.Errorf("%w: step id must not be empty", errInvalid)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate step id %q", errInvalid, s.ID)
		}
		seen[s.ID] = struct{}{}
	}

	for _, s := range def.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("%w: step %q depends_on unknown step %q", errInvalid, s.ID, dep)
			}
		}
		if err := validateConfig(s.ID, s.Config); err != nil {
			return err
		}
	}

	return nil
}

func validateConfig(stepID string, c StepConfig) error {
	if c.DurationSeconds < 0 {
		return fmt.Errorf("%w: step %q duration_seconds must be >= 0, got %v", errInvalid, stepID, c.DurationSeconds)
	}
	if c.FailProbability < 0.0 || c.FailProbability > 1.0 {
		return fmt.Errorf("%w: step %q fail_probability must be in [0.0, 1.0], got %v", errInvalid, stepID, c.FailProbability)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: step %q max_retries must be >= 0, got %v", errInvalid, stepID, c.MaxRetries)
	}
	return nil
}
