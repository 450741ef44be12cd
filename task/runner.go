package task

import (
	"context"
	"fmt"
	"time"

	"github.com/stepflow/stepflow"
)

// Config is the subset of a step's config TaskRunner acts on.
type Config struct {
	Action          string
	DurationSeconds float64
	FailProbability float64
}

// Outcome is the result of one TaskRunner.Run call.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFail
)

// Runner suspends the caller for cfg.DurationSeconds, then returns
// OutcomeSuccess with probability 1-cfg.FailProbability and OutcomeFail
// otherwise. fail_probability == 0.0 always succeeds; == 1.0 always
// fails, regardless of the Random source.
type Runner struct {
	clock  Clock
	random Random
}

// New creates a Runner with the given Clock and Random seams.
func New(clock Clock, random Random) *Runner {
	return &Runner{clock: clock, random: random}
}

// NewSystem creates a Runner backed by real time and real randomness.
func NewSystem() *Runner {
	return New(SystemClock{}, SystemRandom{})
}

// Run sleeps for the configured duration (or until ctx is canceled) and
// then decides success or failure.
func (r *Runner) Run(ctx context.Context, cfg Config) (Outcome, error) {
	duration := time.Duration(cfg.DurationSeconds * float64(time.Second))
	if err := r.clock.Sleep(ctx, duration); err != nil {
		return OutcomeFail, fmt.Errorf("%w: task %q interrupted: %w", stepflow.ErrStepTaskFailed, cfg.Action, err)
	}

	if cfg.FailProbability >= 1.0 {
		return OutcomeFail, fmt.Errorf("%w: task %q failed (fail_probability=%v)", stepflow.ErrStepTaskFailed, cfg.Action, cfg.FailProbability)
	}
	if cfg.FailProbability <= 0.0 {
		return OutcomeSuccess, nil
	}

	if r.random.Float64() < cfg.FailProbability {
		return OutcomeFail, fmt.Errorf("%w: task %q failed (fail_probability=%v)", stepflow.ErrStepTaskFailed, cfg.Action, cfg.FailProbability)
	}
	return OutcomeSuccess, nil
}
