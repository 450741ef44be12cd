// Package plan implements the TopoPlanner component: it takes a validated
// workflow definition and produces the execution order StepExecutor and
// RunWorker consume, assigning each step a contiguous step_index.
//
// It runs Kahn's algorithm seeded with zero-in-degree steps in input
// order, with newly-ready dependents re-sorted by their original input
// position before being queued, so the result is deterministic and
// equal to the input order whenever the input is already topologically
// sorted.
package plan

import (
	"fmt"
	"sort"

	"github.com/stepflow/stepflow"
	"github.com/stepflow/stepflow/workflowdef"
)

// Sort returns def.Steps reordered into a valid topological linearization
// using Kahn's algorithm with a stable tie-break: among currently-ready
// steps (in-degree 0), the one with the smallest position in the input
// list is chosen next.
//
// Sort assumes workflowdef.Validate has already run — it does not
// re-check for duplicate ids or unknown references — but it is the sole
// detector of cycles, returning stepflow.ErrCycleDetected when Kahn's
// algorithm terminates with unprocessed nodes remaining.
func Sort(def workflowdef.Definition) ([]workflowdef.StepSpec, error) {
	steps := def.Steps
	n := len(steps)

	indexOf := make(map[string]int, n)
	for i, s := range steps {
		indexOf[s.ID] = i
	}

	// inDegree[i] counts how many of steps[i]'s dependencies have not yet
	// been emitted. dependents[i] lists the indices of steps that name
	// steps[i] in their depends_on.
	inDegree := make([]int, n)
	dependents := make([][]int, n)
	for i, s := range steps {
		inDegree[i] = len(s.DependsOn)
		for _, dep := range s.DependsOn {
			j := indexOf[dep]
			dependents[j] = append(dependents[j], i)
		}
	}

	ready := make([]int, 0, n)
	for i := range steps {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	ordered := make([]workflowdef.StepSpec, 0, n)
	for len(ready) > 0 {
		// Pop the smallest-original-index ready node.
		i := ready[0]
		ready = ready[1:]
		ordered = append(ordered, steps[i])

		newlyReady := make([]int, 0)
		for _, j := range dependents[i] {
			inDegree[j]--
			if inDegree[j] == 0 {
				newlyReady = append(newlyReady, j)
			}
		}
		// Stable tie-break: merge newly-ready nodes in by original index.
		sort.Ints(newlyReady)
		ready = mergeSorted(ready, newlyReady)
	}

	if len(ordered) != n {
		return nil, fmt.Errorf("%w: workflow %q has a cycle among its steps", stepflow.ErrCycleDetected, def.Name)
	}

	return ordered, nil
}

// mergeSorted merges two already-sorted index slices into one sorted
// slice, preserving the queue's FIFO-by-index behavior without needing
// to re-sort the whole queue on every pop.
func mergeSorted(a, b []int) []int {
	if len(b) == 0 {
		return a
	}
	merged := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			merged = append(merged, a[i])
			i++
		} else {
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	return merged
}
