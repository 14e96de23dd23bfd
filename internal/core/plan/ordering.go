package plan

// =============================================================================
// Step Ordering Functions
// =============================================================================

// Order sorts steps by their dependencies using Kahn's algorithm.
// Steps with no unmet dependencies come first.
//
// The sort is stable with respect to declaration order: when several steps
// are runnable at the same time, the one declared first in the input runs
// first. This keeps the firewall step late in the run even though nothing
// depends on it, matching the "expose the host last" ordering.
//
// Dependencies on steps absent from the input (e.g. the firewall step when
// firewall management is disabled) are treated as satisfied.
//
// If a cycle exists, remaining steps are appended in declaration order as
// a fallback; Build produces an acyclic graph so this is defensive only
// against hand-built plans in tests.
func Order(steps []Step) []Step {
	if len(steps) == 0 {
		return steps
	}

	present := make(map[StepID]bool, len(steps))
	for _, s := range steps {
		present[s.ID] = true
	}

	// Build dependency graph, ignoring deps not in the plan
	index := make(map[StepID]int, len(steps))
	inDegree := make(map[StepID]int, len(steps))
	dependents := make(map[StepID][]StepID)

	for i, s := range steps {
		index[s.ID] = i
		for _, dep := range s.DependsOn {
			if !present[dep] {
				continue
			}
			inDegree[s.ID]++
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	var queue []StepID
	for _, s := range steps {
		if inDegree[s.ID] == 0 {
			queue = append(queue, s.ID)
		}
	}

	var result []Step
	done := make(map[StepID]bool, len(steps))
	for len(queue) > 0 {
		// Pick the runnable step declared earliest
		best := 0
		for i := 1; i < len(queue); i++ {
			if index[queue[i]] < index[queue[best]] {
				best = i
			}
		}
		id := queue[best]
		queue = append(queue[:best], queue[best+1:]...)

		result = append(result, steps[index[id]])
		done[id] = true

		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	// Cycle fallback
	if len(result) < len(steps) {
		for _, s := range steps {
			if !done[s.ID] {
				result = append(result, s)
			}
		}
	}

	return result
}
