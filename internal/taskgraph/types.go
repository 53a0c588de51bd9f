package taskgraph

import "github.com/aristath/commander/internal/commander"

// FailureMode determines how a task's failure affects the tasks that
// depend on it. Ported from the teacher's scheduler.Task.
type FailureMode int

const (
	// FailHard blocks every dependent forever once this task fails.
	FailHard FailureMode = iota
	// FailSoft lets dependents still become eligible once this task fails.
	FailSoft
	// FailSkip treats a failure as a success for dependency resolution.
	FailSkip
)

func (m FailureMode) String() string {
	switch m {
	case FailHard:
		return "fail-hard"
	case FailSoft:
		return "fail-soft"
	case FailSkip:
		return "fail-skip"
	default:
		return "unknown"
	}
}

// TaskSpec declares one node of a dependency graph: the Job it runs
// and the tasks it waits on before the Commander will submit it.
type TaskSpec struct {
	// ID must be unique within a Graph.
	ID string
	// DependsOn lists the IDs of tasks that must resolve first.
	DependsOn []string
	// FailureMode governs how a failure of THIS task is treated by
	// whatever depends on it.
	FailureMode FailureMode
	// Job is the unit of work the Commander actually runs. Excluded
	// from the identity hash since function values aren't hashable.
	Job commander.Job
}

// identity is the hashable shadow of a TaskSpec used to detect a task
// resubmitted with the same ID and the same dependency set.
type identity struct {
	ID          string
	DependsOn   []string
	FailureMode FailureMode
}
