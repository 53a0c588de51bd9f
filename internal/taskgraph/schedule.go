package taskgraph

import (
	"context"
	"sync"

	"github.com/aristath/commander/internal/commander"
)

// resolution is per-task bookkeeping the scheduler uses to decide when
// a task becomes eligible, mirroring the teacher's
// DAG.isDependencyResolved without a polling loop: each dependency's
// own at_job_end callback drives the recheck.
type resolution struct {
	remaining int // dependencies (of any FailureMode) not yet resolved
	blocked   bool
	submitted bool
}

// Schedule validates g and returns a commander.Job that, once
// submitted to a Commander, submits every task with no dependencies
// immediately as its own children and wires each remaining task's
// eligibility to its dependencies' at_job_end events — the same event
// AddEdge listens on, generalized here since a task can wait on more
// than one dependency where AddEdge only models one-to-one edges.
func (g *Graph) Schedule() (commander.Job, error) {
	if _, err := g.Validate(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	order := append([]string(nil), g.order...)
	tasks := make(map[string]*TaskSpec, len(g.tasks))
	for id, t := range g.tasks {
		tasks[id] = t
	}
	dependents := g.dependents()
	g.mu.RUnlock()

	return commander.JobFunc(func(ctx context.Context, self *commander.JobNode) (any, error) {
		s := &scheduleRun{
			self:       self,
			tasks:      tasks,
			dependents: dependents,
			res:        make(map[string]*resolution, len(tasks)),
		}
		for _, id := range order {
			s.res[id] = &resolution{remaining: len(tasks[id].DependsOn)}
		}
		for _, id := range order {
			s.maybeSubmit(id)
		}
		return nil, nil
	}), nil
}

type scheduleRun struct {
	mu         sync.Mutex
	self       *commander.JobNode
	tasks      map[string]*TaskSpec
	dependents map[string][]string
	res        map[string]*resolution
}

// maybeSubmit submits task id if it is eligible and hasn't been
// submitted yet. Safe to call more than once per task.
func (s *scheduleRun) maybeSubmit(id string) {
	s.mu.Lock()
	r := s.res[id]
	if r.submitted || r.blocked || r.remaining > 0 {
		s.mu.Unlock()
		return
	}
	r.submitted = true
	s.mu.Unlock()

	node, err := s.self.PutJob(s.tasks[id].Job)
	if err != nil {
		// The Commander rejected the submission (e.g. the scheduling
		// job's own parent was terminated mid-run); the task and
		// everything downstream of it simply never runs.
		return
	}

	node.AddCallback(commander.AtJobEnd, func(ctx context.Context, n *commander.TaskNode) error {
		s.onResolved(id, n.State() == commander.Failed)
		return nil
	})
}

// onResolved fans a completed task's outcome out to its dependents,
// unblocking or permanently blocking each one per its FailureMode.
func (s *scheduleRun) onResolved(id string, failed bool) {
	for _, dep := range s.dependents[id] {
		s.mu.Lock()
		r := s.res[dep]
		switch {
		case failed && s.tasks[id].FailureMode == FailHard:
			r.blocked = true
		default:
			r.remaining--
		}
		s.mu.Unlock()
		s.maybeSubmit(dep)
	}
}
