package taskgraph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gammazero/toposort"
	"github.com/mitchellh/hashstructure/v2"
)

// Graph is a declarative set of TaskSpecs with dependency edges,
// generalizing the teacher's single-workflow DAG to an arbitrary
// dependency set. Graph never reorders independent tasks; ties are
// broken by declaration order when Schedule submits root tasks.
type Graph struct {
	mu     sync.RWMutex
	order  []string
	tasks  map[string]*TaskSpec
	hashes map[string]uint64
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		tasks:  make(map[string]*TaskSpec),
		hashes: make(map[string]uint64),
	}
}

// AddTask adds spec to the graph. Adding a task with the same ID and
// an identical dependency set/failure mode as one already present is a
// no-op (the same task resubmitted). Adding a task whose ID already
// exists with a DIFFERENT dependency set or failure mode is an error.
func (g *Graph) AddTask(spec TaskSpec) error {
	h, err := hashstructure.Hash(identity{ID: spec.ID, DependsOn: spec.DependsOn, FailureMode: spec.FailureMode}, hashstructure.FormatV2, nil)
	if err != nil {
		return fmt.Errorf("taskgraph: hashing task %q: %w", spec.ID, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.hashes[spec.ID]; ok {
		if existing == h {
			return nil
		}
		return fmt.Errorf("taskgraph: task %q already exists with a different dependency set", spec.ID)
	}

	cp := spec
	cp.DependsOn = append([]string(nil), spec.DependsOn...)
	g.tasks[spec.ID] = &cp
	g.hashes[spec.ID] = h
	g.order = append(g.order, spec.ID)
	return nil
}

// Validate runs a topological sort over the declared dependencies,
// rejecting a cycle the same way the teacher's scheduler.DAG.Validate
// does, and verifying every DependsOn entry names a task in the graph.
func (g *Graph) Validate() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, task := range g.tasks {
		for _, dep := range task.DependsOn {
			if _, ok := g.tasks[dep]; !ok {
				return nil, fmt.Errorf("taskgraph: task %q depends on non-existent task %q", id, dep)
			}
		}
	}

	var edges []toposort.Edge
	for id, task := range g.tasks {
		if len(task.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, id})
		} else {
			for _, dep := range task.DependsOn {
				edges = append(edges, toposort.Edge{dep, id})
			}
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("taskgraph: graph contains a cycle: %w", err)
	}

	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}

	if len(order) != len(g.tasks) {
		missing := make([]string, 0)
		seen := make(map[string]bool, len(order))
		for _, id := range order {
			seen[id] = true
		}
		for id := range g.tasks {
			if !seen[id] {
				missing = append(missing, id)
			}
		}
		return nil, fmt.Errorf("taskgraph: topological sort lost %d task(s): %s", len(missing), strings.Join(missing, ", "))
	}

	return order, nil
}

// dependents returns, for every task, the IDs of tasks that depend on
// it directly.
func (g *Graph) dependents() map[string][]string {
	out := make(map[string][]string)
	for _, id := range g.order {
		for _, dep := range g.tasks[id].DependsOn {
			out[dep] = append(out[dep], id)
		}
	}
	return out
}
