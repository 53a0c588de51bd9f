package taskgraph

import (
	"context"
	"testing"

	"github.com/aristath/commander/internal/commander"
)

func noopJob() commander.Job {
	return commander.JobFunc(func(ctx context.Context, self *commander.JobNode) (any, error) {
		return nil, nil
	})
}

func TestAddTaskRejectsConflictingRedeclaration(t *testing.T) {
	g := NewGraph()
	if err := g.AddTask(TaskSpec{ID: "a", Job: noopJob()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddTask(TaskSpec{ID: "a", DependsOn: []string{"b"}, Job: noopJob()}); err == nil {
		t.Fatalf("expected error for conflicting redeclaration of %q", "a")
	}
}

func TestAddTaskAllowsIdenticalRedeclaration(t *testing.T) {
	g := NewGraph()
	spec := TaskSpec{ID: "a", DependsOn: []string{"b"}, FailureMode: FailSoft, Job: noopJob()}
	if err := g.AddTask(TaskSpec{ID: "b", Job: noopJob()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddTask(spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddTask(spec); err != nil {
		t.Fatalf("resubmitting an identical task should be a no-op, got: %v", err)
	}
}

func TestValidateRejectsCycle(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, TaskSpec{ID: "a", DependsOn: []string{"b"}, Job: noopJob()})
	mustAdd(t, g, TaskSpec{ID: "b", DependsOn: []string{"a"}, Job: noopJob()})

	if _, err := g.Validate(); err == nil {
		t.Fatal("expected cycle error, got nil")
	}
}

func TestValidateRejectsMissingDependency(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, TaskSpec{ID: "a", DependsOn: []string{"ghost"}, Job: noopJob()})

	if _, err := g.Validate(); err == nil {
		t.Fatal("expected missing-dependency error, got nil")
	}
}

func TestValidateOrdersByDependency(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, TaskSpec{ID: "a", Job: noopJob()})
	mustAdd(t, g, TaskSpec{ID: "b", DependsOn: []string{"a"}, Job: noopJob()})
	mustAdd(t, g, TaskSpec{ID: "c", DependsOn: []string{"a", "b"}, Job: noopJob()})

	order, err := g.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Fatalf("unexpected order: %v", order)
	}
}

func mustAdd(t *testing.T, g *Graph, spec TaskSpec) {
	t.Helper()
	if err := g.AddTask(spec); err != nil {
		t.Fatalf("AddTask(%q): %v", spec.ID, err)
	}
}
