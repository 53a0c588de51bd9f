package taskgraph

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aristath/commander/internal/commander"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func recordingJob(name string, order *[]string, mu *sync.Mutex, fail bool) commander.Job {
	return commander.JobFunc(func(ctx context.Context, self *commander.JobNode) (any, error) {
		mu.Lock()
		*order = append(*order, name)
		mu.Unlock()
		if fail {
			return nil, errors.New(name + " failed")
		}
		return name, nil
	})
}

func TestScheduleRunsDependentOnlyAfterDependency(t *testing.T) {
	var mu sync.Mutex
	var order []string

	g := NewGraph()
	mustAdd(t, g, TaskSpec{ID: "a", Job: recordingJob("a", &order, &mu, false)})
	mustAdd(t, g, TaskSpec{ID: "b", DependsOn: []string{"a"}, Job: recordingJob("b", &order, &mu, false)})

	job, err := g.Schedule()
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	c := commander.NewCommander(nil)
	if _, err := c.Run(testCtx(t), true, job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected run order: %v", order)
	}
}

func TestScheduleFailHardBlocksDependent(t *testing.T) {
	var mu sync.Mutex
	var order []string

	g := NewGraph()
	mustAdd(t, g, TaskSpec{ID: "a", FailureMode: FailHard, Job: recordingJob("a", &order, &mu, true)})
	mustAdd(t, g, TaskSpec{ID: "b", DependsOn: []string{"a"}, Job: recordingJob("b", &order, &mu, false)})

	job, err := g.Schedule()
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	c := commander.NewCommander(nil)
	if _, err := c.Run(testCtx(t), true, job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("expected only 'a' to run, got: %v", order)
	}
}

func TestScheduleFailSoftUnblocksDependent(t *testing.T) {
	var mu sync.Mutex
	var order []string

	g := NewGraph()
	mustAdd(t, g, TaskSpec{ID: "a", FailureMode: FailSoft, Job: recordingJob("a", &order, &mu, true)})
	mustAdd(t, g, TaskSpec{ID: "b", DependsOn: []string{"a"}, Job: recordingJob("b", &order, &mu, false)})

	job, err := g.Schedule()
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	c := commander.NewCommander(nil)
	if _, err := c.Run(testCtx(t), true, job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 {
		t.Fatalf("expected both tasks to run, got: %v", order)
	}
}

func TestScheduleWaitsForAllDependencies(t *testing.T) {
	var mu sync.Mutex
	var order []string

	g := NewGraph()
	mustAdd(t, g, TaskSpec{ID: "a", Job: recordingJob("a", &order, &mu, false)})
	mustAdd(t, g, TaskSpec{ID: "b", Job: recordingJob("b", &order, &mu, false)})
	mustAdd(t, g, TaskSpec{ID: "c", DependsOn: []string{"a", "b"}, Job: recordingJob("c", &order, &mu, false)})

	job, err := g.Schedule()
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	c := commander.NewCommander(nil)
	if _, err := c.Run(testCtx(t), true, job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("expected c to run last, got: %v", order)
	}
}
