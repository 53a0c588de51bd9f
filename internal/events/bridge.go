package events

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/commander/internal/commander"
)

// Bridge wires every lifecycle transition a Commander fires onto bus,
// publishing to TopicNode for per-node events and TopicCommander for
// at_commander_end. Call it before Run; like Commander.Observe, it
// only affects TaskNodes created afterward.
//
// at_job_start fires on the Commander's own loop goroutine, but
// at_handler_start fires on whichever goroutine called CallHandler,
// at_exception on the failing body's goroutine, and end events either
// on the loop goroutine or on the goroutine that called Terminate, so
// the start-time bookkeeping below needs its own lock.
func Bridge(cmd *commander.Commander, bus *EventBus) error {
	var mu sync.Mutex
	start := make(map[string]time.Time)
	setStart := func(id string) {
		mu.Lock()
		start[id] = time.Now()
		mu.Unlock()
	}
	takeElapsed := func(id string) time.Duration {
		mu.Lock()
		defer mu.Unlock()
		t, ok := start[id]
		if !ok {
			return 0
		}
		delete(start, id)
		return time.Since(t)
	}

	observe := func(event commander.CallbackEvent, fn commander.CallbackFunc) error {
		return cmd.Observe(event, fn)
	}

	if err := observe(commander.AtJobStart, func(ctx context.Context, n *commander.TaskNode) error {
		setStart(n.ID())
		bus.Publish(TopicNode, JobStartedEvent{ID: n.ID(), ParentID: parentID(n), Timestamp: time.Now()})
		return nil
	}); err != nil {
		return err
	}

	if err := observe(commander.AtHandlerStart, func(ctx context.Context, n *commander.TaskNode) error {
		setStart(n.ID())
		bus.Publish(TopicNode, HandlerStartedEvent{ID: n.ID(), ParentID: parentID(n), Timestamp: time.Now()})
		return nil
	}); err != nil {
		return err
	}

	if err := observe(commander.AtException, func(ctx context.Context, n *commander.TaskNode) error {
		bus.Publish(TopicNode, ExceptionEvent{ID: n.ID(), Err: n.Err(), Timestamp: time.Now()})
		return nil
	}); err != nil {
		return err
	}

	if err := observe(commander.AtTerminate, func(ctx context.Context, n *commander.TaskNode) error {
		bus.Publish(TopicNode, TerminateEvent{ID: n.ID(), Timestamp: time.Now()})
		return nil
	}); err != nil {
		return err
	}

	if err := observe(commander.AtHandlerEnd, func(ctx context.Context, n *commander.TaskNode) error {
		bus.Publish(TopicNode, HandlerEndEvent{
			ID:        n.ID(),
			Result:    n.Result(),
			Failed:    n.State() == commander.Failed,
			Duration:  takeElapsed(n.ID()),
			Timestamp: time.Now(),
		})
		return nil
	}); err != nil {
		return err
	}

	if err := observe(commander.AtJobEnd, func(ctx context.Context, n *commander.TaskNode) error {
		bus.Publish(TopicNode, JobEndEvent{
			ID:        n.ID(),
			Result:    n.Result(),
			Failed:    n.State() == commander.Failed,
			Duration:  takeElapsed(n.ID()),
			Timestamp: time.Now(),
		})
		return nil
	}); err != nil {
		return err
	}

	return observe(commander.AtCommanderEnd, func(ctx context.Context, n *commander.TaskNode) error {
		bus.Publish(TopicCommander, CommanderEndEvent{Timestamp: time.Now()})
		return nil
	})
}

func parentID(n *commander.TaskNode) string {
	if p := n.Parent(); p != nil {
		return p.ID()
	}
	return ""
}
