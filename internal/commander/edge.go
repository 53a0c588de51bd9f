package commander

import (
	"context"
	"fmt"
)

// selfRef is satisfied by JobNode and HandlerNode: the two "self"
// handles a running body receives, and the only types AddEdge and
// AddConditionalEdge accept as an edge's source.
type selfRef interface {
	selfNode() *TaskNode
}

func (j *JobNode) selfNode() *TaskNode     { return j.TaskNode }
func (h *HandlerNode) selfNode() *TaskNode { return h.TaskNode }

// AddEdge wires from's completion to the submission of to: once from
// finishes (at_job_end or at_handler_end, depending on from's kind),
// to is submitted as a new child of the Commander's root — not of
// from — so a long chain or cycle of edges still sits on top of an
// acyclic parent/child tree. to must be a Job or a Handler (including
// a *HandlerCoroutine built with NewReusableHandler, for a from-TaskNode
// that should fire more than once).
//
// If from is itself a Handler, AddEdge marks it reusable so a cycle
// routed back through it can restart it; callers that never intend to
// restart a Handler from-TaskNode should not rely on AddEdge for anything
// but a one-shot continuation.
func AddEdge(from selfRef, to any, data any) error {
	n := from.selfNode()
	cmd := n.commander
	if cmd == nil {
		return fmt.Errorf("commander: AddEdge target has no owning Commander")
	}
	event := AtJobEnd
	if n.kind == kindHandler {
		event = AtHandlerEnd
		cmd.treeMu.Lock()
		n.reusable = true
		cmd.treeMu.Unlock()
	}
	return cmd.addCallback(n, event, edgeCallback(cmd, to, data))
}

// AddConditionalEdge is AddEdge generalized over a lookup: once from
// finishes, its result (whatever the body returned) is used as a key
// into routes. A missing key is a no-op, not an error — the same as
// an edge simply not existing for that outcome.
func AddConditionalEdge(from selfRef, routes map[any]any, data any) error {
	n := from.selfNode()
	cmd := n.commander
	if cmd == nil {
		return fmt.Errorf("commander: AddConditionalEdge target has no owning Commander")
	}
	event := AtJobEnd
	if n.kind == kindHandler {
		event = AtHandlerEnd
		cmd.treeMu.Lock()
		n.reusable = true
		cmd.treeMu.Unlock()
	}
	return cmd.addCallback(n, event, conditionalEdgeCallback(cmd, routes, data))
}

func edgeCallback(cmd *Commander, to any, data any) CallbackFunc {
	return func(ctx context.Context, from *TaskNode) error {
		return submitEdgeTarget(cmd, to, from, data)
	}
}

func conditionalEdgeCallback(cmd *Commander, routes map[any]any, data any) CallbackFunc {
	return func(ctx context.Context, from *TaskNode) error {
		to, ok := routes[from.result]
		if !ok {
			return nil
		}
		return submitEdgeTarget(cmd, to, from, data)
	}
}

func submitEdgeTarget(cmd *Commander, to any, from *TaskNode, data any) error {
	switch t := to.(type) {
	case Job:
		n, err := cmd.PutJob(t, nil)
		if err != nil {
			return err
		}
		if data != nil {
			n.SetData(data)
		}
		return nil
	case Handler:
		n, err := cmd.CallHandler(t, nil)
		if err != nil {
			return err
		}
		if data != nil {
			n.SetData(data)
		}
		return nil
	default:
		return fmt.Errorf("commander: edge target must be a Job or Handler, got %T", to)
	}
}
