package commander

import (
	"context"
	"fmt"
)

// CallbackEvent names one of the seven lifecycle transitions a
// CallbackRegistry can hook.
type CallbackEvent int

const (
	// AtJobStart fires immediately before a Job's body is launched.
	AtJobStart CallbackEvent = iota
	// AtHandlerStart fires immediately before a Handler's body is launched.
	AtHandlerStart
	// AtException fires the moment a body raises, before propagation.
	AtException
	// AtTerminate fires when a TaskNode is cancelled via Commander.Terminate
	// or by Commander.Exit.
	AtTerminate
	// AtHandlerEnd fires once a Handler's own pending count reaches zero.
	AtHandlerEnd
	// AtJobEnd fires once a Job's own pending count reaches zero.
	AtJobEnd
	// AtCommanderEnd fires once every TaskNode under the Commander has
	// unlinked and the loop is about to exit.
	AtCommanderEnd
)

func (e CallbackEvent) String() string {
	switch e {
	case AtJobStart:
		return "at_job_start"
	case AtHandlerStart:
		return "at_handler_start"
	case AtException:
		return "at_exception"
	case AtTerminate:
		return "at_terminate"
	case AtHandlerEnd:
		return "at_handler_end"
	case AtJobEnd:
		return "at_job_end"
	case AtCommanderEnd:
		return "at_commander_end"
	default:
		return "unknown_event"
	}
}

// CallbackFunc is a single lifecycle hook. It always receives the TaskNode
// the event fired on (the Python original's inject_task_node=True is
// the only mode worth keeping once Go drops keyword-argument
// introspection: every hook gets the TaskNode, and ignores it if unneeded).
// Returning a non-nil error is logged through the Commander's logger; it
// does not change the TaskNode's state or stop the remaining callbacks —
// a callback is never allowed to crash the loop.
type CallbackFunc func(ctx context.Context, n *TaskNode) error

// CallbackDescriptor pairs a CallbackFunc with the event it hooks.
type CallbackDescriptor struct {
	Event CallbackEvent
	Func  CallbackFunc
}

// CallbackRegistry holds the callback sets attached to a single
// TaskNode. A nil *CallbackRegistry is a valid, empty registry — nodes
// created without callbacks needn't allocate one.
type CallbackRegistry struct {
	byEvent map[CallbackEvent][]CallbackFunc
}

// NewCallbackRegistry builds an empty registry, optionally seeded with
// descriptors.
func NewCallbackRegistry(descriptors ...CallbackDescriptor) *CallbackRegistry {
	r := &CallbackRegistry{byEvent: make(map[CallbackEvent][]CallbackFunc)}
	for _, d := range descriptors {
		r.Add(d.Event, d.Func)
	}
	return r
}

// Add registers fn against event.
func (r *CallbackRegistry) Add(event CallbackEvent, fn CallbackFunc) {
	if event < AtJobStart || event > AtCommanderEnd {
		return
	}
	r.byEvent[event] = append(r.byEvent[event], fn)
}

// Merge returns a new registry containing both r's and other's
// callbacks, r's running first per event. Either receiver may be nil.
func (r *CallbackRegistry) Merge(other *CallbackRegistry) *CallbackRegistry {
	out := NewCallbackRegistry()
	for _, reg := range []*CallbackRegistry{r, other} {
		if reg == nil {
			continue
		}
		for event, fns := range reg.byEvent {
			out.byEvent[event] = append(out.byEvent[event], fns...)
		}
	}
	return out
}

// Update overwrites r's callback list for event with other's, if other
// has any registered for it. Mirrors the Python Callback.update
// semantics of replacing (not appending) per named event.
func (r *CallbackRegistry) Update(other *CallbackRegistry) {
	if other == nil {
		return
	}
	for event, fns := range other.byEvent {
		if len(fns) > 0 {
			r.byEvent[event] = fns
		}
	}
}

// dispatch runs every callback registered for event against n, in
// registration order, all on the calling goroutine. That is the
// Commander loop goroutine for at_job_start and for end events that
// follow a body's completion report, the failing body's own goroutine
// for at_exception, and the caller's goroutine for at_handler_start
// (CallHandler) and for events fired by Commander.Terminate.
func (r *CallbackRegistry) dispatch(ctx context.Context, event CallbackEvent, n *TaskNode) {
	if r == nil {
		return
	}
	for _, fn := range r.byEvent[event] {
		if err := fn(ctx, n); err != nil && n.commander != nil {
			n.commander.logf("callback %s on %s returned error: %v", event, n, err)
		}
	}
}

// AddCallbackFunctions is the error-returning entry point used by
// public TaskNode wrappers (Job, HandlerCoroutine) so misuse of the event
// enum is reported instead of silently dropped.
func AddCallbackFunctions(r *CallbackRegistry, event CallbackEvent, fns ...CallbackFunc) error {
	if event < AtJobStart || event > AtCommanderEnd {
		return fmt.Errorf("%w: %d", ErrInvalidCallbackEvent, event)
	}
	for _, fn := range fns {
		r.Add(event, fn)
	}
	return nil
}
