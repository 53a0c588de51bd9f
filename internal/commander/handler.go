package commander

import "context"

// HandlerNode is the "self" a running Handler's body receives, the
// handler-side counterpart of JobNode.
type HandlerNode struct {
	*TaskNode
}

// PutJob submits job as a new child of this HandlerNode.
func (h *HandlerNode) PutJob(job Job) (*JobNode, error) {
	return h.TaskNode.commander.PutJob(job, h.TaskNode)
}

// CallHandler invokes child as a new child of this HandlerNode.
func (h *HandlerNode) CallHandler(child Handler) (*HandlerNode, error) {
	return h.TaskNode.commander.CallHandler(child, h.TaskNode)
}

// AddCallback registers fn against event on this TaskNode.
func (h *HandlerNode) AddCallback(event CallbackEvent, fn CallbackFunc) error {
	return h.TaskNode.commander.addCallback(h.TaskNode, event, fn)
}

// ExitCommander requests the owning Commander shut down, equivalent to
// the body that owns this HandlerNode calling Commander.Exit itself.
// If wait is true it blocks until the loop has actually returned.
func (h *HandlerNode) ExitCommander(value any, wait bool) error {
	return h.TaskNode.commander.Exit(value, wait)
}

// Handler is the fine-grained, directly invoked unit of work. Unlike a
// Job it is not queued: CallHandler starts its body immediately on a
// fresh goroutine and returns a handle the caller can await.
type Handler interface {
	Run(ctx context.Context, self *HandlerNode) (any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, self *HandlerNode) (any, error)

// Run implements Handler.
func (f HandlerFunc) Run(ctx context.Context, self *HandlerNode) (any, error) { return f(ctx, self) }

// HandlerCoroutine is the tree TaskNode wrapping a running or runnable
// Handler. It is "reusable" when constructed with a factory instead of
// a fixed body: each restart asks the factory for a fresh Handler
// value, the Go equivalent of the Python original rebuilding its
// coroutine from a stored constructor on every re-run.
type HandlerCoroutine struct {
	*TaskNode

	body    Handler
	factory func() Handler
}

// NewHandler wraps a single-use Handler body in a tree TaskNode.
// Attempting to restart it after it reaches a terminal state returns
// ErrHandlerNotReusable unless something (e.g. AddEdge) has since
// marked the TaskNode reusable.
func NewHandler(body Handler) *HandlerCoroutine {
	return &HandlerCoroutine{TaskNode: newNode(kindHandler), body: body}
}

// NewReusableHandler wraps a factory that builds a fresh Handler body
// on every invocation, including restarts driven by AddEdge.
func NewReusableHandler(factory func() Handler) *HandlerCoroutine {
	n := newNode(kindHandler)
	n.reusable = true
	return &HandlerCoroutine{TaskNode: n, factory: factory, body: factory()}
}

// Reusable reports whether this handler may be restarted after
// reaching a terminal state.
func (h *HandlerCoroutine) Reusable() bool { return h.reusable }

// Run implements Handler by delegating to the wrapped body, so a
// *HandlerCoroutine can itself be passed anywhere a Handler is
// expected (e.g. CallHandler, AddEdge targets).
func (h *HandlerCoroutine) Run(ctx context.Context, self *HandlerNode) (any, error) {
	return h.body.Run(ctx, self)
}

// restart resets the TaskNode back to Pending and, if the handler carries
// a factory, asks it for a fresh body; otherwise the same body value
// runs again. Must be called with the owning Commander's treeMu held,
// and only once the TaskNode has fully unlinked from its previous parent.
func (h *HandlerCoroutine) restart() error {
	if !h.reusable {
		return ErrHandlerNotReusable
	}
	h.state = Pending
	h.result = nil
	h.err = nil
	h.selfDone = false
	h.pending = 1
	h.children = nil
	h.cancel = nil
	h.doneCh = make(chan struct{})
	if h.factory != nil {
		h.body = h.factory()
	}
	return nil
}
