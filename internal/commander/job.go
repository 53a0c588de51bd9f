package commander

import "context"

// JobNode is the "self" a running Job's body receives: the TaskNode's tree
// API plus the submission methods bound to this TaskNode as the default
// parent. This is the Go stand-in for the Python decorator's automatic
// self_job binding — since Go can't introspect a function's first
// parameter, the binding happens by construction instead: the
// Commander builds one JobNode per invocation and passes it in.
type JobNode struct {
	*TaskNode
}

// PutJob submits job as a new child of this JobNode, scheduled on the
// owning Commander's queue. Safe to call only from within this TaskNode's
// own running body (same goroutine group as the loop's dispatch).
func (j *JobNode) PutJob(job Job) (*JobNode, error) {
	return j.TaskNode.commander.PutJob(job, j.TaskNode)
}

// CallHandler invokes h as a new child of this JobNode and returns
// immediately with a handle; the handler body starts concurrently.
func (j *JobNode) CallHandler(h Handler) (*HandlerNode, error) {
	return j.TaskNode.commander.CallHandler(h, j.TaskNode)
}

// AddCallback registers fn against event on this TaskNode.
func (j *JobNode) AddCallback(event CallbackEvent, fn CallbackFunc) error {
	return j.TaskNode.commander.addCallback(j.TaskNode, event, fn)
}

// ExitCommander requests the owning Commander shut down, equivalent to
// the body that owns this JobNode calling Commander.Exit itself. If
// wait is true it blocks until the loop has actually returned.
func (j *JobNode) ExitCommander(value any, wait bool) error {
	return j.TaskNode.commander.Exit(value, wait)
}

// Job is the coarse, queue-scheduled unit of work. Implementations
// receive a JobNode bound to their own place in the tree and may use
// it to submit children, register callbacks, or read/write the TaskNode's
// Data slot. A Job must not block on anything other than context
// cancellation or channel operations it owns — per the "no blocking"
// contract, delegate genuinely slow work to resilience.Retry or an
// external goroutine the body awaits on.
type Job interface {
	Run(ctx context.Context, self *JobNode) (any, error)
}

// JobFunc adapts a plain function to the Job interface, the way
// http.HandlerFunc adapts a function to http.Handler.
type JobFunc func(ctx context.Context, self *JobNode) (any, error)

// Run implements Job.
func (f JobFunc) Run(ctx context.Context, self *JobNode) (any, error) { return f(ctx, self) }

// comEnd is the sentinel Job pushed by Commander.Exit to unblock a
// loop goroutine that is parked waiting on an empty queue. Its body
// does nothing; the loop recognizes the sentinel by type before ever
// launching it as a real task.
type comEnd struct{ value any }

// Run implements Job so comEnd satisfies the interface, though the
// loop never actually calls it.
func (comEnd) Run(ctx context.Context, self *JobNode) (any, error) { return nil, nil }
