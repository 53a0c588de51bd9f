package commander

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// bodyReport is what a running Job or Handler body sends back once its
// Run method returns, successfully or not.
type bodyReport struct {
	n      *TaskNode
	result any
	err    error
}

// Commander is a long-lived, single-logical-context scheduler. One
// Commander owns one task-TaskNode tree rooted at an internal, unexported
// root TaskNode; every Job and Handler submitted through it becomes a
// descendant of that root (directly, or further down via nested
// submissions).
//
// A Commander is only usable while a Run/RunAuto call is in progress.
// Submissions made before the first Run, or after the loop has
// exited, return ErrCommanderNotRunning.
type Commander struct {
	treeMu sync.Mutex // guards TaskNode.parent/children/pending/state/result/err/reusable

	queue    *jobQueue
	queueCh  chan queuedJob
	reportCh chan bodyReport
	logger   *log.Logger

	mu      sync.Mutex
	cond    *sync.Cond // signaled whenever running/hasRun changes, for WaitForExit
	running bool
	hasRun  bool // at least one Run call has completed
	waiting int  // threadsafe bridge: submissions accepted but not yet enqueued

	exitValue any
	exitErr   error

	idCounter atomic.Uint64

	// observers holds callbacks registered via Observe, copied onto
	// every TaskNode this Commander creates from that point forward so
	// an external subscriber (the event bus, the audit store) can see
	// every lifecycle transition without instrumenting each Job or
	// Handler individually.
	observers *CallbackRegistry

	root *TaskNode

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCommander constructs an idle Commander with an unbounded job
// queue. Pass nil to use the standard logger.
func NewCommander(logger *log.Logger) *Commander {
	return NewCommanderWithQueueCapacity(logger, 0)
}

// NewCommanderWithQueueCapacity constructs an idle Commander whose job
// queue accepts at most capacity pending items before PutJob blocks
// the submitting body (0 means unbounded), the Go realization of the
// spec's "queue may suspend if bounded and full."
func NewCommanderWithQueueCapacity(logger *log.Logger, capacity int) *Commander {
	if logger == nil {
		logger = log.Default()
	}
	root := newNode(kindJob)
	root.id = "commander-root"
	c := &Commander{
		queue:    newJobQueue(capacity),
		queueCh:  make(chan queuedJob),
		reportCh: make(chan bodyReport, 64),
		logger:   logger,
		root:     root,
	}
	c.cond = sync.NewCond(&c.mu)
	root.commander = c
	return c
}

func (c *Commander) logf(format string, args ...any) {
	c.logger.Printf("commander: "+format, args...)
}

func (c *Commander) nextID() string {
	return fmt.Sprintf("task-%d", c.idCounter.Add(1))
}

// IsRunning reports whether the loop is currently active.
func (c *Commander) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// IsEmpty reports whether the tree has fully drained: no queued jobs,
// no live children under the root, and no threadsafe submission
// currently mid-flight between acceptance and enqueue.
func (c *Commander) IsEmpty() bool {
	c.mu.Lock()
	waiting := c.waiting
	c.mu.Unlock()
	if waiting > 0 || c.queue.len() > 0 {
		return false
	}
	c.treeMu.Lock()
	defer c.treeMu.Unlock()
	return len(c.root.children) == 0
}

// AddCallback registers fn against event on the Commander's own root
// TaskNode. The only event that fires on the root itself is
// AtCommanderEnd; registering against the others here is legal but
// they will never fire, since the root has no body and no exception.
func (c *Commander) AddCallback(event CallbackEvent, fn CallbackFunc) error {
	return c.addCallback(c.root, event, fn)
}

// Root returns the Commander's own root TaskNode, the default parent for
// any submission made with a nil parent.
func (c *Commander) Root() *TaskNode { return c.root }

// Observe registers fn against event on every TaskNode created from
// this call forward (including a Handler rebuilt by restart), plus the
// Commander's own root, so fn also sees at_commander_end. Call it
// before Run; TaskNodes that already exist are unaffected.
func (c *Commander) Observe(event CallbackEvent, fn CallbackFunc) error {
	c.treeMu.Lock()
	defer c.treeMu.Unlock()
	if c.observers == nil {
		c.observers = NewCallbackRegistry()
	}
	if err := AddCallbackFunctions(c.observers, event, fn); err != nil {
		return err
	}
	if c.root.callbacks == nil {
		c.root.callbacks = NewCallbackRegistry()
	}
	return AddCallbackFunctions(c.root.callbacks, event, fn)
}

// Run starts the scheduling loop and blocks until it exits, returning
// the value passed to Exit (or nil if the loop drained on its own with
// autoExit). Returns ErrCommanderAlreadyRunning if a loop is already
// active on this Commander.
func (c *Commander) Run(ctx context.Context, autoExit bool, initial ...Job) (any, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrCommanderAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()

	c.ctx, c.cancel = context.WithCancel(ctx)
	defer c.cancel()

	feederDone := make(chan struct{})
	go func() {
		defer close(feederDone)
		for {
			item, ok := c.queue.pop(c.ctx)
			if !ok {
				return
			}
			select {
			case c.queueCh <- item:
			case <-c.ctx.Done():
				return
			}
		}
	}()

	for _, j := range initial {
		if _, err := c.PutJob(j, nil); err != nil {
			c.queue.closeQueue()
			<-feederDone
			c.finishRun(nil, err)
			return nil, err
		}
	}

	exitValue, err := c.runLoop(autoExit)

	c.queue.closeQueue()
	<-feederDone

	c.finishRun(exitValue, err)

	return exitValue, err
}

// finishRun records the loop's outcome and wakes every goroutine
// parked in WaitForExit or a waiting Exit call.
func (c *Commander) finishRun(value any, err error) {
	c.mu.Lock()
	c.running = false
	c.hasRun = true
	c.exitValue = value
	c.exitErr = err
	c.mu.Unlock()
	c.cond.Broadcast()
}

// RunAuto behaves like Run, except if the Commander is already running
// it simply enqueues the initial jobs against the active loop and
// returns immediately with a nil result, trusting the already-running
// call to eventually exit and report the real value.
func (c *Commander) RunAuto(ctx context.Context, autoExit bool, initial ...Job) (any, error) {
	c.mu.Lock()
	already := c.running
	c.mu.Unlock()
	if !already {
		return c.Run(ctx, autoExit, initial...)
	}
	for _, j := range initial {
		if _, err := c.PutJob(j, nil); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// runLoop is the scheduling loop itself: the one place that dequeues
// jobs, launches their bodies, and processes completion reports.
func (c *Commander) runLoop(autoExit bool) (any, error) {
	for {
		if autoExit && c.IsEmpty() {
			c.dispatchCommanderEnd()
			return nil, nil
		}

		select {
		case <-c.ctx.Done():
			return nil, c.ctx.Err()

		case item := <-c.queueCh:
			if _, ok := item.job.(comEnd); ok {
				c.treeMu.Lock()
				live := append([]*TaskNode(nil), c.root.children...)
				c.treeMu.Unlock()
				for _, n := range live {
					c.Terminate(n)
				}
				c.dispatchCommanderEnd()
				return item.n.result, nil
			}
			c.startJob(item)

		case rep := <-c.reportCh:
			c.handleReport(rep)
		}
	}
}

func (c *Commander) dispatchCommanderEnd() {
	c.root.callbacks.dispatch(c.ctx, AtCommanderEnd, c.root)
}

// startJob fires at_job_start and launches the body on its own
// goroutine. Only ever called from the loop goroutine.
func (c *Commander) startJob(item queuedJob) {
	n := item.n
	c.treeMu.Lock()
	n.state = Running
	c.treeMu.Unlock()

	bodyCtx, cancel := context.WithCancel(c.ctx)
	c.treeMu.Lock()
	n.cancel = cancel
	c.treeMu.Unlock()

	n.callbacks.dispatch(bodyCtx, AtJobStart, n)

	go func() {
		self := &JobNode{TaskNode: n}
		result, err := item.job.Run(bodyCtx, self)
		c.treeMu.Lock()
		alreadyTerminated := n.state == Terminated
		if err != nil && !alreadyTerminated {
			n.state = Failed
			n.err = err
		} else if err == nil {
			n.result = result
		}
		c.treeMu.Unlock()
		if err != nil && !alreadyTerminated {
			n.callbacks.dispatch(bodyCtx, AtException, n)
		}
		c.reportCh <- bodyReport{n: n, result: result, err: err}
	}()
}

// CallHandler starts h immediately as a child of parent (the
// Commander's root if parent is nil) and returns a handle without
// waiting for it to finish.
func (c *Commander) CallHandler(h Handler, parent *TaskNode) (*HandlerNode, error) {
	if !c.IsRunning() {
		return nil, ErrCommanderNotRunning
	}
	if parent == nil {
		parent = c.root
	}

	hc, ok := h.(*HandlerCoroutine)
	if !ok {
		hc = NewHandler(h)
	}
	firstAttach := hc.commander == nil
	hc.commander = c
	if hc.id == "" {
		hc.id = c.nextID()
	}

	c.treeMu.Lock()
	if firstAttach {
		hc.callbacks = hc.callbacks.Merge(c.observers)
	}
	if parent.state.IsTerminal() {
		c.treeMu.Unlock()
		return nil, ErrTaskTerminated
	}
	if hc.state.IsTerminal() {
		// This HandlerCoroutine has already run once (e.g. an AddEdge
		// cycle routing back through it); restart resets it in place.
		if err := hc.restart(); err != nil {
			c.treeMu.Unlock()
			return nil, err
		}
	}
	parent.addChild(hc.TaskNode)
	hc.state = Running
	c.treeMu.Unlock()

	bodyCtx, cancel := context.WithCancel(c.ctx)
	c.treeMu.Lock()
	hc.cancel = cancel
	c.treeMu.Unlock()

	hc.callbacks.dispatch(bodyCtx, AtHandlerStart, hc.TaskNode)

	go func() {
		self := &HandlerNode{TaskNode: hc.TaskNode}
		result, err := hc.body.Run(bodyCtx, self)
		c.treeMu.Lock()
		alreadyTerminated := hc.state == Terminated
		if err != nil && !alreadyTerminated {
			hc.state = Failed
			hc.err = err
		} else if err == nil {
			hc.result = result
		}
		c.treeMu.Unlock()
		if err != nil && !alreadyTerminated {
			hc.callbacks.dispatch(bodyCtx, AtException, hc.TaskNode)
		}
		c.reportCh <- bodyReport{n: hc.TaskNode, result: result, err: err}
	}()

	return &HandlerNode{TaskNode: hc.TaskNode}, nil
}

// PutJob enqueues job as a new child of parent (the Commander's root
// if parent is nil). The TaskNode is attached to the tree immediately, so
// pending-count bookkeeping on parent is correct even before the job
// is actually dequeued and started.
func (c *Commander) PutJob(job Job, parent *TaskNode) (*JobNode, error) {
	if !c.IsRunning() {
		return nil, ErrCommanderNotRunning
	}
	if parent == nil {
		parent = c.root
	}

	n := newNode(kindJob)
	n.commander = c
	n.id = c.nextID()

	c.treeMu.Lock()
	n.callbacks = n.callbacks.Merge(c.observers)
	if parent.state.IsTerminal() {
		c.treeMu.Unlock()
		return nil, ErrTaskTerminated
	}
	parent.addChild(n)
	c.treeMu.Unlock()

	if err := c.queue.push(c.ctx, queuedJob{n: n, job: job}); err != nil {
		c.treeMu.Lock()
		parent.removeChild(n)
		parent.pending--
		c.treeMu.Unlock()
		return nil, err
	}
	return &JobNode{TaskNode: n}, nil
}

// PutJobThreadsafe is PutJob's cross-goroutine-safe entry point. It
// exists as a distinct call so IsEmpty can see the submission as
// in-flight between acceptance and the moment it lands on the queue —
// without this, a caller racing a drained Commander could submit a job
// an instant after IsEmpty observed true and have it silently dropped.
// In Go, PutJob is already safe to call from any goroutine; this
// wrapper only adds that visibility window.
func (c *Commander) PutJobThreadsafe(job Job, parent *TaskNode) (*JobNode, error) {
	c.mu.Lock()
	c.waiting++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.waiting--
		c.mu.Unlock()
	}()
	return c.PutJob(job, parent)
}

// CallHandlerThreadsafe is CallHandler's cross-goroutine-safe entry
// point, with the same in-flight bookkeeping as PutJobThreadsafe.
func (c *Commander) CallHandlerThreadsafe(h Handler, parent *TaskNode) (*HandlerNode, error) {
	c.mu.Lock()
	c.waiting++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.waiting--
		c.mu.Unlock()
	}()
	return c.CallHandler(h, parent)
}

// addCallback registers fn against event on n.
func (c *Commander) addCallback(n *TaskNode, event CallbackEvent, fn CallbackFunc) error {
	c.treeMu.Lock()
	defer c.treeMu.Unlock()
	if n.callbacks == nil {
		n.callbacks = NewCallbackRegistry()
	}
	return AddCallbackFunctions(n.callbacks, event, fn)
}

// handleReport processes one body's completion: it is always called
// from the loop goroutine. It records that the TaskNode's own body has
// returned, and if that drains the TaskNode's pending count to zero,
// terminalizes it and propagates upward.
func (c *Commander) handleReport(rep bodyReport) {
	c.treeMu.Lock()
	defer c.treeMu.Unlock()
	n := rep.n
	if n.state == Terminated {
		// Already force-terminated; this report arrived late. Drop it.
		return
	}
	n.selfDone = true
	n.pending--
	c.delChildLocked(n)
}

// delChildLocked is the completion-propagation step described by
// completion propagation in the design: decrement done, and if a
// TaskNode's pending count has reached zero, fire its own terminal
// callback, settle its state, unlink it from its parent, and repeat
// the check one level up. Caller holds treeMu.
func (c *Commander) delChildLocked(n *TaskNode) {
	if n.pending > 0 {
		return
	}
	if n.state != Terminated {
		event := AtJobEnd
		if n.kind == kindHandler {
			event = AtHandlerEnd
		}
		cbs, ctx, target := n.callbacks, c.ctx, n
		c.treeMu.Unlock()
		cbs.dispatch(ctx, event, target)
		c.treeMu.Lock()
		// While the lock was released for the callback above, a
		// concurrent PutJob/CallHandler may have attached a new child
		// to n (legal, since n.state wasn't yet terminal), or a
		// concurrent Terminate of some ancestor may have swept through
		// and terminated n itself. Either way n is no longer ours to
		// finalize here; bail and let the other path take it from here.
		if n.pending > 0 || n.state == Terminated {
			return
		}
		if n.state == Running || n.state == Pending {
			n.state = Done
		}
	}
	closeOnce(n.doneCh)

	parent := n.parent
	if parent == nil {
		return
	}
	if parent.removeChild(n) {
		parent.pending--
	}
	c.delChildLocked(parent)
}

// Terminate cancels n and every TaskNode currently beneath it, firing
// at_terminate on each before unlinking the whole subtree from its
// parent in one step. at_job_end/at_handler_end do not fire for a
// terminated TaskNode. Returns ErrTaskTerminated if n is already terminal.
func (c *Commander) Terminate(n *TaskNode) error {
	c.treeMu.Lock()
	if n.state.IsTerminal() {
		c.treeMu.Unlock()
		return ErrTaskTerminated
	}
	c.terminateSubtreeLocked(n)
	parent := n.parent
	if parent != nil && parent.removeChild(n) {
		parent.pending--
	}
	c.treeMu.Unlock()

	if parent != nil {
		c.treeMu.Lock()
		c.delChildLocked(parent)
		c.treeMu.Unlock()
	}
	return nil
}

// terminateSubtreeLocked marks n and all its current descendants
// Terminated, cancels each one's body context, and fires at_terminate
// bottom-up. Caller holds treeMu; callbacks are dispatched with the
// lock briefly released.
func (c *Commander) terminateSubtreeLocked(n *TaskNode) {
	children := append([]*TaskNode(nil), n.children...)
	for _, child := range children {
		c.terminateSubtreeLocked(child)
	}
	n.state = Terminated
	n.children = nil
	n.pending = 0
	if n.cancel != nil {
		n.cancel()
	}
	cbs, ctx := n.callbacks, c.ctx
	c.treeMu.Unlock()
	cbs.dispatch(ctx, AtTerminate, n)
	c.treeMu.Lock()
	closeOnce(n.doneCh)
}

// Exit requests the loop stop as soon as it processes the sentinel,
// reporting value from Run/RunAuto. On processing it, the loop
// terminates every TaskNode still under the root (firing at_terminate)
// before firing at_commander_end. Safe to call from any goroutine,
// including from within a running Job or Handler body; pushing the
// sentinel through the real queue is what unblocks a loop parked
// waiting on an otherwise-empty queue. If wait is true, Exit blocks
// until the loop has actually returned, the Go equivalent of the
// Python original's __loop_exit_event/__thread_exit_event pair used
// to make exit(wait=True) synchronous across threads.
func (c *Commander) Exit(value any, wait bool) error {
	if err := c.queue.push(context.Background(), queuedJob{job: comEnd{value: value}, n: &TaskNode{result: value}}); err != nil {
		return err
	}
	if !wait {
		return nil
	}
	_, err := c.WaitForExit()
	return err
}

// WaitForExit blocks until the Commander's current or next Run call
// returns, then reports the same (value, error) pair Run itself
// returned. Safe to call from a goroutine that never called Run at
// all — the scenario a thread-safe caller uses to be notified of
// shutdown requested by a different thread's Exit call.
func (c *Commander) WaitForExit() (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !(c.hasRun && !c.running) {
		c.cond.Wait()
	}
	return c.exitValue, c.exitErr
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
