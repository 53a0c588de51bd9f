// Package commander implements an in-process task-flow orchestrator.
//
// A Commander runs a single scheduling loop that accepts two kinds of
// work — Jobs (coarse, queue-scheduled units) and Handlers (fine,
// directly invoked continuations) — tracks them in a parent/child tree,
// propagates completion upward, and exits cleanly when asked or when
// the tree drains. Callbacks attach to lifecycle transitions.
//
// Job and handler bodies run on their own goroutines — true OS
// concurrency, unlike the single-threaded asyncio loop this design is
// ported from — and report completion back to the scheduling loop
// through channels. The one place real concurrent mutation can still
// happen is a body submitting a new child while another body submits a
// sibling at the same instant, so tree topology (parent/children/
// pending counts) is guarded by a single mutex, the idiomatic Go
// stand-in for "one logical execution context." A failing body marks
// its own TaskNode Failed and fires at_exception on its own goroutine;
// the end callbacks, unlinking and upward propagation that follow a
// body's completion report run on the scheduling loop goroutine, and
// Commander.Terminate runs the same propagation on its caller's
// goroutine.
package commander
