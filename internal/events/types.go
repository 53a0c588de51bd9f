package events

import "time"

// Event is the base interface for everything published on the bus.
type Event interface {
	EventType() string
	NodeID() string
}

// Event type constants, one per commander.CallbackEvent plus the
// bus-only progress summary.
const (
	EventTypeJobStarted     = "job.started"
	EventTypeHandlerStarted = "handler.started"
	EventTypeException      = "node.exception"
	EventTypeTerminate      = "node.terminate"
	EventTypeHandlerEnd     = "handler.end"
	EventTypeJobEnd         = "job.end"
	EventTypeCommanderEnd   = "commander.end"
	EventTypeTreeProgress   = "tree.progress"
)

// JobStartedEvent is published when a Job's body is about to launch.
type JobStartedEvent struct {
	ID        string
	ParentID  string
	Timestamp time.Time
}

func (e JobStartedEvent) EventType() string { return EventTypeJobStarted }
func (e JobStartedEvent) NodeID() string    { return e.ID }

// HandlerStartedEvent is published when a Handler's body is about to launch.
type HandlerStartedEvent struct {
	ID        string
	ParentID  string
	Timestamp time.Time
}

func (e HandlerStartedEvent) EventType() string { return EventTypeHandlerStarted }
func (e HandlerStartedEvent) NodeID() string    { return e.ID }

// ExceptionEvent is published the moment a body returns a non-nil error.
type ExceptionEvent struct {
	ID        string
	Err       error
	Timestamp time.Time
}

func (e ExceptionEvent) EventType() string { return EventTypeException }
func (e ExceptionEvent) NodeID() string    { return e.ID }

// TerminateEvent is published when a node is cancelled via Terminate.
type TerminateEvent struct {
	ID        string
	Timestamp time.Time
}

func (e TerminateEvent) EventType() string { return EventTypeTerminate }
func (e TerminateEvent) NodeID() string    { return e.ID }

// HandlerEndEvent is published once a Handler's pending count drains.
type HandlerEndEvent struct {
	ID        string
	Result    any
	Failed    bool
	Duration  time.Duration
	Timestamp time.Time
}

func (e HandlerEndEvent) EventType() string { return EventTypeHandlerEnd }
func (e HandlerEndEvent) NodeID() string    { return e.ID }

// JobEndEvent is published once a Job's pending count drains.
type JobEndEvent struct {
	ID        string
	Result    any
	Failed    bool
	Duration  time.Duration
	Timestamp time.Time
}

func (e JobEndEvent) EventType() string { return EventTypeJobEnd }
func (e JobEndEvent) NodeID() string    { return e.ID }

// CommanderEndEvent is published once the Commander's whole tree has
// unlinked and the run loop is about to exit.
type CommanderEndEvent struct {
	Timestamp time.Time
}

func (e CommanderEndEvent) EventType() string { return EventTypeCommanderEnd }
func (e CommanderEndEvent) NodeID() string    { return "" }

// TreeProgressEvent summarizes the live task tree for dashboards; it
// has no single owning node, so NodeID is always empty.
type TreeProgressEvent struct {
	Total     int
	Running   int
	Done      int
	Failed    int
	Pending   int
	Timestamp time.Time
}

func (e TreeProgressEvent) EventType() string { return EventTypeTreeProgress }
func (e TreeProgressEvent) NodeID() string    { return "" }
