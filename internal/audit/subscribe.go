package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/aristath/commander/internal/events"
)

// Subscribe starts a run and drains bus's node and commander topics
// into store until ctx is cancelled, logging (but not failing on)
// write errors so a flaky audit database never interferes with the
// run it is observing. It returns the new run's ID immediately;
// EndRun is called once ctx is done.
func Subscribe(ctx context.Context, bus *events.EventBus, store Store, logger *slog.Logger) (string, error) {
	runID, err := store.StartRun(ctx)
	if err != nil {
		return "", err
	}

	nodeCh := bus.Subscribe(events.TopicNode, 256)
	commanderCh := bus.Subscribe(events.TopicCommander, 256)

	go func() {
		defer func() {
			if err := store.EndRun(context.Background(), runID); err != nil {
				logger.Error("audit: ending run", "run_id", runID, "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-nodeCh:
				if !ok {
					return
				}
				if err := store.RecordEvent(context.Background(), runID, toNodeEvent(ev)); err != nil {
					logger.Error("audit: recording node event", "run_id", runID, "error", err)
				}
			case ev, ok := <-commanderCh:
				if !ok {
					return
				}
				if err := store.RecordEvent(context.Background(), runID, toNodeEvent(ev)); err != nil {
					logger.Error("audit: recording commander event", "run_id", runID, "error", err)
				}
			}
		}
	}()

	return runID, nil
}

func toNodeEvent(ev events.Event) NodeEvent {
	out := NodeEvent{NodeID: ev.NodeID(), EventType: ev.EventType()}

	switch e := ev.(type) {
	case events.JobStartedEvent:
		out.ParentID = e.ParentID
		out.RecordedAt = e.Timestamp
	case events.HandlerStartedEvent:
		out.ParentID = e.ParentID
		out.RecordedAt = e.Timestamp
	case events.ExceptionEvent:
		if e.Err != nil {
			out.Detail = e.Err.Error()
		}
		out.RecordedAt = e.Timestamp
	case events.TerminateEvent:
		out.RecordedAt = e.Timestamp
	case events.HandlerEndEvent:
		out.Failed = e.Failed
		out.Duration = e.Duration
		out.RecordedAt = e.Timestamp
	case events.JobEndEvent:
		out.Failed = e.Failed
		out.Duration = e.Duration
		out.RecordedAt = e.Timestamp
	case events.CommanderEndEvent:
		out.RecordedAt = e.Timestamp
	}

	if out.RecordedAt.IsZero() {
		out.RecordedAt = time.Now()
	}

	return out
}
