package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aristath/commander/internal/events"
)

func TestSubscribeRecordsPublishedEvents(t *testing.T) {
	store := newTestStore(t)
	bus := events.NewEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	runID, err := Subscribe(ctx, bus, store, logger)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	bus.Publish(events.TopicNode, events.JobStartedEvent{ID: "n1", Timestamp: time.Now()})
	bus.Publish(events.TopicNode, events.JobEndEvent{ID: "n1", Failed: false, Duration: time.Millisecond, Timestamp: time.Now()})
	bus.Publish(events.TopicCommander, events.CommanderEndEvent{Timestamp: time.Now()})

	deadline := time.Now().Add(time.Second)
	for {
		got, err := store.ListEvents(context.Background(), runID)
		if err != nil {
			t.Fatalf("ListEvents: %v", err)
		}
		if len(got) >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for events, got %d", len(got))
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
}
