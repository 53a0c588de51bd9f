package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicNode, 10)

	event := JobStartedEvent{ID: "task-1", Timestamp: time.Now()}
	bus.Publish(TopicNode, event)

	select {
	case received := <-ch:
		if received.NodeID() != "task-1" {
			t.Errorf("expected node ID 'task-1', got '%s'", received.NodeID())
		}
		if received.EventType() != EventTypeJobStarted {
			t.Errorf("expected event type '%s', got '%s'", EventTypeJobStarted, received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch1 := bus.Subscribe(TopicNode, 10)
	ch2 := bus.Subscribe(TopicNode, 10)

	event := JobEndEvent{ID: "task-2", Duration: 100 * time.Millisecond, Timestamp: time.Now()}
	bus.Publish(TopicNode, event)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.NodeID() != "task-2" {
				t.Errorf("subscriber %d: expected node ID 'task-2', got '%s'", i+1, received.NodeID())
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d: timeout waiting for event", i+1)
		}
	}
}

func TestNonBlockingSend(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicNode, 1)

	done := make(chan bool)
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(TopicNode, JobStartedEvent{ID: "task", Timestamp: time.Now()})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publisher blocked (expected non-blocking behavior)")
	}

	select {
	case received := <-ch:
		if received == nil {
			t.Error("received nil event")
		}
	default:
		t.Error("expected at least one event in buffer")
	}
}

func TestCloseSignalsSubscribers(t *testing.T) {
	bus := NewEventBus()

	ch := bus.Subscribe(TopicNode, 10)
	bus.Close()

	received := 0
	for range ch {
		received++
	}

	if received != 0 {
		t.Errorf("expected 0 events after close, got %d", received)
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(TopicNode, 10)

	bus.Close()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("publishing after close caused panic: %v", r)
		}
	}()

	bus.Publish(TopicNode, JobStartedEvent{ID: "task-1", Timestamp: time.Now()})

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received event after bus was closed")
		}
	default:
	}
}

func TestMultipleTopics(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	nodeCh := bus.Subscribe(TopicNode, 10)
	commanderCh := bus.Subscribe(TopicCommander, 10)

	bus.Publish(TopicNode, JobStartedEvent{ID: "task-1", Timestamp: time.Now()})
	bus.Publish(TopicCommander, CommanderEndEvent{Timestamp: time.Now()})

	select {
	case received := <-nodeCh:
		if received.EventType() != EventTypeJobStarted {
			t.Errorf("node channel: expected job started event, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("node channel: timeout waiting for event")
	}

	select {
	case received := <-commanderCh:
		if received.EventType() != EventTypeCommanderEnd {
			t.Errorf("commander channel: expected commander end event, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("commander channel: timeout waiting for event")
	}

	select {
	case <-nodeCh:
		t.Error("node channel received unexpected event")
	case <-time.After(10 * time.Millisecond):
	}

	select {
	case <-commanderCh:
		t.Error("commander channel received unexpected event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	allCh := bus.SubscribeAll(20)

	bus.Publish(TopicNode, JobStartedEvent{ID: "task-1", Timestamp: time.Now()})
	bus.Publish(TopicCommander, CommanderEndEvent{Timestamp: time.Now()})

	receivedTypes := make(map[string]bool)

	for i := 0; i < 2; i++ {
		select {
		case received := <-allCh:
			receivedTypes[received.EventType()] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for event")
		}
	}

	if !receivedTypes[EventTypeJobStarted] {
		t.Error("SubscribeAll did not receive job started event")
	}
	if !receivedTypes[EventTypeCommanderEnd] {
		t.Error("SubscribeAll did not receive commander end event")
	}

	select {
	case <-allCh:
		t.Error("received unexpected third event")
	case <-time.After(10 * time.Millisecond):
	}
}

// TestSubscribeEventNarrowsToOneEventType verifies that a subscriber
// narrowed via SubscribeEvent receives only its own EventType, even
// when other events land on the same topic.
func TestSubscribeEventNarrowsToOneEventType(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	endCh := bus.SubscribeEvent(EventTypeJobEnd, 10)

	bus.Publish(TopicNode, JobStartedEvent{ID: "task-1", Timestamp: time.Now()})
	bus.Publish(TopicNode, JobEndEvent{ID: "task-1", Timestamp: time.Now()})

	select {
	case received := <-endCh:
		if received.EventType() != EventTypeJobEnd {
			t.Errorf("expected job end event, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for job end event")
	}

	select {
	case received := <-endCh:
		t.Errorf("unexpected second event on narrowed subscription: %s", received.EventType())
	case <-time.After(10 * time.Millisecond):
	}
}
