package events

import (
	"sync"
)

// Topic is a coarse event channel, one level broader than a single
// EventType: TopicNode carries every per-node lifecycle transition a
// Bridge publishes (job/handler start, exception, terminate, end),
// TopicCommander carries only the whole-tree at_commander_end. This
// mirrors how a commander.CallbackRegistry groups callbacks by
// CallbackEvent one level below topic granularity — a subscriber can
// take the whole topic the way Commander.Observe takes a whole event,
// or narrow to one EventType via SubscribeEvent the way
// JobNode.AddCallback hooks a single CallbackEvent.
type Topic string

const (
	TopicNode      Topic = "node"
	TopicCommander Topic = "commander"
)

// EventBus is a channel-based pub-sub event bus for the node and
// commander lifecycle events a Bridge publishes from a running
// Commander. Supports topic-based subscriptions, EventType-narrowed
// subscriptions, and SubscribeAll for cross-topic consumption.
type EventBus struct {
	mu        sync.RWMutex
	subs      map[Topic][]chan Event  // topic -> subscriber channels
	eventSubs map[string][]chan Event // EventType -> subscriber channels
	allSubs   []chan Event            // channels subscribed to every topic
	closed    bool
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subs:      make(map[Topic][]chan Event),
		eventSubs: make(map[string][]chan Event),
		allSubs:   make([]chan Event, 0),
	}
}

// Subscribe creates a subscription to a specific topic.
// Returns a read-only channel that receives events published to that topic.
// bufSize determines the channel buffer size (defaults to 256 if <= 0).
func (b *EventBus) Subscribe(topic Topic, bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}

	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.subs[topic] = append(b.subs[topic], ch)

	return ch
}

// SubscribeEvent creates a subscription narrowed to a single EventType
// (e.g. EventTypeJobEnd), for a consumer that only cares about one
// lifecycle transition out of a topic's whole set — the bus-level
// counterpart of hooking a single commander.CallbackEvent instead of
// observing every one. bufSize determines the channel buffer size
// (defaults to 256 if <= 0).
func (b *EventBus) SubscribeEvent(eventType string, bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}

	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.eventSubs[eventType] = append(b.eventSubs[eventType], ch)

	return ch
}

// SubscribeAll creates a subscription to ALL topics.
// Returns a single read-only channel that receives events from every topic.
// bufSize determines the channel buffer size (defaults to 256 if <= 0).
func (b *EventBus) SubscribeAll(bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}

	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.allSubs = append(b.allSubs, ch)

	return ch
}

// Publish sends an event to every subscriber of the given topic, every
// subscriber narrowed to that event's own EventType, and every
// SubscribeAll channel. Non-blocking: if a subscriber's channel is
// full, the event is dropped for that subscriber.
func (b *EventBus) Publish(topic Topic, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
			// Channel full, drop event (non-blocking)
		}
	}

	for _, ch := range b.eventSubs[event.EventType()] {
		select {
		case ch <- event:
		default:
			// Channel full, drop event (non-blocking)
		}
	}

	for _, ch := range b.allSubs {
		select {
		case ch <- event:
		default:
			// Channel full, drop event (non-blocking)
		}
	}
}

// Close closes the event bus and all subscriber channels.
// Safe to call multiple times (idempotent).
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for _, channels := range b.subs {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, channels := range b.eventSubs {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range b.allSubs {
		close(ch)
	}
}
