package audit

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewMemoryStore(context.Background())
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStartAndEndRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	runID, err := store.StartRun(ctx)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run ID")
	}
	if err := store.EndRun(ctx, runID); err != nil {
		t.Fatalf("EndRun: %v", err)
	}
}

func TestRecordAndListEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	runID, err := store.StartRun(ctx)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	events := []NodeEvent{
		{NodeID: "n1", EventType: "job.started", RecordedAt: time.Now()},
		{NodeID: "n1", EventType: "job.end", Failed: false, Duration: 50 * time.Millisecond, RecordedAt: time.Now()},
		{NodeID: "n2", ParentID: "n1", EventType: "handler.end", Failed: true, Detail: "boom", RecordedAt: time.Now()},
	}
	for _, ev := range events {
		if err := store.RecordEvent(ctx, runID, ev); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	got, err := store.ListEvents(ctx, runID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[2].NodeID != "n2" || got[2].ParentID != "n1" || !got[2].Failed || got[2].Detail != "boom" {
		t.Errorf("unexpected third event: %+v", got[2])
	}
	if got[1].Duration != 50*time.Millisecond {
		t.Errorf("duration = %v, want 50ms", got[1].Duration)
	}
}

func TestListEventsScopedToRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run1, _ := store.StartRun(ctx)
	run2, _ := store.StartRun(ctx)

	if err := store.RecordEvent(ctx, run1, NodeEvent{NodeID: "a", EventType: "job.started"}); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := store.RecordEvent(ctx, run2, NodeEvent{NodeID: "b", EventType: "job.started"}); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	got, err := store.ListEvents(ctx, run1)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 || got[0].NodeID != "a" {
		t.Fatalf("run1 events leaked cross-run data: %+v", got)
	}
}
