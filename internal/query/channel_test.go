package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func echoAnswer(ctx context.Context, nodeID string, question string) (string, error) {
	return strings.ToUpper(question), nil
}

func TestAskReturnsAnswer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewChannel(4, echoAnswer)
	c.Start(ctx)

	got, err := c.Ask(ctx, "node-1", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "HELLO" {
		t.Errorf("got %q, want %q", got, "HELLO")
	}

	cancel()
	c.Stop()
}

func TestAskPropagatesAnswerFuncError(t *testing.T) {
	sentinel := errors.New("no answer")
	c := NewChannel(4, func(ctx context.Context, nodeID, question string) (string, error) {
		return "", sentinel
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	defer func() {
		cancel()
		c.Stop()
	}()

	_, err := c.Ask(ctx, "node-1", "anything")
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

func TestAskReturnsContextErrorOnCancelBeforeSend(t *testing.T) {
	c := NewChannel(0, echoAnswer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Ask(ctx, "node-1", "hello")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMultipleConcurrentAsksDoNotBlockEachOther(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow := func(ctx context.Context, nodeID, question string) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return question, nil
	}
	c := NewChannel(4, slow)
	c.Start(ctx)
	defer func() {
		cancel()
		c.Stop()
	}()

	results := make(chan string, 3)
	for i := 0; i < 3; i++ {
		go func(n int) {
			got, err := c.Ask(ctx, "node", "q")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results <- got
		}(i)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-results:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for concurrent asks")
		}
	}
}

func TestStopBlocksUntilHandlerExits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewChannel(1, echoAnswer)
	c.Start(ctx)

	cancel()
	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
