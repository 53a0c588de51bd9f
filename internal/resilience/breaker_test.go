package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
)

func TestBreakerRegistryGetReturnsSameInstance(t *testing.T) {
	r := NewBreakerRegistry()
	a := r.Get("upstream")
	b := r.Get("upstream")
	if a != b {
		t.Fatal("Get should return the same breaker for the same name")
	}
	if c := r.Get("other"); c == a {
		t.Fatal("Get should return distinct breakers for distinct names")
	}
}

func TestExecuteTripsBreakerAndStopsRetrying(t *testing.T) {
	r := NewBreakerRegistry()
	cfg := fastConfig()
	attempts := 0
	failing := func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("upstream down")
	}

	// Drive the breaker open with direct failures below the retry ceiling.
	cb := r.Get("flaky")
	for i := 0; i < 5; i++ {
		cb.Execute(func() (any, error) { return nil, errors.New("upstream down") })
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", cb.State())
	}

	attempts = 0
	_, err := Execute(context.Background(), r, "flaky", cfg, failing)
	if err == nil {
		t.Fatal("expected error once breaker is open")
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if attempts != 0 {
		t.Errorf("fn should not run while breaker is open, ran %d times", attempts)
	}
}

func TestExecuteSucceedsThroughBreaker(t *testing.T) {
	r := NewBreakerRegistry()
	result, err := Execute(context.Background(), r, "healthy", fastConfig(), func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want %q", result, "ok")
	}
}
