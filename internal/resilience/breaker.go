package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerRegistry keys a circuit breaker by a caller-supplied name
// (typically the external resource being called), so repeated
// failures against that resource short-circuit further attempts
// without affecting unrelated resources.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// Get returns the circuit breaker registered under name, creating one
// with sensible defaults on first use.
func (r *BreakerRegistry) Get(name string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	r.breakers[name] = cb
	return cb
}

// Execute runs fn through the breaker registered under name,
// combining it with Retry: every retry attempt passes through the
// same breaker, so a tripped breaker turns future attempts into an
// immediate gobreaker.ErrOpenState instead of letting backoff keep
// hammering a resource that has already signaled it is down.
func Execute[T any](ctx context.Context, r *BreakerRegistry, name string, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cb := r.Get(name)
	return Retry(ctx, cfg, func(ctx context.Context) (T, error) {
		result, err := cb.Execute(func() (any, error) {
			return fn(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				var zero T
				return zero, Permanent(err)
			}
			var zero T
			return zero, err
		}
		return result.(T), nil
	})
}
