package resilience

import (
	"context"
	"time"

	"placementprep/internal/config"
	appErrors "placementprep/internal/errors"
)

// Observer receives the outcome of every remote call, for metrics
type Observer func(ctx context.Context, operation string, duration time.Duration, err error)

// Executor runs one kind of remote call through a breaker, retries and a per-attempt timeout
type Executor[T any] struct {
	Operation string
	Timeout   time.Duration
	Breaker   *Breaker[T]
	Retry     Policy
	Logger    *appErrors.Logger
	Observer  Observer
}

// NewExecutor builds an executor whose breaker is named "<service>-<operation>"
func NewExecutor[T any](service, operation string, timeout time.Duration, retry Policy, cb config.CircuitBreakerConfig, logger *appErrors.Logger) *Executor[T] {
	return &Executor[T]{
		Operation: operation,
		Timeout:   timeout,
		Breaker:   NewBreaker[T](breakerName(service, operation), cb, logger),
		Retry:     retry,
		Logger:    logger,
	}
}

// Execute runs fn; each attempt gets its own timeout derived from ctx
func (e *Executor[T]) Execute(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()

	result, err := e.Breaker.Execute(func() (T, error) {
		return Retry(ctx, e.Retry, e.Operation, e.Logger, func(ctx context.Context) (T, error) {
			if e.Timeout <= 0 {
				return fn(ctx)
			}
			attemptCtx, cancel := context.WithTimeout(ctx, e.Timeout)
			defer cancel()
			return fn(attemptCtx)
		})
	})

	if e.Observer != nil {
		e.Observer(ctx, e.Operation, time.Since(start), err)
	}
	return result, err
}

// Stats returns the breaker statistics for health reporting
func (e *Executor[T]) Stats() map[string]any {
	return e.Breaker.GetStats()
}

// IsHealthy reports whether the breaker admits calls
func (e *Executor[T]) IsHealthy() bool {
	return e.Breaker.IsHealthy()
}
