// Package simulated provides a deterministic ActionExecutor test double. It
// exists so the engine can be exercised without real side effects; production
// wiring uses the registry-backed executor instead.
package simulated

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Executor struct {
	mu       sync.Mutex
	delays   map[string]time.Duration
	failures map[string]string
	executed []string
}

type Option func(*Executor)

// WithDelay makes every action of the given kind take d before settling.
func WithDelay(kind string, d time.Duration) Option {
	return func(e *Executor) { e.delays[kind] = d }
}

// WithFailure makes every action of the given kind fail with the message.
func WithFailure(kind, message string) Option {
	return func(e *Executor) { e.failures[kind] = message }
}

func New(opts ...Option) *Executor {
	executor := &Executor{
		delays:   make(map[string]time.Duration),
		failures: make(map[string]string),
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// Execute settles after the configured delay for the kind, honoring context
// cancellation. Failures are injected per kind or per action via a
// "simulate_failure" parameter.
func (e *Executor) Execute(ctx context.Context, kind string, parameters map[string]any) (map[string]any, error) {
	e.mu.Lock()
	delay := e.delays[kind]
	failure, shouldFail := e.failures[kind]
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.executed = append(e.executed, kind)
	e.mu.Unlock()

	if fail, _ := parameters["simulate_failure"].(bool); fail {
		return nil, fmt.Errorf("simulated failure for %s", kind)
	}

	if shouldFail {
		return nil, fmt.Errorf("%s", failure)
	}

	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("successfully executed %s", kind),
		"details": parameters,
	}, nil
}

// Executed returns the kinds that ran, in completion order.
func (e *Executor) Executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	executed := make([]string, len(e.executed))
	copy(executed, e.executed)

	return executed
}
