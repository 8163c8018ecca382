package resolva

import (
	"context"
	"math/rand"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Executor performs a single tool invocation with a per-call timeout and a
// bounded retry policy. Transient failures are retried with exponential
// backoff and jitter; everything else is converted into a ToolFailure so
// the loop can keep reasoning instead of aborting.
type Executor struct {
	registry    *Registry
	retryLimit  int
	callTimeout time.Duration
	backoffBase time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorRetryLimit sets the number of retries after the first attempt.
func WithExecutorRetryLimit(n int) ExecutorOption {
	return func(x *Executor) {
		x.retryLimit = n
	}
}

// WithExecutorCallTimeout sets the per-call timeout.
func WithExecutorCallTimeout(d time.Duration) ExecutorOption {
	return func(x *Executor) {
		x.callTimeout = d
	}
}

// WithExecutorBackoffBase sets the initial backoff delay.
func WithExecutorBackoffBase(d time.Duration) ExecutorOption {
	return func(x *Executor) {
		x.backoffBase = d
	}
}

// NewExecutor creates an Executor bound to a registry.
func NewExecutor(registry *Registry, options ...ExecutorOption) *Executor {
	x := &Executor{
		registry:    registry,
		retryLimit:  DefaultRetryLimit,
		callTimeout: DefaultCallTimeout,
		backoffBase: 100 * time.Millisecond,
	}
	for _, opt := range options {
		opt(x)
	}
	return x
}

// Execute invokes one tool. The outcome is exactly one of:
//   - a structured result (first return),
//   - a structured ToolFailure (second return),
//   - an error (lookup or argument validation failed, or ctx ended).
//
// A ToolFailure is never returned together with an error.
func (x *Executor) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, *ToolFailure, error) {
	tool, err := x.registry.Lookup(name)
	if err != nil {
		return nil, nil, err
	}

	spec := tool.Spec()
	if err := ValidateArgs(spec, args); err != nil {
		return nil, nil, err
	}
	args = applyDefaults(spec, args)

	logger := LoggerFromContext(ctx)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= x.retryLimit; attempt++ {
		if attempt > 0 {
			if err := x.waitBackoff(ctx, attempt); err != nil {
				return nil, nil, err
			}
			logger.Debug("retrying tool call", "tool", name, "attempt", attempt+1)
		}

		callCtx, cancel := context.WithTimeout(ctx, x.callTimeout)
		result, err := tool.Run(callCtx, args)
		cancel()
		attempts++

		if err == nil {
			return result, nil, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			// The session context ended, not just the per-call one.
			return nil, nil, ctx.Err()
		}

		if !isTemporary(err) {
			return nil, &ToolFailure{
				Tool:      name,
				Message:   err.Error(),
				Temporary: false,
				Attempts:  attempts,
			}, nil
		}

		logger.Info("transient tool failure", "tool", name, "attempt", attempts, "error", err)
	}

	return nil, &ToolFailure{
		Tool:      name,
		Message:   goerr.Wrap(lastErr, "retry limit exceeded").Error(),
		Temporary: true,
		Attempts:  attempts,
	}, nil
}

func (x *Executor) waitBackoff(ctx context.Context, attempt int) error {
	delay := x.backoffBase << (attempt - 1)
	delay += time.Duration(rand.Int63n(int64(delay/2) + 1))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// applyDefaults fills omitted optional parameters that declare a default.
func applyDefaults(spec ToolSpec, args map[string]any) map[string]any {
	filled := make(map[string]any, len(args))
	for k, v := range args {
		filled[k] = v
	}
	for name, param := range spec.Parameters {
		if param.Default == nil {
			continue
		}
		if _, ok := filled[name]; !ok {
			filled[name] = param.Default
		}
	}
	return filled
}
