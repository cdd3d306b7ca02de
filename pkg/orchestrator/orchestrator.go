package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"kisaanbot-be/internal/pkg/logger"
)

var (
	// ErrTimeout marks a call whose own attempt deadline expired.
	ErrTimeout = errors.New("call timed out")
	// ErrCallFailed marks a call that returned an error on every attempt.
	ErrCallFailed = errors.New("call failed")
	// ErrBudgetExceeded marks a call refused because the request budget ran
	// out before the attempt could start.
	ErrBudgetExceeded = errors.New("request budget exceeded")
)

// Orchestrator runs upstream calls under a shared concurrency cap, a
// per-kind timeout and retry policy, and the request-wide budget carried by
// the context deadline. The budget is checked before every attempt so an
// exhausted request never issues another upstream call.
type Orchestrator struct {
	sem      *semaphore.Weighted
	policies map[Kind]Policy
	log      logger.ILogger

	// newBackOff produces the retry schedule for one call. Injectable so
	// tests can collapse the waits.
	newBackOff func() backoff.BackOff
}

type Option func(*Orchestrator)

func WithPolicies(p map[Kind]Policy) Option {
	return func(o *Orchestrator) { o.policies = p }
}

func WithBackOffFactory(f func() backoff.BackOff) Option {
	return func(o *Orchestrator) { o.newBackOff = f }
}

func New(poolSize int, log logger.ILogger, opts ...Option) *Orchestrator {
	if poolSize <= 0 {
		poolSize = 4
	}
	o := &Orchestrator{
		sem:      semaphore.NewWeighted(int64(poolSize)),
		policies: DefaultPolicies(),
		log:      log,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 500 * time.Millisecond
			bo.MaxInterval = 5 * time.Second
			bo.RandomizationFactor = 0.3
			return bo
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBudget derives the request-wide deadline. All calls for one inbound
// message share it.
func WithBudget(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, budget)
}

// Call runs fn under the policy for kind. fn receives a context whose
// deadline is the attempt timeout (clipped by the budget). The returned
// error wraps ErrTimeout, ErrCallFailed, or ErrBudgetExceeded.
func (o *Orchestrator) Call(ctx context.Context, kind Kind, fn func(ctx context.Context) error) error {
	pol, ok := o.policies[kind]
	if !ok {
		pol = fallbackPolicy
	}

	bo := o.newBackOff()
	var lastErr error

	for attempt := 1; attempt <= pol.Attempts; attempt++ {
		if err := budgetLeft(ctx); err != nil {
			o.log.Warn("orchestrator", "budget exhausted, refusing call", map[string]interface{}{
				"kind": string(kind), "attempt": attempt,
			})
			if lastErr != nil {
				return fmt.Errorf("%w: %s after %d attempts: %v", ErrBudgetExceeded, kind, attempt-1, lastErr)
			}
			return fmt.Errorf("%w: %s", ErrBudgetExceeded, kind)
		}

		if err := o.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBudgetExceeded, kind, err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, pol.Timeout)
		start := time.Now()
		err := fn(attemptCtx)
		elapsed := time.Since(start)
		cancel()
		o.sem.Release(1)

		if err == nil {
			o.log.Debug("orchestrator", "call succeeded", map[string]interface{}{
				"kind": string(kind), "attempt": attempt, "elapsed_ms": elapsed.Milliseconds(),
			})
			return nil
		}

		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			lastErr = fmt.Errorf("%w: %s after %s", ErrTimeout, kind, elapsed.Round(time.Millisecond))
		} else if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %v", ErrBudgetExceeded, kind, err)
		} else {
			lastErr = fmt.Errorf("%w: %s: %v", ErrCallFailed, kind, err)
		}

		o.log.Warn("orchestrator", "call attempt failed", map[string]interface{}{
			"kind": string(kind), "attempt": attempt, "error": err.Error(),
		})

		if attempt < pol.Attempts {
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				break
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return fmt.Errorf("%w: %s: %v", ErrBudgetExceeded, kind, ctx.Err())
			}
		}
	}

	return lastErr
}

func budgetLeft(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= 0 {
		return context.DeadlineExceeded
	}
	return nil
}
