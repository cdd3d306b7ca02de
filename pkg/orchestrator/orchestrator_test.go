package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"kisaanbot-be/internal/pkg/logger"
)

func newTestOrchestrator(policies map[Kind]Policy) *Orchestrator {
	return New(4, logger.NewNoopLogger(),
		WithPolicies(policies),
		WithBackOffFactory(func() backoff.BackOff {
			return backoff.NewConstantBackOff(time.Millisecond)
		}),
	)
}

func TestCallSucceedsFirstAttempt(t *testing.T) {
	o := newTestOrchestrator(map[Kind]Policy{
		KindEmbedding: {Timeout: time.Second, Attempts: 2},
	})

	var calls int32
	err := o.Call(context.Background(), KindEmbedding, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCallRetriesThenSucceeds(t *testing.T) {
	o := newTestOrchestrator(map[Kind]Policy{
		KindDecomposition: {Timeout: time.Second, Attempts: 3},
	})

	var calls int32
	err := o.Call(context.Background(), KindDecomposition, func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("flaky upstream")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestCallExhaustsAttempts(t *testing.T) {
	o := newTestOrchestrator(map[Kind]Policy{
		KindAdviceAudit: {Timeout: time.Second, Attempts: 1},
	})

	var calls int32
	err := o.Call(context.Background(), KindAdviceAudit, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("bad audit")
	})
	if !errors.Is(err, ErrCallFailed) {
		t.Fatalf("err = %v, want ErrCallFailed", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (audits do not retry)", calls)
	}
}

func TestCallClassifiesAttemptTimeout(t *testing.T) {
	o := newTestOrchestrator(map[Kind]Policy{
		KindAggregation: {Timeout: 10 * time.Millisecond, Attempts: 2},
	})

	err := o.Call(context.Background(), KindAggregation, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestExhaustedBudgetIssuesNoCalls(t *testing.T) {
	o := newTestOrchestrator(map[Kind]Policy{
		KindAdviceGeneration: {Timeout: time.Second, Attempts: 2},
	})

	ctx, cancel := WithBudget(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	var calls int32
	err := o.Call(ctx, KindAdviceGeneration, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("err = %v, want ErrBudgetExceeded", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 when budget is spent", calls)
	}
}

func TestBudgetStopsMidRetry(t *testing.T) {
	o := New(4, logger.NewNoopLogger(),
		WithPolicies(map[Kind]Policy{
			KindEvidenceSynthesis: {Timeout: time.Second, Attempts: 3},
		}),
		WithBackOffFactory(func() backoff.BackOff {
			return backoff.NewConstantBackOff(200 * time.Millisecond)
		}),
	)

	ctx, cancel := WithBudget(context.Background(), 50*time.Millisecond)
	defer cancel()

	var calls int32
	err := o.Call(ctx, KindEvidenceSynthesis, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("still failing")
	})
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("err = %v, want ErrBudgetExceeded", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (budget dies during backoff)", calls)
	}
}

func TestUnknownKindUsesFallbackPolicy(t *testing.T) {
	o := newTestOrchestrator(nil)

	var calls int32
	err := o.Call(context.Background(), Kind("mystery"), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		dl, ok := ctx.Deadline()
		if !ok {
			t.Error("attempt context has no deadline")
		}
		if until := time.Until(dl); until > fallbackPolicy.Timeout {
			t.Errorf("deadline too far out: %s", until)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPoolLimitsConcurrency(t *testing.T) {
	o := New(2, logger.NewNoopLogger(), WithPolicies(map[Kind]Policy{
		KindEmbedding: {Timeout: time.Second, Attempts: 1},
	}))

	var inFlight, peak int32
	done := make(chan error, 6)
	for i := 0; i < 6; i++ {
		go func() {
			done <- o.Call(context.Background(), KindEmbedding, func(ctx context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	for i := 0; i < 6; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Call: %v", err)
		}
	}
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}
