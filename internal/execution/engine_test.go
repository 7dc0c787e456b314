package execution

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itirp/gateway/internal/domain"
	"github.com/itirp/gateway/internal/eventstore"
	"github.com/itirp/gateway/internal/risk"
)

type fakeRisk struct {
	result risk.CheckResult
}

func (f *fakeRisk) CheckOrder(order *domain.Order) risk.CheckResult { return f.result }
func (f *fakeRisk) UpdatePosition(order *domain.Order)              {}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.WorkerCount = 1
	cfg.JobQueueSize = 16
	return cfg
}

func newTestEngine(t *testing.T, result risk.CheckResult) (*Engine, *eventstore.Store) {
	t.Helper()
	store := eventstore.New()
	e := New(&fakeRisk{result: result}, store, testConfig())
	e.sleep = func(time.Duration) {} // instant in tests
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	e.Start(ctx)
	return e, store
}

func TestSubmit_RejectedOrderNeverDispatchesExecution(t *testing.T) {
	e, store := newTestEngine(t, risk.CheckResult{Passed: false, Message: "POSITION_LIMIT"})

	result, err := e.Submit(SubmitRequest{
		UserID: "trader1", Symbol: "aapl", Side: domain.SideBuy,
		Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.OrderStatusRejected {
		t.Fatalf("expected REJECTED, got %s", result.Status)
	}

	order, ok := e.GetOrder(result.OrderID)
	if !ok {
		t.Fatal("expected order to be retrievable")
	}
	if order.Status != domain.OrderStatusRejected {
		t.Errorf("expected stored status REJECTED, got %s", order.Status)
	}

	events := store.GetByOrder(result.OrderID)
	for _, ev := range events {
		if ev.EventType == domain.EventExecutionStarted {
			t.Error("rejected order must never append EXECUTION_STARTED")
		}
	}
}

func TestSubmit_DuplicateFingerprintReturnsConflict(t *testing.T) {
	e, _ := newTestEngine(t, risk.CheckResult{Passed: true})

	req := SubmitRequest{
		UserID: "trader1", Symbol: "AAPL", Side: domain.SideBuy,
		Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100),
		ClientOrderID: "client-1",
	}

	if _, err := e.Submit(req); err != nil {
		t.Fatalf("first submission should succeed: %v", err)
	}
	if _, err := e.Submit(req); err == nil {
		t.Fatal("expected duplicate submission to error")
	}
}

func TestRunExecution_SuccessPathEndsWithCompletionEvent(t *testing.T) {
	e, store := newTestEngine(t, risk.CheckResult{Passed: true})
	e.outcome = func() bool { return true }
	e.jitter = func(p decimal.Decimal) decimal.Decimal { return p }

	result, err := e.Submit(SubmitRequest{
		UserID: "trader1", Symbol: "AAPL", Side: domain.SideBuy,
		Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitForStatus(t, e, result.OrderID, domain.OrderStatusExecuted)

	events := store.GetByOrder(result.OrderID)
	types := make([]domain.EventType, len(events))
	for i, ev := range events {
		types[i] = ev.EventType
	}

	wantLast := domain.EventExecutionCompleted
	if types[len(types)-1] != wantLast {
		t.Fatalf("expected last event to be EXECUTION_COMPLETED, got %v", types)
	}
}

func TestRunExecution_ExhaustsRetriesThenFails(t *testing.T) {
	e, store := newTestEngine(t, risk.CheckResult{Passed: true})
	e.outcome = func() bool { return false }

	result, err := e.Submit(SubmitRequest{
		UserID: "trader1", Symbol: "AAPL", Side: domain.SideBuy,
		Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitForStatus(t, e, result.OrderID, domain.OrderStatusFailed)

	events := store.GetByOrder(result.OrderID)
	failures := 0
	for _, ev := range events {
		if ev.EventType == domain.EventExecutionFailed {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected exactly one EXECUTION_FAILED event, got %d", failures)
	}

	order, _ := e.GetOrder(result.OrderID)
	if order.RetryCount != e.cfg.MaxRetryAttempts {
		t.Errorf("expected retry count %d, got %d", e.cfg.MaxRetryAttempts, order.RetryCount)
	}
}

func TestCircuitBreaker_OpensAfterThresholdFailures(t *testing.T) {
	e, _ := newTestEngine(t, risk.CheckResult{Passed: true})
	e.outcome = func() bool { return false }
	e.cfg.CircuitBreakerThreshold = 2
	e.breaker = newCircuitBreaker(2, time.Minute)

	for i := 0; i < 2; i++ {
		result, err := e.Submit(SubmitRequest{
			UserID: "trader1", Symbol: "AAPL", Side: domain.SideBuy,
			Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100),
			ClientOrderID: string(rune('a' + i)),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		waitForStatus(t, e, result.OrderID, domain.OrderStatusFailed)
	}

	snap := e.breaker.snapshot()
	if snap.Status != "OPEN" {
		t.Fatalf("expected breaker OPEN after %d consecutive failures, got %s", e.cfg.CircuitBreakerThreshold, snap.Status)
	}
}

func waitForStatus(t *testing.T, e *Engine, orderID string, want domain.OrderStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		order, ok := e.GetOrder(orderID)
		if ok && (order.Status == want || isTerminal(order.Status)) {
			if order.Status != want {
				t.Fatalf("order reached terminal status %s, want %s", order.Status, want)
			}
			// The status is set before the breaker is updated and the
			// terminal event is appended, so also wait for that event.
			if events := e.store.GetByOrder(orderID); len(events) > 0 && isTerminalEvent(events[len(events)-1].EventType) {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for order %s to reach %s", orderID, want)
}

func isTerminalEvent(eventType domain.EventType) bool {
	switch eventType {
	case domain.EventRiskCheckFailed, domain.EventExecutionCompleted, domain.EventExecutionFailed:
		return true
	default:
		return false
	}
}

func isTerminal(status domain.OrderStatus) bool {
	switch status {
	case domain.OrderStatusExecuted, domain.OrderStatusFailed, domain.OrderStatusRejected:
		return true
	default:
		return false
	}
}
