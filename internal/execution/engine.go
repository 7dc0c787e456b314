// Package execution implements the order lifecycle: intake, idempotency,
// risk dispatch, asynchronous execution with retry and circuit breaker, and
// position settlement. Grounded on the teacher's execution/executor.go
// (Order/OrderState shape, mutex-guarded order table, paper-mode fill
// simulation, metrics snapshot). Unlike the teacher's fire-and-forget
// goroutine per order, background execution here runs on a bounded worker
// pool so a panic or overload is observable and shutdown can drain
// in-flight work, per the design's redesign note.
package execution

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/itirp/gateway/internal/apierr"
	"github.com/itirp/gateway/internal/domain"
	"github.com/itirp/gateway/internal/eventstore"
	"github.com/itirp/gateway/internal/risk"
)

// RiskChecker is the subset of the Risk Engine the Execution Engine depends
// on, so tests can substitute a fake.
type RiskChecker interface {
	CheckOrder(order *domain.Order) risk.CheckResult
	UpdatePosition(order *domain.Order)
}

// Config holds the constants named by the design: retry budget, circuit
// breaker threshold/timeout, worker pool sizing, and the simulated venue's
// injectable outcome/jitter behavior.
type Config struct {
	MaxRetryAttempts        int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
	WorkerCount             int
	JobQueueSize            int
	SimulatedLatency        time.Duration
	SuccessProbability      float64
	PriceJitterBand         float64 // e.g. 0.001 for +/-0.1%
}

// DefaultConfig matches the constants named by the design:
// MAX_RETRY_ATTEMPTS=3, CIRCUIT_BREAKER_THRESHOLD=5, CIRCUIT_BREAKER_TIMEOUT=60s.
func DefaultConfig() Config {
	return Config{
		MaxRetryAttempts:        3,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
		WorkerCount:             8,
		JobQueueSize:            4096,
		SimulatedLatency:        100 * time.Millisecond,
		SuccessProbability:      0.9,
		PriceJitterBand:         0.001,
	}
}

// SubmitRequest is the input to Submit, already validated by the HTTP layer.
type SubmitRequest struct {
	UserID        string
	Symbol        string
	Side          domain.Side
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Strategy      string
	ClientOrderID string
}

// SubmitResult is the synchronous reply to a submission.
type SubmitResult struct {
	OrderID       string
	CorrelationID string
	Status        domain.OrderStatus
	Message       string
}

// Engine is the order lifecycle owner.
type Engine struct {
	mu     sync.Mutex
	orders map[string]*domain.Order

	idempotency *idempotencySet
	breaker     *circuitBreaker

	risk  RiskChecker
	store *eventstore.Store
	cfg   Config

	jobs chan *domain.Order
	grp  *errgroup.Group

	// Test seams: the simulated venue's outcome selection and price-jitter
	// function are injectable so tests can force deterministic fills/failures.
	outcome func() bool
	jitter  func(price decimal.Decimal) decimal.Decimal
	sleep   func(d time.Duration)
}

// New constructs an Execution Engine. Call Start to spin up its worker pool.
func New(riskEngine RiskChecker, store *eventstore.Store, cfg Config) *Engine {
	e := &Engine{
		orders:      make(map[string]*domain.Order),
		idempotency: newIdempotencySet(),
		breaker:     newCircuitBreaker(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerTimeout),
		risk:        riskEngine,
		store:       store,
		cfg:         cfg,
		jobs:        make(chan *domain.Order, cfg.JobQueueSize),
		outcome:     func() bool { return rand.Float64() < cfg.SuccessProbability },
		jitter:      defaultJitter(cfg.PriceJitterBand),
		sleep:       time.Sleep,
	}
	return e
}

func defaultJitter(band float64) func(decimal.Decimal) decimal.Decimal {
	return func(price decimal.Decimal) decimal.Decimal {
		// U(-band, +band)
		offset := (rand.Float64()*2 - 1) * band
		factor := decimal.NewFromFloat(1 + offset)
		return price.Mul(factor)
	}
}

// Start launches the bounded worker pool. Workers run until ctx is done or
// Stop is called.
func (e *Engine) Start(ctx context.Context) {
	grp, ctx := errgroup.WithContext(ctx)
	e.grp = grp
	for i := 0; i < e.cfg.WorkerCount; i++ {
		grp.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case order, ok := <-e.jobs:
					if !ok {
						return nil
					}
					e.runExecution(order)
				}
			}
		})
	}
}

// Stop closes the job queue and waits for in-flight work to drain.
func (e *Engine) Stop() {
	close(e.jobs)
	if e.grp != nil {
		_ = e.grp.Wait()
	}
}

// Submit runs the full submission pipeline: idempotency gate, order
// creation, risk check, and — on approval — background execution dispatch.
// The reply is produced before any EXECUTION_* event is appended.
func (e *Engine) Submit(req SubmitRequest) (*SubmitResult, error) {
	symbol := strings.ToUpper(req.Symbol)
	fp := fingerprint(req.UserID, symbol, string(req.Side), req.Quantity.String(), req.Price.String(), req.ClientOrderID)

	if !e.idempotency.checkAndInsert(fp) {
		return nil, apierr.New(apierr.KindDuplicateSubmission, "duplicate submission")
	}

	order := &domain.Order{
		OrderID:       uuid.NewString(),
		CorrelationID: uuid.NewString(),
		Symbol:        symbol,
		Side:          req.Side,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Strategy:      req.Strategy,
		UserID:        req.UserID,
		ClientOrderID: req.ClientOrderID,
		Status:        domain.OrderStatusPending,
		ExecutedQty:   decimal.Zero,
		CreatedAt:     time.Now().UTC(),
	}

	e.putOrder(order)

	e.appendEvent(order, domain.EventOrderCreated, domain.OrderCreatedPayload{
		Symbol:   order.Symbol,
		Side:     order.Side,
		Quantity: order.Quantity,
		Price:    order.Price,
		Strategy: order.Strategy,
	})

	e.setStatus(order.OrderID, domain.OrderStatusRiskCheck)

	result := e.risk.CheckOrder(order)
	if !result.Passed {
		e.mu.Lock()
		order.Status = domain.OrderStatusRejected
		order.RejectionReason = result.Message
		e.mu.Unlock()

		return &SubmitResult{
			OrderID:       order.OrderID,
			CorrelationID: order.CorrelationID,
			Status:        domain.OrderStatusRejected,
			Message:       result.Message,
		}, nil
	}

	e.setStatus(order.OrderID, domain.OrderStatusApproved)
	e.dispatch(order)

	return &SubmitResult{
		OrderID:       order.OrderID,
		CorrelationID: order.CorrelationID,
		Status:        domain.OrderStatusApproved,
	}, nil
}

// dispatch enqueues order for background execution without blocking the
// caller on completion.
func (e *Engine) dispatch(order *domain.Order) {
	select {
	case e.jobs <- order:
	default:
		// Queue saturated: spawn a one-off supervised by the worker group
		// (so Stop waits for it) rather than silently dropping the order or
		// blocking the synchronous reply. Before Start there is no group and
		// the order runs on a plain goroutine.
		if e.grp != nil {
			e.grp.Go(func() error {
				e.runExecution(order)
				return nil
			})
			return
		}
		go e.runExecution(order)
	}
}

// runExecution is the background execution pipeline for one order.
func (e *Engine) runExecution(order *domain.Order) {
	now := time.Now()
	if !e.breaker.admit(now) {
		e.mu.Lock()
		order.Status = domain.OrderStatusFailed
		order.RejectionReason = "Circuit breaker open"
		e.mu.Unlock()
		log.Warn().Str("order_id", order.OrderID).Msg("circuit breaker open, execution short-circuited")
		return
	}

	e.setStatus(order.OrderID, domain.OrderStatusExecuting)
	e.appendEvent(order, domain.EventExecutionStarted, domain.ExecutionStartedPayload{Attempt: 1})

	for attempt := 1; attempt <= e.cfg.MaxRetryAttempts; attempt++ {
		e.sleep(e.cfg.SimulatedLatency)

		if e.outcome() {
			executedPrice := e.jitter(order.Price)

			e.mu.Lock()
			order.ExecutedQty = order.Quantity
			order.ExecutedPrice = executedPrice
			order.HasExecPrice = true
			order.Status = domain.OrderStatusExecuted
			e.mu.Unlock()

			e.risk.UpdatePosition(order)

			e.appendEvent(order, domain.EventExecutionCompleted, domain.ExecutionCompletedPayload{
				ExecutedQuantity: order.Quantity,
				ExecutedPrice:    executedPrice,
				RetryAttempt:     attempt,
			})
			e.breaker.recordSuccess()

			log.Info().
				Str("order_id", order.OrderID).
				Str("executed_price", executedPrice.String()).
				Msg("order executed")
			return
		}

		e.mu.Lock()
		order.RetryCount++
		e.mu.Unlock()

		if attempt < e.cfg.MaxRetryAttempts {
			e.sleep(time.Duration(1<<uint(attempt)) * time.Second)
			continue
		}

		reason := fmt.Sprintf("Execution failed after %d attempts", attempt)
		e.mu.Lock()
		order.Status = domain.OrderStatusFailed
		order.RejectionReason = reason
		e.mu.Unlock()

		e.breaker.recordFailure(time.Now())
		e.appendEvent(order, domain.EventExecutionFailed, domain.ExecutionFailedPayload{
			Reason:        reason,
			RetryAttempts: attempt,
		})

		log.Warn().Str("order_id", order.OrderID).Int("attempts", attempt).Msg("order execution failed")
	}
}

// GetOrder returns a snapshot copy of the order, or false if unknown.
func (e *Engine) GetOrder(orderID string) (*domain.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return nil, false
	}
	return order.Clone(), true
}

// ListOrders returns a snapshot copy of every order.
func (e *Engine) ListOrders() []*domain.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*domain.Order, 0, len(e.orders))
	for _, order := range e.orders {
		out = append(out, order.Clone())
	}
	return out
}

// SystemMetrics is the shape returned by GET /metrics.
type SystemMetrics struct {
	TotalOrders           int                    `json:"total_orders"`
	TotalEvents           int                    `json:"total_events"`
	OrderStatusBreakdown  map[string]int         `json:"order_status_breakdown"`
	CircuitBreaker        circuitBreakerSnapshot `json:"circuit_breaker"`
}

// Metrics returns the current order/circuit-breaker snapshot.
func (e *Engine) Metrics() SystemMetrics {
	e.mu.Lock()
	breakdown := make(map[string]int)
	for _, order := range e.orders {
		breakdown[string(order.Status)]++
	}
	total := len(e.orders)
	e.mu.Unlock()

	return SystemMetrics{
		TotalOrders:          total,
		TotalEvents:          e.store.Total(),
		OrderStatusBreakdown: breakdown,
		CircuitBreaker:       e.breaker.snapshot(),
	}
}

func (e *Engine) putOrder(order *domain.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orders[order.OrderID] = order
}

func (e *Engine) setStatus(orderID string, status domain.OrderStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if order, ok := e.orders[orderID]; ok {
		order.Status = status
	}
}

func (e *Engine) appendEvent(order *domain.Order, eventType domain.EventType, payload domain.Payload) {
	_ = e.store.Append(domain.Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		CorrelationID: order.CorrelationID,
		OrderID:       order.OrderID,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
		UserID:        order.UserID,
	})
}
