package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names a point in the order lifecycle at which an event is
// recorded. Every transition in the state machine is paired with exactly
// one event append, except the circuit-breaker short-circuit from APPROVED
// to FAILED, which appends none.
type EventType string

const (
	EventOrderCreated       EventType = "ORDER_CREATED"
	EventRiskCheckStarted   EventType = "RISK_CHECK_STARTED"
	EventRiskCheckPassed    EventType = "RISK_CHECK_PASSED"
	EventRiskCheckFailed    EventType = "RISK_CHECK_FAILED"
	EventExecutionStarted   EventType = "EXECUTION_STARTED"
	EventExecutionCompleted EventType = "EXECUTION_COMPLETED"
	EventExecutionFailed    EventType = "EXECUTION_FAILED"
)

// Payload is implemented by every concrete event payload shape. Keeping this
// a closed sum type (one struct per event type) rather than a bare
// map[string]any gives the compiler a hand in keeping payloads consistent
// with the event that carries them, per the design's preferred approach.
type Payload interface {
	isPayload()
}

// OrderCreatedPayload accompanies ORDER_CREATED.
type OrderCreatedPayload struct {
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Strategy string          `json:"strategy"`
}

func (OrderCreatedPayload) isPayload() {}

// RiskCheckStartedPayload accompanies RISK_CHECK_STARTED.
type RiskCheckStartedPayload struct {
	Notional decimal.Decimal `json:"notional"`
}

func (RiskCheckStartedPayload) isPayload() {}

// RiskCheckPassedPayload accompanies RISK_CHECK_PASSED.
type RiskCheckPassedPayload struct {
	NetExposure   decimal.Decimal `json:"net_exposure"`
	GrossExposure decimal.Decimal `json:"gross_exposure"`
}

func (RiskCheckPassedPayload) isPayload() {}

// RiskCheckFailedPayload accompanies RISK_CHECK_FAILED.
type RiskCheckFailedPayload struct {
	Violations    []ViolationKind `json:"violations"`
	Message       string          `json:"message"`
	NetExposure   decimal.Decimal `json:"net_exposure"`
	GrossExposure decimal.Decimal `json:"gross_exposure"`
}

func (RiskCheckFailedPayload) isPayload() {}

// ExecutionStartedPayload accompanies EXECUTION_STARTED.
type ExecutionStartedPayload struct {
	Attempt int `json:"attempt"`
}

func (ExecutionStartedPayload) isPayload() {}

// ExecutionCompletedPayload accompanies EXECUTION_COMPLETED.
type ExecutionCompletedPayload struct {
	ExecutedQuantity decimal.Decimal `json:"executed_quantity"`
	ExecutedPrice    decimal.Decimal `json:"executed_price"`
	RetryAttempt     int             `json:"retry_attempt"`
}

func (ExecutionCompletedPayload) isPayload() {}

// ExecutionFailedPayload accompanies EXECUTION_FAILED.
type ExecutionFailedPayload struct {
	Reason        string `json:"reason"`
	RetryAttempts int    `json:"retry_attempts"`
}

func (ExecutionFailedPayload) isPayload() {}

// Event is an immutable append-only record. Never mutated or deleted once
// appended.
type Event struct {
	EventID       string
	EventType     EventType
	CorrelationID string
	OrderID       string
	Timestamp     time.Time
	Payload       Payload
	UserID        string
}

// ReplayEvent is the serialisable projection of an Event returned by
// Replay/the audit HTTP handlers: ISO-8601 timestamps, string enums.
type ReplayEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	CorrelationID string    `json:"correlation_id"`
	OrderID       string    `json:"order_id"`
	Timestamp     string    `json:"timestamp"`
	Payload       Payload   `json:"payload,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
}

// ToReplay projects an Event to its serialisable representation.
func (e Event) ToReplay() ReplayEvent {
	return ReplayEvent{
		EventID:       e.EventID,
		EventType:     string(e.EventType),
		CorrelationID: e.CorrelationID,
		OrderID:       e.OrderID,
		Timestamp:     e.Timestamp.UTC().Format(time.RFC3339Nano),
		Payload:       e.Payload,
		UserID:        e.UserID,
	}
}
