// Package domain holds the shared types that flow between the Event Store,
// Risk Engine and Execution Engine. Kept separate from those packages to
// avoid import cycles, the way the teacher keeps cross-cutting shapes in
// its own types package.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderStatus is a node in the order lifecycle state machine.
//
//	PENDING -> RISK_CHECK -> APPROVED -> EXECUTING -> EXECUTED
//	                      \           \-> FAILED
//	                       \-> REJECTED
//
// CANCELLED is reserved but unreachable.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusRiskCheck  OrderStatus = "RISK_CHECK"
	OrderStatusApproved   OrderStatus = "APPROVED"
	OrderStatusExecuting  OrderStatus = "EXECUTING"
	OrderStatusExecuted   OrderStatus = "EXECUTED"
	OrderStatusRejected   OrderStatus = "REJECTED"
	OrderStatusFailed     OrderStatus = "FAILED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Order is a single submission through the gateway. Mutated only by the
// Execution Engine under its lock; never destroyed.
type Order struct {
	OrderID         string          `json:"order_id"`
	CorrelationID   string          `json:"correlation_id"`
	Symbol          string          `json:"symbol"`
	Side            Side            `json:"side"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Strategy        string          `json:"strategy"`
	UserID          string          `json:"user_id"`
	ClientOrderID   string          `json:"client_order_id,omitempty"`
	Status          OrderStatus     `json:"status"`
	ExecutedQty     decimal.Decimal `json:"executed_quantity"`
	ExecutedPrice   decimal.Decimal `json:"executed_price,omitempty"`
	HasExecPrice    bool            `json:"-"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	RetryCount      int             `json:"retry_count"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Notional is quantity * price.
func (o *Order) Notional() decimal.Decimal {
	return o.Quantity.Mul(o.Price)
}

// Clone returns a value copy safe to hand to callers outside the engine lock.
func (o *Order) Clone() *Order {
	c := *o
	return &c
}

// Position is the signed holding in one symbol.
type Position struct {
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
}

// MarketValue is quantity * average_price, signed.
func (p *Position) MarketValue() decimal.Decimal {
	return p.Quantity.Mul(p.AveragePrice)
}

// RiskLimitsConfig is the replaceable, atomically-swapped risk policy.
type RiskLimitsConfig struct {
	MaxPositionSize   decimal.Decimal `json:"max_position_size"`
	MaxDailyVolume    decimal.Decimal `json:"max_daily_volume"`
	MaxNetExposure    decimal.Decimal `json:"max_net_exposure"`
	MaxGrossExposure  decimal.Decimal `json:"max_gross_exposure"`
	KillSwitchEnabled bool            `json:"kill_switch_enabled"`
}

// ViolationKind names a single failed risk rule.
type ViolationKind string

const (
	ViolationKillSwitch     ViolationKind = "KILL_SWITCH_ACTIVE"
	ViolationPositionLimit  ViolationKind = "POSITION_LIMIT"
	ViolationDailyVolume    ViolationKind = "DAILY_VOLUME_LIMIT"
	ViolationNetExposure    ViolationKind = "NET_EXPOSURE_LIMIT"
	ViolationGrossExposure  ViolationKind = "GROSS_EXPOSURE_LIMIT"
)

// RiskMetrics is the point-in-time snapshot returned by /risk/metrics.
type RiskMetrics struct {
	NetExposure       decimal.Decimal `json:"net_exposure"`
	GrossExposure     decimal.Decimal `json:"gross_exposure"`
	DailyVolume       decimal.Decimal `json:"daily_volume"`
	TotalPositions    int             `json:"total_positions"`
	LargestPosition   decimal.Decimal `json:"largest_position"`
	KillSwitchActive  bool            `json:"kill_switch_active"`
}
