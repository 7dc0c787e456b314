// Package risk implements the pre-trade gatekeeper and position/exposure
// bookkeeping. Grounded on the teacher's risk/manager.go (lock shape,
// daily-reset-by-date pattern, structured decision logging) and
// risk/circuit_breaker.go (trip/cooldown state machine, reused by the
// Execution Engine's circuit breaker). The ordered, non-short-circuiting
// violation list mirrors the teacher's risk/gate.go TradeRequest/TradeApproval
// shape.
package risk

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/itirp/gateway/internal/domain"
	"github.com/itirp/gateway/internal/eventstore"
)

// CheckResult is the outcome of a pre-trade evaluation.
type CheckResult struct {
	Passed        bool
	Violations    []domain.ViolationKind
	Message       string
	NetExposure   decimal.Decimal
	GrossExposure decimal.Decimal
}

// Engine owns the limits configuration, positions, and daily-volume
// accumulator. A holder of the Execution Engine's lock may call into this
// Engine (lock ordering: Execution -> Risk -> Event Store); this Engine may
// in turn call into the Event Store while holding its own lock.
type Engine struct {
	mu sync.Mutex

	limits domain.RiskLimitsConfig

	positions        map[string]*domain.Position
	dailyVolume      decimal.Decimal
	dailyVolumeReset time.Time

	store *eventstore.Store
}

// New creates a Risk Engine seeded with the given limits.
func New(limits domain.RiskLimitsConfig, store *eventstore.Store) *Engine {
	return &Engine{
		limits:           limits,
		positions:        make(map[string]*domain.Position),
		dailyVolumeReset: time.Now().UTC(),
		store:            store,
	}
}

// CheckOrder evaluates order pre-trade, appending RISK_CHECK_STARTED and
// exactly one of RISK_CHECK_{PASSED,FAILED} to the event store.
func (e *Engine) CheckOrder(order *domain.Order) CheckResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetDailyVolumeIfNeeded(time.Now().UTC())

	e.appendEvent(order, domain.EventRiskCheckStarted, domain.RiskCheckStartedPayload{
		Notional: order.Notional(),
	})

	var violations []domain.ViolationKind
	netExposure := decimal.Zero
	grossExposure := decimal.Zero

	if e.limits.KillSwitchEnabled {
		violations = append(violations, domain.ViolationKillSwitch)
	} else {
		notional := order.Notional()

		if notional.GreaterThan(e.limits.MaxPositionSize) {
			violations = append(violations, domain.ViolationPositionLimit)
		}
		if e.dailyVolume.Add(notional).GreaterThan(e.limits.MaxDailyVolume) {
			violations = append(violations, domain.ViolationDailyVolume)
		}

		netExposure, grossExposure = e.projectExposure(order)

		if netExposure.Abs().GreaterThan(e.limits.MaxNetExposure) {
			violations = append(violations, domain.ViolationNetExposure)
		}
		if grossExposure.GreaterThan(e.limits.MaxGrossExposure) {
			violations = append(violations, domain.ViolationGrossExposure)
		}
	}

	result := CheckResult{
		Violations:    violations,
		NetExposure:   netExposure,
		GrossExposure: grossExposure,
	}

	if len(violations) == 0 {
		result.Passed = true
		e.appendEvent(order, domain.EventRiskCheckPassed, domain.RiskCheckPassedPayload{
			NetExposure:   netExposure,
			GrossExposure: grossExposure,
		})
		log.Info().
			Str("order_id", order.OrderID).
			Str("symbol", order.Symbol).
			Msg("risk check passed")
		return result
	}

	if violations[0] == domain.ViolationKillSwitch {
		result.Message = "Kill switch is active - all trading halted"
	} else {
		result.Message = joinViolations(violations)
	}

	e.appendEvent(order, domain.EventRiskCheckFailed, domain.RiskCheckFailedPayload{
		Violations:    violations,
		Message:       result.Message,
		NetExposure:   netExposure,
		GrossExposure: grossExposure,
	})

	log.Warn().
		Str("order_id", order.OrderID).
		Str("symbol", order.Symbol).
		Strs("violations", violationStrings(violations)).
		Msg("risk check failed")

	return result
}

// projectExposure computes net/gross exposure as if order filled at its
// limit price. Per the design's preserved open question: every symbol's
// market value uses its *current* average price, and a symbol with no
// existing position projects at price zero — including the order's own
// symbol if it is new. This systematically understates exposure for fresh
// symbols; preserved deliberately, not fixed.
func (e *Engine) projectExposure(order *domain.Order) (net, gross decimal.Decimal) {
	net = decimal.Zero
	gross = decimal.Zero

	// A symbol with no existing position projects at price zero (including
	// the order's own symbol if it's new), so it never needs to be visited
	// explicitly: its contribution to both net and gross exposure is zero.
	for symbol, pos := range e.positions {
		qty := pos.Quantity
		if symbol == order.Symbol {
			qty = qty.Add(signedQuantity(order))
		}
		value := qty.Mul(pos.AveragePrice)
		net = net.Add(value)
		gross = gross.Add(value.Abs())
	}

	return net, gross
}

// UpdatePosition settles a fill into the positions map and daily volume.
// Executed on transition to EXECUTED. Averaging is preserved naively across
// sign changes (not P&L-aware) per the design's preserved open question.
func (e *Engine) UpdatePosition(order *domain.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delta := signedExecutedQuantity(order)

	pos, exists := e.positions[order.Symbol]
	if !exists {
		pos = &domain.Position{Symbol: order.Symbol}
		e.positions[order.Symbol] = pos
	}

	newQty := pos.Quantity.Add(delta)
	if newQty.IsZero() {
		pos.Quantity = decimal.Zero
		pos.AveragePrice = decimal.Zero
	} else {
		totalCost := pos.AveragePrice.Mul(pos.Quantity).Add(delta.Mul(order.ExecutedPrice))
		pos.AveragePrice = totalCost.Div(newQty)
		pos.Quantity = newQty
	}

	e.resetDailyVolumeIfNeeded(time.Now().UTC())
	e.dailyVolume = e.dailyVolume.Add(order.Notional())

	log.Info().
		Str("symbol", order.Symbol).
		Str("quantity", pos.Quantity.String()).
		Str("average_price", pos.AveragePrice.String()).
		Msg("position settled")
}

// Metrics returns the current risk snapshot.
func (e *Engine) Metrics() domain.RiskMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	net := decimal.Zero
	gross := decimal.Zero
	largest := decimal.Zero
	total := 0

	for _, pos := range e.positions {
		if pos.Quantity.IsZero() {
			continue
		}
		total++
		value := pos.MarketValue()
		net = net.Add(value)
		abs := value.Abs()
		gross = gross.Add(abs)
		if abs.GreaterThan(largest) {
			largest = abs
		}
	}

	return domain.RiskMetrics{
		NetExposure:      net,
		GrossExposure:    gross,
		DailyVolume:      e.dailyVolume,
		TotalPositions:   total,
		LargestPosition:  largest,
		KillSwitchActive: e.limits.KillSwitchEnabled,
	}
}

// Positions returns a snapshot of every open position.
func (e *Engine) Positions() []domain.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Position, 0, len(e.positions))
	for _, pos := range e.positions {
		if pos.Quantity.IsZero() {
			continue
		}
		out = append(out, *pos)
	}
	return out
}

// Limits returns a copy of the current limits configuration.
func (e *Engine) Limits() domain.RiskLimitsConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.limits
}

// SetConfig atomically replaces the limits configuration. In-flight checks
// that already loaded the previous snapshot under the lock continue with it.
func (e *Engine) SetConfig(limits domain.RiskLimitsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.limits = limits
	log.Info().Bool("kill_switch_enabled", limits.KillSwitchEnabled).Msg("risk limits updated")
}

// SetKillSwitch flips the kill switch in isolation, leaving other limits
// untouched.
func (e *Engine) SetKillSwitch(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.limits.KillSwitchEnabled = enabled
}

func (e *Engine) resetDailyVolumeIfNeeded(now time.Time) {
	if now.Format("2006-01-02") != e.dailyVolumeReset.Format("2006-01-02") {
		e.dailyVolume = decimal.Zero
		e.dailyVolumeReset = now
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

func signedQuantity(order *domain.Order) decimal.Decimal {
	if order.Side == domain.SideSell {
		return order.Quantity.Neg()
	}
	return order.Quantity
}

func signedExecutedQuantity(order *domain.Order) decimal.Decimal {
	if order.Side == domain.SideSell {
		return order.ExecutedQty.Neg()
	}
	return order.ExecutedQty
}

func joinViolations(violations []domain.ViolationKind) string {
	names := make([]string, len(violations))
	for i, v := range violations {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

func violationStrings(violations []domain.ViolationKind) []string {
	out := make([]string, len(violations))
	for i, v := range violations {
		out[i] = string(v)
	}
	return out
}
