package execution

import (
	"sync"
	"time"
)

// circuitBreaker trips after a run of consecutive execution failures and
// short-circuits every execution attempt until a cooldown elapses. Grounded
// on the teacher's risk/circuit_breaker.go trip/cooldown state machine,
// reused here for execution-attempt failures instead of trading losses.
type circuitBreaker struct {
	mu sync.Mutex

	threshold int
	timeout   time.Duration

	failures  int
	open      bool
	openUntil time.Time
}

func newCircuitBreaker(threshold int, timeout time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, timeout: timeout}
}

// admit reports whether an execution attempt may proceed. If the breaker has
// been open past its cooldown, it resets (failure counter to zero, open
// cleared) as a side effect, per the design.
func (cb *circuitBreaker) admit(now time.Time) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.open {
		if now.Before(cb.openUntil) {
			return false
		}
		cb.open = false
		cb.failures = 0
		cb.openUntil = time.Time{}
	}
	return true
}

// recordFailure increments the consecutive-failure counter and trips the
// breaker once it reaches the threshold.
func (cb *circuitBreaker) recordFailure(now time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.failures >= cb.threshold {
		cb.open = true
		cb.openUntil = now.Add(cb.timeout)
	}
}

// recordSuccess clears the consecutive-failure counter.
func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
}

type circuitBreakerSnapshot struct {
	Status    string     `json:"status"`
	Failures  int        `json:"failures"`
	OpenUntil *time.Time `json:"open_until,omitempty"`
}

func (cb *circuitBreaker) snapshot() circuitBreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	status := "CLOSED"
	var openUntil *time.Time
	if cb.open {
		status = "OPEN"
		ou := cb.openUntil
		openUntil = &ou
	}
	return circuitBreakerSnapshot{Status: status, Failures: cb.failures, OpenUntil: openUntil}
}
