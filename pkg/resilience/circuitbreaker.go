// Package resilience keeps catalogue loads from hammering a struggling
// source: a circuit breaker that stops calling it after repeated failures
// and an exponential-backoff retry that gives up early on permanent errors.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen matches every OpenError.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// OpenError is returned instead of calling a source whose breaker is open.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	if e.RetryAfter <= 0 {
		return fmt.Sprintf("circuit breaker %s is open (probe in flight)", e.Name)
	}
	return fmt.Sprintf("circuit breaker %s is open (retry after %v)", e.Name, e.RetryAfter.Round(time.Millisecond))
}

func (e *OpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// State is the phase a breaker is in. The numeric values are exported as
// the breaker state gauge.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls when the breaker trips and how long it
// waits before probing again. OnStateChange runs with the breaker locked
// and must not call back into it.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	OnStateChange       func(name string, from, to State)
	Now                 func() time.Time
}

func (c *CircuitBreakerConfig) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenMaxRequests <= 0 {
		c.HalfOpenMaxRequests = 1
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// BreakerStatus is a point-in-time view of a breaker for health reports.
type BreakerStatus struct {
	State               State
	ConsecutiveFailures int
	RetryAfter          time.Duration
}

// CircuitBreaker counts consecutive failures. At the threshold it opens and
// rejects calls until ResetTimeout has passed, then lets a limited number of
// probes through; one success closes it, one failure opens it again.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg.applyDefaults()
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn unless the breaker is open. Permanent errors count as a
// healthy round trip: the source answered, the answer was just unusable.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err == nil || IsPermanent(err))
	return err
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Status() BreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	st := BreakerStatus{State: cb.state, ConsecutiveFailures: cb.failures}
	if cb.state == StateOpen {
		st.RetryAfter = max(cb.remaining(), 0)
	}
	return st
}

// Reset closes the breaker and forgets past failures.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.failures = 0
	cb.probes = 0
	cb.logger.Info("circuit manually reset")
}

func (cb *CircuitBreaker) remaining() time.Duration {
	return cb.cfg.ResetTimeout - cb.cfg.Now().Sub(cb.openedAt)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if wait := cb.remaining(); wait > 0 {
			return &OpenError{Name: cb.name, RetryAfter: wait}
		}
		cb.transition(StateHalfOpen)
		cb.probes = 0
		cb.logger.Info("circuit half-open, probing source")
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			return &OpenError{Name: cb.name}
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if ok {
		if cb.state == StateHalfOpen {
			cb.logger.Info("circuit closed, source recovered")
		}
		cb.transition(StateClosed)
		cb.failures = 0
		cb.probes = 0
		return
	}

	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		cb.open()
		cb.logger.Warn("circuit re-opened, probe failed")
	case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
		cb.open()
		cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures, "threshold", cb.cfg.FailureThreshold)
	}
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.cfg.Now()
	cb.transition(StateOpen)
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
